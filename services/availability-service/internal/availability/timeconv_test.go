package availability

import (
	"testing"
	"time"
)

func TestToMinutes(t *testing.T) {
	cases := map[string]int{
		"00:00": 0,
		"9:30":  570,
		"09:30": 570,
		"23:59": 1439,
	}
	for in, want := range cases {
		got, err := ToMinutes(in)
		if err != nil {
			t.Fatalf("ToMinutes(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ToMinutes(%q) = %d, want %d", in, got, want)
		}
	}

	for _, in := range []string{"", "930", "24:00", "12:60", "9:5", "ab:cd", "12:"} {
		if _, err := ToMinutes(in); err == nil {
			t.Fatalf("ToMinutes(%q) should have failed", in)
		}
	}
}

func TestAnchorDay_ResolvesOffsetPerDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	winter, ok := AnchorDay("2026-01-15", ny)
	if !ok {
		t.Fatal("expected winter anchor")
	}
	summer, ok := AnchorDay("2026-07-15", ny)
	if !ok {
		t.Fatal("expected summer anchor")
	}

	if !winter.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, ny)) {
		t.Fatalf("winter anchor = %s", winter.Format(time.RFC3339))
	}
	// EST midnight is 05:00 UTC; EDT midnight is 04:00 UTC. A fixed-offset
	// lookup would get one of these wrong.
	if winter.UTC().Hour() != 5 {
		t.Fatalf("winter anchor UTC hour = %d, want 5", winter.UTC().Hour())
	}
	if summer.UTC().Hour() != 4 {
		t.Fatalf("summer anchor UTC hour = %d, want 4", summer.UTC().Hour())
	}
}

func TestAnchorDay_BadInput(t *testing.T) {
	if _, ok := AnchorDay("not-a-date", time.UTC); ok {
		t.Fatal("expected failure for malformed date")
	}
	if _, ok := AnchorDay("2026-13-40", time.UTC); ok {
		t.Fatal("expected failure for out-of-range date")
	}
	if anchor, ok := AnchorDay("2026-01-15", nil); !ok || !anchor.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("nil location should fall back to UTC, got %v ok=%v", anchor, ok)
	}
}
