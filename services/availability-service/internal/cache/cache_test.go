package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLCache_SetGet(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("a", 1)

	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("Get(a) = %v ok=%v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestTTLCache_Expiry(t *testing.T) {
	c := New(time.Minute, 10)
	base := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.Set("a", "x")
	c.now = func() time.Time { return base.Add(59 * time.Second) }
	if _, ok := c.Get("a"); !ok {
		t.Fatal("entry expired early")
	}
	c.now = func() time.Time { return base.Add(time.Minute) }
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry survived past its TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not removed, len=%d", c.Len())
	}
}

func TestTTLCache_BoundedSize(t *testing.T) {
	c := New(time.Minute, 3)
	base := time.Date(2026, 1, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		tick := base.Add(time.Duration(i) * time.Second)
		c.now = func() time.Time { return tick }
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() > 3 {
		t.Fatalf("cache exceeded capacity: len=%d", c.Len())
	}
	// The newest entry must have survived eviction.
	if _, ok := c.Get("k9"); !ok {
		t.Fatal("newest entry evicted")
	}
}

func TestTTLCache_DeletePrefix(t *testing.T) {
	c := New(time.Minute, 10)
	c.Set("dayconfig:biz1:staff1:svc:2026-01-28", 1)
	c.Set("dayconfig:biz1:staff2:svc:2026-01-28", 2)
	c.Set("dayconfig:biz2:staff1:svc:2026-01-28", 3)

	if n := c.DeletePrefix("dayconfig:biz1:"); n != 2 {
		t.Fatalf("DeletePrefix removed %d entries, want 2", n)
	}
	if _, ok := c.Get("dayconfig:biz2:staff1:svc:2026-01-28"); !ok {
		t.Fatal("unrelated entry must survive")
	}
}
