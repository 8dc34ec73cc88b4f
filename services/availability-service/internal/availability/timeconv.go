package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ToMinutes parses a local wall-clock time in "H:MM" or "HH:MM" form into
// minutes since midnight.
func ToMinutes(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	if len(h) < 1 || len(h) > 2 || len(m) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	min, err := strconv.Atoi(m)
	if err != nil || min < 0 || min > 59 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return hour*60 + min, nil
}

// AnchorDay resolves local midnight of a YYYY-MM-DD date in loc. The zone
// offset is looked up for that specific date, so anchors on either side of a
// DST transition carry the correct offset. Slot boundaries are always
// anchor.Add(minutes), never rebuilt from UTC components.
func AnchorDay(date string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}
