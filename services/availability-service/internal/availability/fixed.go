package availability

import (
	"sort"
	"time"
)

// FixedTimeSlots evaluates the variant's configured start times instead of
// uniform stepping, with identical conflict semantics to AvailableSlots. A
// start that cannot be parsed, falls outside the working window once the
// full block is laid out, or collides with a break, time-off range, or
// booking is omitted; no partial or shifted slot is produced.
func FixedTimeSlots(sched Schedule, variant *Variant, date string, bookings []Booking, now time.Time) []Slot {
	if variant == nil || len(variant.FixedStarts) == 0 {
		return nil
	}
	day, anchor, ok := workingWindow(sched, date)
	if !ok {
		return nil
	}
	total := variant.totalMinutes()
	if variant.DurationMin <= 0 || total <= 0 {
		return nil
	}

	starts := make([]int, 0, len(variant.FixedStarts))
	for _, raw := range variant.FixedStarts {
		m, err := ToMinutes(raw)
		if err != nil {
			continue
		}
		starts = append(starts, m)
	}
	// The conflict cursors require ascending candidates; the caller's list
	// carries no ordering guarantee.
	sort.Ints(starts)

	cursors := newConflictCursors(anchor, total, day, sched, bookings)
	var slots []Slot
	prev := -1
	for _, m := range starts {
		if m == prev {
			continue
		}
		prev = m
		if m < day.StartMinute || m+total > day.EndMinute {
			continue
		}
		if cursors.blocked(m) {
			continue
		}
		slots = append(slots, cursors.slot(m))
	}
	return clampToNow(slots, date, sched.location(), now)
}
