package availability

import (
	"sort"
	"strings"
	"time"
)

// AvailableSlots computes the bookable windows for one calendar day by
// stepping candidate starts across the provider's working window at stepMin
// granularity. Candidates are the arithmetic sequence workStart + k*stepMin
// for every k where the full block (duration plus buffers) still fits before
// workEnd. now bounds the scan against the wall clock; pass the single
// instant read for the request so the whole invocation clamps consistently.
//
// Missing or malformed schedule data degrades to an empty result, never an
// error: "no slots" is always a safe answer for a scheduling query.
func AvailableSlots(sched Schedule, variant *Variant, date string, bookings []Booking, stepMin int, now time.Time) []Slot {
	if variant == nil || stepMin <= 0 {
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
	if day.StartMinute+total > day.EndMinute {
		return nil
	}

	cursors := newConflictCursors(anchor, total, day, sched, bookings)
	var slots []Slot
	for m := day.StartMinute; m+total <= day.EndMinute; m += stepMin {
		if cursors.blocked(m) {
			continue
		}
		slots = append(slots, cursors.slot(m))
	}
	return clampToNow(slots, date, sched.location(), now)
}

func workingWindow(sched Schedule, date string) (WorkingDay, time.Time, bool) {
	anchor, ok := AnchorDay(date, sched.location())
	if !ok {
		return WorkingDay{}, time.Time{}, false
	}
	day, ok := sched.Week[anchor.Weekday()]
	if !ok {
		return WorkingDay{}, time.Time{}, false
	}
	if day.StartMinute < 0 || day.EndMinute >= minutesPerDay || day.EndMinute <= day.StartMinute {
		return WorkingDay{}, time.Time{}, false
	}
	return day, anchor, true
}

// clampToNow drops slots that have already started, but only when the
// requested date is "today" in the provider's zone.
func clampToNow(slots []Slot, date string, loc *time.Location, now time.Time) []Slot {
	if len(slots) == 0 || now.IsZero() {
		return slots
	}
	if now.In(loc).Format("2006-01-02") != strings.TrimSpace(date) {
		return slots
	}
	kept := slots[:0]
	for _, s := range slots {
		if s.Start.After(now) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// conflictCursors tracks one monotonic index per conflict source. Candidate
// starts must arrive in ascending order; the cursors never rewind, so a full
// scan is linear in breaks+timeOff+busy after the initial sorts, independent
// of step granularity.
type conflictCursors struct {
	anchor   time.Time
	totalMin int

	breaks  []BreakWindow // merged: sorted, pairwise disjoint
	timeOff []Interval    // sorted by start; ranges may overlap
	busy    []Interval    // sorted by start; ranges may overlap

	bi, ti, ui int
}

func newConflictCursors(anchor time.Time, totalMin int, day WorkingDay, sched Schedule, bookings []Booking) *conflictCursors {
	busy := make([]Interval, 0, len(bookings))
	for _, b := range bookings {
		if b.Status == StatusCancelled {
			continue
		}
		busy = append(busy, Interval{Start: b.Start, End: b.End})
	}
	return &conflictCursors{
		anchor:   anchor,
		totalMin: totalMin,
		breaks:   MergeBreaks(day.Breaks),
		timeOff:  normalizeIntervals(sched.TimeOff),
		busy:     normalizeIntervals(busy),
	}
}

// normalizeIntervals copies in, drops ranges that cannot represent a real
// span (zero or inverted endpoints, e.g. built from an unparsable
// timestamp), and sorts by start. A dropped range blocks nothing; it is
// rejected here explicitly rather than left to comparisons against the zero
// time.
func normalizeIntervals(in []Interval) []Interval {
	out := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.Start.IsZero() || iv.End.IsZero() || !iv.End.After(iv.Start) {
			continue
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// blocked reports whether the candidate [m, m+totalMin) collides with a
// break, a time-off range, or a live booking. Half-open semantics
// throughout: a conflict ending exactly at the candidate's start, or
// starting exactly at its end, does not block, so back-to-back bookings are
// legal.
func (c *conflictCursors) blocked(m int) bool {
	for c.bi < len(c.breaks) && c.breaks[c.bi].EndMinute <= m {
		c.bi++
	}
	if c.bi < len(c.breaks) && c.breaks[c.bi].StartMinute < m+c.totalMin {
		return true
	}

	start := c.anchor.Add(time.Duration(m) * time.Minute)
	end := c.anchor.Add(time.Duration(m+c.totalMin) * time.Minute)

	for c.ti < len(c.timeOff) && !c.timeOff[c.ti].End.After(start) {
		c.ti++
	}
	// Time-off ranges are not pairwise disjoint, so one cursor test is not
	// enough: probe forward until a range starts at or past the candidate
	// end. Sorted order guarantees nothing later can overlap once that holds.
	for j := c.ti; j < len(c.timeOff) && c.timeOff[j].Start.Before(end); j++ {
		if start.Before(c.timeOff[j].End) {
			return true
		}
	}

	for c.ui < len(c.busy) && !c.busy[c.ui].End.After(start) {
		c.ui++
	}
	for j := c.ui; j < len(c.busy) && c.busy[j].Start.Before(end); j++ {
		if start.Before(c.busy[j].End) {
			return true
		}
	}
	return false
}

func (c *conflictCursors) slot(m int) Slot {
	return Slot{
		Start: c.anchor.Add(time.Duration(m) * time.Minute),
		End:   c.anchor.Add(time.Duration(m+c.totalMin) * time.Minute),
	}
}
