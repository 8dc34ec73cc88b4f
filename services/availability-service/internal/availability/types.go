package availability

import "time"

// Interval is a half-open absolute time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// BreakWindow is a half-open range of minute offsets within a working day.
type BreakWindow struct {
	StartMinute int
	EndMinute   int
}

// WorkingDay is a provider's window for one weekday, as minute offsets from
// local midnight. EndMinute must stay within the same calendar day (at most
// 23:59); a shift that continues past midnight is not representable.
type WorkingDay struct {
	StartMinute int
	EndMinute   int
	Breaks      []BreakWindow
}

// Schedule is a provider's weekly calendar. Weekdays absent from Week are
// non-working days. TimeOff ranges are absolute instants independent of any
// single day; they may span days and may overlap each other.
type Schedule struct {
	Location *time.Location
	Week     map[time.Weekday]WorkingDay
	TimeOff  []Interval
}

func (s Schedule) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// Variant describes the service being booked. Buffers pad the serviced
// duration on both sides and must be conflict-free along with it.
type Variant struct {
	DurationMin     int
	BufferBeforeMin int
	BufferAfterMin  int
	// FixedStarts, when non-empty, replaces uniform stepping with this list
	// of local HH:MM start times (scheduled-class style offerings).
	FixedStarts []string
}

func (v *Variant) totalMinutes() int {
	return v.DurationMin + v.BufferBeforeMin + v.BufferAfterMin
}

// StatusCancelled marks bookings that no longer block availability.
const StatusCancelled = "cancelled"

// Booking is an existing appointment on the provider's calendar.
type Booking struct {
	Start  time.Time
	End    time.Time
	Status string
}

// Slot is a bookable window [Start, End) whose length equals the variant's
// duration plus both buffers. Slots are computed fresh on every call and are
// never persisted.
type Slot struct {
	Start time.Time
	End   time.Time
}
