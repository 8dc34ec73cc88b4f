package model

import "time"

// Appointment is an existing booking as the availability engine sees it: an
// absolute occupancy range plus a status. Cancelled appointments do not
// occupy the calendar.
type Appointment struct {
	ID         string
	BusinessID string
	StaffID    string
	ServiceID  string
	StartTime  time.Time
	EndTime    time.Time
	Status     string
	CreatedAt  time.Time
}
