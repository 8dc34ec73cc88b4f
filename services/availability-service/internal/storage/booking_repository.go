package storage

import (
	"context"
	"time"

	"github.com/slotwise/slotwise/libs/db"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
)

// BookingRepository reads appointments written by the booking pipeline. This
// service never creates or mutates them; it only needs the occupancy view.
type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// ListBusyIntervals returns non-cancelled appointments overlapping
// [from, to), sorted ascending by start.
func (r *BookingRepository) ListBusyIntervals(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, staff_id::text, service_id::text,
			start_time, end_time, status, created_at
		FROM appointments
		WHERE business_id = $1
			AND staff_id = $2
			AND status <> 'cancelled'
			AND start_time < $4
			AND end_time > $3
		ORDER BY start_time ASC
	`, businessID, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.BusinessID, &a.StaffID, &a.ServiceID,
			&a.StartTime, &a.EndTime, &a.Status, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
