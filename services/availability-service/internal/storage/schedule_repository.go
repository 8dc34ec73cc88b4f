package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/slotwise/slotwise/libs/db"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

type BusinessProfile struct {
	BusinessID string
	Name       string
	Timezone   string
}

func (r *ScheduleRepository) GetOrCreateProfile(ctx context.Context, businessID string) (BusinessProfile, error) {
	// Create a default profile if missing so a fresh tenant can query
	// availability before finishing onboarding.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id)
		VALUES ($1)
		ON CONFLICT (business_id) DO NOTHING
	`, businessID)
	if err != nil {
		return BusinessProfile{}, err
	}

	var p BusinessProfile
	err = r.pool.QueryRow(ctx, `
		SELECT business_id::text, name, timezone
		FROM business_profiles
		WHERE business_id = $1
	`, businessID).Scan(&p.BusinessID, &p.Name, &p.Timezone)
	return p, err
}

func (r *ScheduleRepository) UpdateProfile(ctx context.Context, businessID, name, timezone string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_profiles (business_id, name, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (business_id) DO UPDATE
		SET name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			updated_at = now()
	`, businessID, name, timezone)
	return err
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	IsActive   bool
}

func (r *ScheduleRepository) CreateStaff(ctx context.Context, businessID, name string, isActive bool) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx, `
		INSERT INTO staff (business_id, name, is_active)
		VALUES ($1, $2, $3)
		RETURNING id::text
	`, businessID, name, isActive).Scan(&id)
	if err != nil {
		return "", err
	}

	// Default schedule: Mon-Fri 09:00-17:00 working, Sat/Sun closed.
	for wd := 0; wd <= 6; wd++ {
		isWorking := wd >= 1 && wd <= 5
		startMin, endMin := 540, 1020
		if !isWorking {
			startMin, endMin = 0, 0
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (staff_id, weekday) DO NOTHING
		`, id, wd, isWorking, startMin, endMin); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) ListStaff(ctx context.Context, businessID string, limit int) ([]Staff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, is_active
		FROM staff
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

type WorkingHours struct {
	StaffID     string
	Weekday     int
	IsWorking   bool
	StartMinute int
	EndMinute   int
	Breaks      []BreakRow
}

type BreakRow struct {
	StartMinute int
	EndMinute   int
}

func (r *ScheduleRepository) ListWorkingHours(ctx context.Context, businessID, staffID string) ([]WorkingHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT h.staff_id::text, h.weekday, h.is_working, h.start_minute, h.end_minute
		FROM staff_working_hours h
		JOIN staff s ON s.id = h.staff_id
		WHERE s.business_id = $1 AND h.staff_id = $2
		ORDER BY h.weekday ASC
	`, businessID, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkingHours
	for rows.Next() {
		var wh WorkingHours
		if err := rows.Scan(&wh.StaffID, &wh.Weekday, &wh.IsWorking, &wh.StartMinute, &wh.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, wh)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	for i := range out {
		breaks, err := r.listBreaks(ctx, staffID, out[i].Weekday)
		if err != nil {
			return nil, err
		}
		out[i].Breaks = breaks
	}
	return out, nil
}

func (r *ScheduleRepository) listBreaks(ctx context.Context, staffID string, weekday int) ([]BreakRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT start_minute, end_minute
		FROM staff_breaks
		WHERE staff_id = $1 AND weekday = $2
		ORDER BY start_minute ASC
	`, staffID, weekday)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BreakRow
	for rows.Next() {
		var b BreakRow
		if err := rows.Scan(&b.StartMinute, &b.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertWorkingHours replaces one weekday's window and its break list in a
// single transaction.
func (r *ScheduleRepository) UpsertWorkingHours(ctx context.Context, businessID, staffID string, wh WorkingHours) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff WHERE id = $1 AND business_id = $2
		)
	`, staffID, businessID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return pgx.ErrNoRows
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (staff_id, weekday) DO UPDATE
		SET is_working = EXCLUDED.is_working,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute
	`, staffID, wh.Weekday, wh.IsWorking, wh.StartMinute, wh.EndMinute); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM staff_breaks WHERE staff_id = $1 AND weekday = $2
	`, staffID, wh.Weekday); err != nil {
		return err
	}
	for _, b := range wh.Breaks {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff_breaks (staff_id, weekday, start_minute, end_minute)
			VALUES ($1, $2, $3, $4)
		`, staffID, wh.Weekday, b.StartMinute, b.EndMinute); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

type TimeOff struct {
	ID        string
	StaffID   string
	StartTime time.Time
	EndTime   time.Time
	Reason    string
	CreatedAt time.Time
}

func (r *ScheduleRepository) CreateTimeOff(ctx context.Context, businessID, staffID string, startTime, endTime time.Time, reason string) (string, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff WHERE id = $1 AND business_id = $2
		)
	`, staffID, businessID).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return "", pgx.ErrNoRows
	}

	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_time_off (id, staff_id, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, id, staffID, startTime, endTime, reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) ListTimeOff(ctx context.Context, businessID, staffID string, from, to time.Time, limit int) ([]TimeOff, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.id::text, t.staff_id::text, t.start_time, t.end_time, t.reason, t.created_at
		FROM staff_time_off t
		JOIN staff s ON s.id = t.staff_id
		WHERE s.business_id = $1
			AND t.staff_id = $2
			AND t.end_time > $3
			AND t.start_time < $4
		ORDER BY t.start_time ASC
		LIMIT $5
	`, businessID, staffID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.StaffID, &t.StartTime, &t.EndTime, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ScheduleRepository) DeleteTimeOff(ctx context.Context, businessID, timeOffID string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM staff_time_off t
		USING staff s
		WHERE t.staff_id = s.id
		  AND s.business_id = $1
		  AND t.id = $2
	`, businessID, timeOffID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type Service struct {
	ID               string
	BusinessID       string
	Name             string
	DurationMins     int
	BufferBeforeMins int
	BufferAfterMins  int
	FixedStartTimes  []string
	CreatedAt        time.Time
}

func (r *ScheduleRepository) CreateService(ctx context.Context, businessID string, svc Service) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO business_services
			(id, business_id, name, duration_minutes, buffer_before_minutes, buffer_after_minutes, fixed_start_times)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, businessID, svc.Name, svc.DurationMins, svc.BufferBeforeMins, svc.BufferAfterMins, svc.FixedStartTimes)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) ListServices(ctx context.Context, businessID string, limit int) ([]Service, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes,
			buffer_before_minutes, buffer_after_minutes, fixed_start_times, created_at
		FROM business_services
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, businessID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Service
	for rows.Next() {
		var s Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins,
			&s.BufferBeforeMins, &s.BufferAfterMins, &s.FixedStartTimes, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DayConfig is everything the availability endpoint needs for one
// staff/service/date triple: the tenant timezone, that weekday's window and
// breaks, and the service variant. It is the unit the schedule cache stores.
type DayConfig struct {
	Timezone         string
	IsWorking        bool
	StartMinute      int
	EndMinute        int
	Breaks           []BreakRow
	DurationMins     int
	BufferBeforeMins int
	BufferAfterMins  int
	FixedStartTimes  []string
}

// GetDayConfig resolves the tenant timezone, derives the weekday of date in
// that zone, and loads the matching window, breaks, and service variant.
// A missing working-hours row or a malformed date resolves to a non-working
// day, not an error.
func (r *ScheduleRepository) GetDayConfig(ctx context.Context, businessID, staffID, serviceID, date string) (DayConfig, error) {
	cfg := DayConfig{Timezone: "UTC"}

	profile, err := r.GetOrCreateProfile(ctx, businessID)
	if err != nil {
		return DayConfig{}, err
	}
	if tz := strings.TrimSpace(profile.Timezone); tz != "" {
		cfg.Timezone = tz
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
		cfg.Timezone = "UTC"
	}
	dayLocal, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return cfg, nil
	}
	weekday := int(dayLocal.Weekday())

	err = r.pool.QueryRow(ctx, `
		SELECT duration_minutes, buffer_before_minutes, buffer_after_minutes, fixed_start_times
		FROM business_services
		WHERE business_id = $1 AND id = $2
	`, businessID, serviceID).Scan(&cfg.DurationMins, &cfg.BufferBeforeMins, &cfg.BufferAfterMins, &cfg.FixedStartTimes)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return DayConfig{}, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT h.is_working, h.start_minute, h.end_minute
		FROM staff_working_hours h
		JOIN staff s ON s.id = h.staff_id
		WHERE s.business_id = $1 AND h.staff_id = $2 AND h.weekday = $3
	`, businessID, staffID, weekday).Scan(&cfg.IsWorking, &cfg.StartMinute, &cfg.EndMinute)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return DayConfig{}, err
	}
	if !cfg.IsWorking {
		return cfg, nil
	}

	cfg.Breaks, err = r.listBreaks(ctx, staffID, weekday)
	if err != nil {
		return DayConfig{}, err
	}
	return cfg, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}
