package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/slotwise/slotwise/services/availability-service/internal/cache"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/storage"
)

type stubScheduleSource struct {
	cfg      storage.DayConfig
	cfgErr   error
	timeOff  []storage.TimeOff
	cfgCalls int
	offCalls int
	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubScheduleSource) GetDayConfig(ctx context.Context, businessID, staffID, serviceID, date string) (storage.DayConfig, error) {
	s.cfgCalls++
	return s.cfg, s.cfgErr
}

func (s *stubScheduleSource) ListTimeOff(ctx context.Context, businessID, staffID string, from, to time.Time, limit int) ([]storage.TimeOff, error) {
	s.offCalls++
	s.lastFrom = from
	s.lastTo = to
	return s.timeOff, nil
}

type stubBookingSource struct {
	busy []model.Appointment
	err  error
}

func (s *stubBookingSource) ListBusyIntervals(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error) {
	return s.busy, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func workingDayConfig() storage.DayConfig {
	return storage.DayConfig{
		Timezone:     "UTC",
		IsWorking:    true,
		StartMinute:  9 * 60,
		EndMinute:    17 * 60,
		DurationMins: 60,
	}
}

func newTestHandler(schedules *stubScheduleSource, bookings *stubBookingSource) *AvailabilityHandler {
	h := NewAvailabilityHandler(schedules, bookings, cache.New(time.Minute, 128), testLogger(), 15)
	h.now = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func doSlots(t *testing.T, h *AvailabilityHandler, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/availability?"+query, nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	return rec
}

func decodeSlots(t *testing.T, rec *httptest.ResponseRecorder) []slotItem {
	t.Helper()
	var items []slotItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return items
}

func TestSlotsRequiresParams(t *testing.T) {
	h := newTestHandler(&stubScheduleSource{}, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&date=2026-01-26")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing service_id, got %d", rec.Code)
	}
}

func TestSlotsRejectsBadStep(t *testing.T) {
	h := newTestHandler(&stubScheduleSource{cfg: workingDayConfig()}, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26&step_minutes=abc")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad step_minutes, got %d", rec.Code)
	}
}

func TestSlotsMethodNotAllowed(t *testing.T) {
	h := newTestHandler(&stubScheduleSource{}, &stubBookingSource{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/availability", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestSlotsHappyPath(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	items := decodeSlots(t, rec)
	if len(items) != 29 {
		t.Fatalf("expected 29 slots, got %d", len(items))
	}
	if items[0].StartTime != "2026-01-26T09:00:00Z" {
		t.Fatalf("unexpected first slot %q", items[0].StartTime)
	}
	if items[len(items)-1].StartTime != "2026-01-26T16:00:00Z" {
		t.Fatalf("unexpected last slot %q", items[len(items)-1].StartTime)
	}
	if items[0].EndTime != "2026-01-26T10:00:00Z" {
		t.Fatalf("unexpected first slot end %q", items[0].EndTime)
	}
}

func TestSlotsNonWorkingDayIsEmptyList(t *testing.T) {
	cfg := workingDayConfig()
	cfg.IsWorking = false
	schedules := &stubScheduleSource{cfg: cfg}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-25")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]" && body != "[]\n" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
	if schedules.offCalls != 0 {
		t.Fatalf("expected no time-off lookup for non-working day, got %d", schedules.offCalls)
	}
}

func TestSlotsFiltersBookedOverlaps(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	bookings := &stubBookingSource{busy: []model.Appointment{
		{
			StartTime: time.Date(2026, 1, 26, 10, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2026, 1, 26, 11, 0, 0, 0, time.UTC),
			Status:    "confirmed",
		},
	}}
	h := newTestHandler(schedules, bookings)

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26&step_minutes=60")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items := decodeSlots(t, rec)
	if len(items) != 7 {
		t.Fatalf("expected 7 slots around booking, got %d", len(items))
	}
	for _, it := range items {
		if it.StartTime == "2026-01-26T10:00:00Z" {
			t.Fatalf("booked slot leaked into response")
		}
	}
}

func TestSlotsUsesFixedStartsWhenConfigured(t *testing.T) {
	cfg := workingDayConfig()
	cfg.FixedStartTimes = []string{"10:00", "14:00"}
	schedules := &stubScheduleSource{cfg: cfg}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items := decodeSlots(t, rec)
	if len(items) != 2 {
		t.Fatalf("expected 2 fixed slots, got %d", len(items))
	}
	if items[0].StartTime != "2026-01-26T10:00:00Z" || items[1].StartTime != "2026-01-26T14:00:00Z" {
		t.Fatalf("unexpected fixed slots: %+v", items)
	}
}

func TestSlotsCachesDayConfig(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	h := newTestHandler(schedules, &stubBookingSource{})

	for i := 0; i < 3; i++ {
		rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	if schedules.cfgCalls != 1 {
		t.Fatalf("expected one repository read, got %d", schedules.cfgCalls)
	}
}

func TestSlotsQueryWindowCoversRequestedDay(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	wantFrom := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	if !schedules.lastFrom.Equal(wantFrom) {
		t.Fatalf("time-off window start = %v, want %v", schedules.lastFrom, wantFrom)
	}
	if !schedules.lastTo.Equal(wantFrom.Add(24 * time.Hour)) {
		t.Fatalf("time-off window end = %v, want %v", schedules.lastTo, wantFrom.Add(24*time.Hour))
	}
}

func TestSlotsRepoFailureIs500(t *testing.T) {
	schedules := &stubScheduleSource{cfgErr: errors.New("db down")}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSlotsBookingFailureIs500(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	bookings := &stubBookingSource{err: errors.New("db down")}
	h := newTestHandler(schedules, bookings)

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=2026-01-26")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSlotsUnknownDateIsEmpty(t *testing.T) {
	schedules := &stubScheduleSource{cfg: workingDayConfig()}
	h := newTestHandler(schedules, &stubBookingSource{})

	rec := doSlots(t, h, "business_id=b1&staff_id=s1&service_id=svc&date=not-a-date")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if items := decodeSlots(t, rec); len(items) != 0 {
		t.Fatalf("expected no slots for unparsable date, got %d", len(items))
	}
}
