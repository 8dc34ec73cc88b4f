package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/slotwise/slotwise/services/availability-service/internal/availability"
	"github.com/slotwise/slotwise/services/availability-service/internal/cache"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/storage"
)

// ScheduleSource is the slice of the schedule repository the availability
// endpoint reads.
type ScheduleSource interface {
	GetDayConfig(ctx context.Context, businessID, staffID, serviceID, date string) (storage.DayConfig, error)
	ListTimeOff(ctx context.Context, businessID, staffID string, from, to time.Time, limit int) ([]storage.TimeOff, error)
}

// BookingSource provides the occupancy view of existing appointments.
type BookingSource interface {
	ListBusyIntervals(ctx context.Context, businessID, staffID string, from, to time.Time) ([]model.Appointment, error)
}

type AvailabilityHandler struct {
	schedules ScheduleSource
	bookings  BookingSource
	dayCache  *cache.TTLCache
	logger    *slog.Logger
	stepMin   int
	now       func() time.Time
}

func NewAvailabilityHandler(schedules ScheduleSource, bookings BookingSource, dayCache *cache.TTLCache, logger *slog.Logger, defaultStepMin int) *AvailabilityHandler {
	if defaultStepMin <= 0 {
		defaultStepMin = 15
	}
	return &AvailabilityHandler{
		schedules: schedules,
		bookings:  bookings,
		dayCache:  dayCache,
		logger:    logger,
		stepMin:   defaultStepMin,
		now:       time.Now,
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// DayConfigKey is the schedule-cache key for one staff/service/date triple.
// BusinessKeyPrefix covers every key of one tenant for bulk invalidation.
func DayConfigKey(businessID, staffID, serviceID, date string) string {
	return "dayconfig:" + businessID + ":" + staffID + ":" + serviceID + ":" + date
}

func BusinessKeyPrefix(businessID string) string {
	return "dayconfig:" + businessID + ":"
}

// Slots handles GET /api/v1/availability. Every "no relevant schedule data"
// condition answers with an empty list, not an error; only dependency
// failures surface as 5xx.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	businessID := strings.TrimSpace(r.URL.Query().Get("business_id"))
	staffID := strings.TrimSpace(r.URL.Query().Get("staff_id"))
	serviceID := strings.TrimSpace(r.URL.Query().Get("service_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if businessID == "" || staffID == "" || serviceID == "" || dateStr == "" {
		http.Error(w, "business_id, staff_id, service_id, and date are required", http.StatusBadRequest)
		return
	}

	stepMin := h.stepMin
	if raw := strings.TrimSpace(r.URL.Query().Get("step_minutes")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n > 240 {
			http.Error(w, "invalid step_minutes", http.StatusBadRequest)
			return
		}
		// Non-positive values degrade to an empty result downstream.
		stepMin = n
	}

	ctx := r.Context()
	key := DayConfigKey(businessID, staffID, serviceID, dateStr)
	cfg, ok := h.cachedDayConfig(key)
	if !ok {
		var err error
		cfg, err = h.schedules.GetDayConfig(ctx, businessID, staffID, serviceID, dateStr)
		if err != nil {
			h.logger.Error("day config load failed", "err", err, "business_id", businessID)
			http.Error(w, "failed to load schedule", http.StatusInternalServerError)
			return
		}
		h.dayCache.Set(key, cfg)
	}

	if !cfg.IsWorking || cfg.DurationMins <= 0 {
		writeSlots(w, nil)
		return
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	anchor, ok := availability.AnchorDay(dateStr, loc)
	if !ok {
		writeSlots(w, nil)
		return
	}
	dayEnd := anchor.Add(24 * time.Hour)

	timeOff, err := h.schedules.ListTimeOff(ctx, businessID, staffID, anchor, dayEnd, 500)
	if err != nil {
		http.Error(w, "failed to load time off", http.StatusInternalServerError)
		return
	}
	busy, err := h.bookings.ListBusyIntervals(ctx, businessID, staffID, anchor, dayEnd)
	if err != nil {
		http.Error(w, "failed to load booked slots", http.StatusInternalServerError)
		return
	}

	breaks := make([]availability.BreakWindow, 0, len(cfg.Breaks))
	for _, b := range cfg.Breaks {
		breaks = append(breaks, availability.BreakWindow{StartMinute: b.StartMinute, EndMinute: b.EndMinute})
	}
	offs := make([]availability.Interval, 0, len(timeOff))
	for _, t := range timeOff {
		offs = append(offs, availability.Interval{Start: t.StartTime, End: t.EndTime})
	}
	bookings := make([]availability.Booking, 0, len(busy))
	for _, a := range busy {
		bookings = append(bookings, availability.Booking{Start: a.StartTime, End: a.EndTime, Status: a.Status})
	}

	sched := availability.Schedule{
		Location: loc,
		Week: map[time.Weekday]availability.WorkingDay{
			anchor.Weekday(): {StartMinute: cfg.StartMinute, EndMinute: cfg.EndMinute, Breaks: breaks},
		},
		TimeOff: offs,
	}
	variant := &availability.Variant{
		DurationMin:     cfg.DurationMins,
		BufferBeforeMin: cfg.BufferBeforeMins,
		BufferAfterMin:  cfg.BufferAfterMins,
		FixedStarts:     cfg.FixedStartTimes,
	}

	var slots []availability.Slot
	if len(variant.FixedStarts) > 0 {
		slots = availability.FixedTimeSlots(sched, variant, dateStr, bookings, h.now().UTC())
	} else {
		slots = availability.AvailableSlots(sched, variant, dateStr, bookings, stepMin, h.now().UTC())
	}
	writeSlots(w, slots)
}

func (h *AvailabilityHandler) cachedDayConfig(key string) (storage.DayConfig, bool) {
	v, ok := h.dayCache.Get(key)
	if !ok {
		return storage.DayConfig{}, false
	}
	cfg, ok := v.(storage.DayConfig)
	return cfg, ok
}

func writeSlots(w http.ResponseWriter, slots []availability.Slot) {
	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	body, err := json.Marshal(items)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
