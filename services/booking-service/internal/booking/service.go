// Package booking implements the appointment scheduling core: busy-set
// resolution, day availability, and the validate-then-persist booking
// transaction. It holds no state of its own; everything lives in the store
// or is passed in.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/farmaciavalero/farmaline/services/booking-service/internal/metrics"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/model"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/schedule"
)

// Store is the persisted appointment store. Create must atomically insert
// the appointment together with its outbox event, and must return an error
// wrapping ErrSlotTaken when the store's uniqueness constraint on
// (date, slot) rejects the write.
type Store interface {
	BusyTimes(ctx context.Context, date time.Time) ([]string, error)
	BusyCounts(ctx context.Context, from, to time.Time) (map[string]int, error)
	Create(ctx context.Context, appt *model.Appointment) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error)
}

// Profile is the requester identity captured onto the appointment.
type Profile struct {
	ID       string
	FullName string
	Phone    string
}

// IdentityProvider resolves the current requester. Implementations return
// an error wrapping ErrUnauthenticated when no valid identity is present.
type IdentityProvider interface {
	CurrentProfile(ctx context.Context) (Profile, error)
}

type Service struct {
	catalog  *schedule.Catalog
	offered  map[string]struct{}
	store    Store
	identity IdentityProvider
	logger   *slog.Logger
	metrics  *metrics.BookingMetrics
	loc      *time.Location
	now      func() time.Time
}

type Config struct {
	Catalog        *schedule.Catalog
	ServiceCatalog []string
	Location       *time.Location
	Now            func() time.Time // test seam; defaults to time.Now
}

func NewService(store Store, identity IdentityProvider, logger *slog.Logger, m *metrics.BookingMetrics, cfg Config) *Service {
	if cfg.Catalog == nil {
		cfg.Catalog = schedule.MustDefault()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	offered := make(map[string]struct{}, len(cfg.ServiceCatalog))
	for _, s := range cfg.ServiceCatalog {
		offered[s] = struct{}{}
	}
	return &Service{
		catalog:  cfg.Catalog,
		offered:  offered,
		store:    store,
		identity: identity,
		logger:   logger,
		metrics:  m,
		loc:      cfg.Location,
		now:      cfg.Now,
	}
}

func (s *Service) Catalog() *schedule.Catalog {
	return s.catalog
}

// today is the current calendar day in the pharmacy's timezone.
func (s *Service) today() time.Time {
	return schedule.DateOnly(s.now().In(s.loc))
}

type DayAvailability struct {
	Date   string
	Status schedule.DayStatus
}

// MonthAvailability classifies every date in [from, to] for calendar
// rendering. Past days short-circuit; the rest use one grouped busy-count
// query instead of a per-day round trip.
func (s *Service) MonthAvailability(ctx context.Context, from, to string) ([]DayAvailability, error) {
	start, err := s.parseDate(from)
	if err != nil {
		return nil, ErrInvalidDate
	}
	end, err := s.parseDate(to)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if end.Before(start) || end.Sub(start) > 62*24*time.Hour {
		return nil, ErrInvalidDate
	}

	counts, err := s.store.BusyCounts(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	today := s.today()
	var days []DayAvailability
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := d.Format(schedule.DateLayout)
		days = append(days, DayAvailability{
			Date:   key,
			Status: schedule.ClassifyDay(d, today, counts[key], s.catalog.Len()),
		})
	}
	return days, nil
}

// AvailableSlots resolves the busy set for date and subtracts it from the
// catalog. Past or malformed dates are rejected before touching the store.
func (s *Service) AvailableSlots(ctx context.Context, date string) ([]string, error) {
	day, err := s.parseDate(date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if day.Before(s.today()) {
		return nil, ErrInvalidDate
	}

	busy, err := s.busySet(ctx, day)
	if err != nil {
		return nil, err
	}
	return s.catalog.Open(busy), nil
}

type BookRequest struct {
	Service string
	Date    string // "2006-01-02"
	Slot    string // "15:04"
}

// Book runs the booking transaction: resolve identity, validate the
// request, check the busy set, then persist. A concurrent booking of the
// same (date, slot) loses at the store's uniqueness constraint and is
// reported as ErrSlotTaken, exactly like a pre-write conflict.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	profile, err := s.identity.CurrentProfile(ctx)
	if err != nil {
		s.observe("unauthenticated")
		return nil, err
	}

	day, err := s.parseDate(req.Date)
	if err != nil {
		s.observe("invalid_date")
		return nil, ErrInvalidDate
	}
	if day.Before(s.today()) {
		s.observe("invalid_date")
		return nil, ErrInvalidDate
	}
	if !s.catalog.Contains(req.Slot) {
		s.observe("invalid_slot")
		return nil, ErrInvalidSlot
	}
	if _, ok := s.offered[req.Service]; !ok {
		s.observe("invalid_service")
		return nil, ErrInvalidService
	}

	busy, err := s.busySet(ctx, day)
	if err != nil {
		s.observe("storage_error")
		return nil, err
	}
	if _, taken := busy[req.Slot]; taken {
		s.observe("slot_taken")
		return nil, ErrSlotTaken
	}

	appt := &model.Appointment{
		ID:           uuid.NewString(),
		UserID:       profile.ID,
		PatientName:  profile.FullName,
		PatientPhone: profile.Phone,
		Service:      req.Service,
		Date:         day,
		Slot:         req.Slot,
		Status:       model.StatusConfirmed,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.store.Create(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// Lost the race to a concurrent writer.
			s.observe("slot_taken")
			return nil, ErrSlotTaken
		}
		s.observe("storage_error")
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	s.observe("confirmed")
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"date", appt.Date.Format(schedule.DateLayout),
		"slot", appt.Slot,
		"service", appt.Service,
	)
	return appt, nil
}

// MyAppointments lists the requester's booking history, newest first.
func (s *Service) MyAppointments(ctx context.Context, limit int) ([]model.Appointment, error) {
	profile, err := s.identity.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.store.ListByUser(ctx, profile.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return appts, nil
}

// busySet fails closed: a store error surfaces as ErrStorageUnavailable,
// never as an empty (all free) set.
func (s *Service) busySet(ctx context.Context, day time.Time) (map[string]struct{}, error) {
	times, err := s.store.BusyTimes(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	busy := make(map[string]struct{}, len(times))
	for _, t := range times {
		busy[t] = struct{}{}
	}
	return busy, nil
}

func (s *Service) parseDate(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(schedule.DateLayout, raw, s.loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(result)
	}
}
