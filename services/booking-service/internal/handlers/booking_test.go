package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/model"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/schedule"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]model.Appointment
	err  error
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]model.Appointment{}}
}

func (m *memStore) BusyTimes(_ context.Context, date time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var times []string
	for _, appt := range m.rows {
		if appt.Date.Equal(date) {
			times = append(times, appt.Slot)
		}
	}
	return times, nil
}

func (m *memStore) BusyCounts(_ context.Context, from, to time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	counts := map[string]int{}
	for _, appt := range m.rows {
		if !appt.Date.Before(from) && !appt.Date.After(to) {
			counts[appt.Date.Format(schedule.DateLayout)]++
		}
	}
	return counts, nil
}

func (m *memStore) Create(_ context.Context, appt *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	key := appt.Date.Format(schedule.DateLayout) + "|" + appt.Slot
	if _, exists := m.rows[key]; exists {
		return booking.ErrSlotTaken
	}
	m.rows[key] = *appt
	return nil
}

func (m *memStore) ListByUser(_ context.Context, userID string, _ int) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, appt := range m.rows {
		if appt.UserID == userID {
			out = append(out, appt)
		}
	}
	return out, nil
}

type staticIdentity struct {
	profile booking.Profile
	err     error
}

func (s *staticIdentity) CurrentProfile(context.Context) (booking.Profile, error) {
	if s.err != nil {
		return booking.Profile{}, s.err
	}
	return s.profile, nil
}

func newTestHandler(t *testing.T, store booking.Store, id booking.IdentityProvider) *BookingHandler {
	t.Helper()
	catalog, err := schedule.ParseCatalog("09:00,09:30,16:00")
	if err != nil {
		t.Fatalf("ParseCatalog failed: %v", err)
	}
	today, _ := time.Parse(schedule.DateLayout, "2026-02-05")
	svc := booking.NewService(store, id, slog.Default(), nil, booking.Config{
		Catalog:        catalog,
		ServiceCatalog: []string{"Análisis Bioquímicos", "Fitoterapia"},
		Location:       time.UTC,
		Now:            func() time.Time { return today },
	})
	return NewBookingHandler(svc, slog.Default(), nil)
}

func loggedIn() *staticIdentity {
	return &staticIdentity{profile: booking.Profile{ID: "user-1", FullName: "María García", Phone: "+34600000001"}}
}

func doBook(h *BookingHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/book", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Book(rec, req)
	return rec
}

func TestBookEndpoint_Created(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())

	rec := doBook(h, `{"service":"Análisis Bioquímicos","date":"2026-02-20","slot":"16:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp bookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.AppointmentID == "" || resp.Status != model.StatusConfirmed {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Date != "2026-02-20" || resp.Slot != "16:00" {
		t.Fatalf("unexpected echo: %+v", resp)
	}
}

func TestBookEndpoint_Conflict(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	body := `{"service":"Fitoterapia","date":"2026-02-20","slot":"09:00"}`

	if rec := doBook(h, body); rec.Code != http.StatusCreated {
		t.Fatalf("first booking: expected 201, got %d", rec.Code)
	}
	if rec := doBook(h, body); rec.Code != http.StatusConflict {
		t.Fatalf("second booking: expected 409, got %d", rec.Code)
	}
}

func TestBookEndpoint_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"past date", `{"service":"Fitoterapia","date":"2026-02-01","slot":"09:00"}`, http.StatusUnprocessableEntity},
		{"unknown slot", `{"service":"Fitoterapia","date":"2026-02-20","slot":"14:00"}`, http.StatusUnprocessableEntity},
		{"unknown service", `{"service":"Podología","date":"2026-02-20","slot":"09:00"}`, http.StatusUnprocessableEntity},
		{"missing fields", `{"service":"Fitoterapia"}`, http.StatusBadRequest},
		{"not json", `date=2026-02-20`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, newMemStore(), loggedIn())
			if rec := doBook(h, tc.body); rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBookEndpoint_Unauthenticated(t *testing.T) {
	h := newTestHandler(t, newMemStore(), &staticIdentity{err: booking.ErrUnauthenticated})
	rec := doBook(h, `{"service":"Fitoterapia","date":"2026-02-20","slot":"09:00"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBookEndpoint_StorageDown(t *testing.T) {
	store := newMemStore()
	store.err = context.DeadlineExceeded
	h := newTestHandler(t, store, loggedIn())
	rec := doBook(h, `{"service":"Fitoterapia","date":"2026-02-20","slot":"09:00"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSlotsEndpoint(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	if rec := doBook(h, `{"service":"Fitoterapia","date":"2026-02-20","slot":"09:30"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed booking failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?date=2026-02-20", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var slots []string
	if err := json.Unmarshal(rec.Body.Bytes(), &slots); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("expected 2 open slots, got %v", slots)
	}
	for _, s := range slots {
		if s == "09:30" {
			t.Fatal("booked slot listed as open")
		}
	}
}

func TestSlotsEndpoint_PastDate(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots?date=2026-01-01", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestSlotsEndpoint_MissingDate(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/slots", nil)
	rec := httptest.NewRecorder()
	h.Slots(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDaysEndpoint(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	// Fill 2026-02-10 (3-slot test catalog).
	for _, slot := range []string{"09:00", "09:30", "16:00"} {
		body := `{"service":"Fitoterapia","date":"2026-02-10","slot":"` + slot + `"}`
		if rec := doBook(h, body); rec.Code != http.StatusCreated {
			t.Fatalf("seed booking %s failed: %d", slot, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/public/days?from=2026-02-01&to=2026-02-28", nil)
	rec := httptest.NewRecorder()
	h.Days(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var days []dayItem
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	byDate := map[string]string{}
	for _, d := range days {
		byDate[d.Date] = d.Status
	}
	if byDate["2026-02-01"] != "past" || byDate["2026-02-10"] != "full" || byDate["2026-02-20"] != "open" {
		t.Fatalf("unexpected day statuses: %v", byDate)
	}
}

func TestListEndpoint(t *testing.T) {
	h := newTestHandler(t, newMemStore(), loggedIn())
	if rec := doBook(h, `{"service":"Fitoterapia","date":"2026-02-20","slot":"09:00"}`); rec.Code != http.StatusCreated {
		t.Fatalf("seed booking failed: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var items []appointmentItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(items) != 1 || items[0].Service != "Fitoterapia" {
		t.Fatalf("unexpected list: %+v", items)
	}
}
