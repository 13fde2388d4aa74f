package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/metrics"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/schedule"
)

type BookingHandler struct {
	svc     *booking.Service
	logger  *slog.Logger
	metrics *metrics.BookingMetrics
}

func NewBookingHandler(svc *booking.Service, logger *slog.Logger, m *metrics.BookingMetrics) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger, metrics: m}
}

type bookRequest struct {
	Service string `json:"service"`
	Date    string `json:"date"`
	Slot    string `json:"slot"`
}

type bookResponse struct {
	AppointmentID string `json:"appointment_id"`
	Service       string `json:"service"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Status        string `json:"status"`
}

type dayItem struct {
	Date   string `json:"date"`
	Status string `json:"status"`
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	Service       string `json:"service"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// Days classifies each day in the requested range for calendar rendering.
func (h *BookingHandler) Days(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		http.Error(w, "from and to are required", http.StatusBadRequest)
		return
	}

	days, err := h.svc.MonthAvailability(r.Context(), from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.observeAvailability("days")

	items := make([]dayItem, 0, len(days))
	for _, d := range days {
		items = append(items, dayItem{Date: d.Date, Status: d.Status.String()})
	}
	writeJSON(w, http.StatusOK, items)
}

// Slots lists the open half-hour slots for one date.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.AvailableSlots(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.observeAvailability("slots")

	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Service = strings.TrimSpace(req.Service)
	req.Date = strings.TrimSpace(req.Date)
	req.Slot = strings.TrimSpace(req.Slot)
	if req.Service == "" || req.Date == "" || req.Slot == "" {
		http.Error(w, "service, date, and slot are required", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		Service: req.Service,
		Date:    req.Date,
		Slot:    req.Slot,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, bookResponse{
		AppointmentID: appt.ID,
		Service:       appt.Service,
		Date:          appt.Date.Format(schedule.DateLayout),
		Slot:          appt.Slot,
		Status:        appt.Status,
	})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	appts, err := h.svc.MyAppointments(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentItem{
			AppointmentID: appt.ID,
			Service:       appt.Service,
			Date:          appt.Date.Format(schedule.DateLayout),
			Slot:          appt.Slot,
			Status:        appt.Status,
			CreatedAt:     appt.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// writeError maps domain errors onto response codes. Anything unmapped is
// reported as a storage problem rather than leaking internals.
func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrUnauthenticated):
		http.Error(w, "authentication required", http.StatusUnauthorized)
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, "slot already booked", http.StatusConflict)
	case errors.Is(err, booking.ErrInvalidDate):
		http.Error(w, "invalid or past date", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrInvalidSlot):
		http.Error(w, "slot is not in the catalog", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrInvalidService):
		http.Error(w, "unknown service", http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrStorageUnavailable):
		h.logger.Error("booking storage unavailable", "err", err)
		http.Error(w, "service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("booking request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *BookingHandler) observeAvailability(kind string) {
	if h.metrics != nil {
		h.metrics.ObserveAvailabilityQuery(kind)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
