package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/farmaciavalero/farmaline/libs/db"
	"github.com/farmaciavalero/farmaline/libs/outbox"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/model"
	"github.com/farmaciavalero/farmaline/services/booking-service/internal/schedule"
)

const pgUniqueViolation = "23505"

// EventAppointmentConfirmed is published when a booking commits.
const EventAppointmentConfirmed = "booking.appointment.confirmed.v1"

// AppointmentRepository persists appointments. The appointments table
// carries a partial unique index over (appointment_date, slot_time) for
// non-cancelled rows; that index is the module's double-booking guard.
type AppointmentRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, events *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, events: events}
}

var _ booking.Store = (*AppointmentRepository)(nil)

// BusyTimes projects the booked time-of-day values for one date,
// excluding cancelled rows.
func (r *AppointmentRepository) BusyTimes(ctx context.Context, date time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(slot_time, 'HH24:MI')
		FROM appointments
		WHERE appointment_date = $1
			AND status <> $2
		ORDER BY slot_time
	`, date, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return times, nil
}

// BusyCounts returns per-day booked counts over [from, to], keyed by
// "2006-01-02". Days without bookings are absent.
func (r *AppointmentRepository) BusyCounts(ctx context.Context, from, to time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(appointment_date, 'YYYY-MM-DD'), count(*)
		FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2
			AND status <> $3
		GROUP BY appointment_date
	`, from, to, model.StatusCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, err
		}
		counts[day] = n
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return counts, nil
}

// Create inserts the appointment and its confirmation event in one
// transaction. A unique-index violation means a concurrent writer took
// the slot between the caller's busy check and this insert.
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments
			(id, user_id, patient_name, patient_phone, service, appointment_date, slot_time, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, appt.ID, appt.UserID, appt.PatientName, appt.PatientPhone, appt.Service,
		appt.Date, appt.Slot, appt.Status, appt.CreatedAt)
	if err != nil {
		return translateInsertErr(err)
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"patient_name":   appt.PatientName,
		"patient_phone":  appt.PatientPhone,
		"service":        appt.Service,
		"date":           appt.Date.Format(schedule.DateLayout),
		"slot":           appt.Slot,
		"created_at":     appt.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.events.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     EventAppointmentConfirmed,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *AppointmentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, patient_name, patient_phone, service,
			appointment_date, to_char(slot_time, 'HH24:MI'), status, created_at
		FROM appointments
		WHERE user_id = $1
		ORDER BY appointment_date DESC, slot_time DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(
			&appt.ID,
			&appt.UserID,
			&appt.PatientName,
			&appt.PatientPhone,
			&appt.Service,
			&appt.Date,
			&appt.Slot,
			&appt.Status,
			&appt.CreatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func translateInsertErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("appointments insert: %w", booking.ErrSlotTaken)
	}
	return err
}
