package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/farmaciavalero/farmaline/services/booking-service/internal/booking"
)

func TestTranslateInsertErr_UniqueViolation(t *testing.T) {
	err := translateInsertErr(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_slot_unique"})
	if !errors.Is(err, booking.ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
}

func TestTranslateInsertErr_WrappedUniqueViolation(t *testing.T) {
	inner := fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"})
	if !errors.Is(translateInsertErr(inner), booking.ErrSlotTaken) {
		t.Fatal("expected wrapped unique violation to map to ErrSlotTaken")
	}
}

func TestTranslateInsertErr_OtherErrors(t *testing.T) {
	cases := []error{
		&pgconn.PgError{Code: "23503"}, // foreign key
		errors.New("connection refused"),
	}
	for _, err := range cases {
		if errors.Is(translateInsertErr(err), booking.ErrSlotTaken) {
			t.Fatalf("error %v must not map to ErrSlotTaken", err)
		}
	}
}
