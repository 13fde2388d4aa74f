package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBooking(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("confirmed")
	m.ObserveBooking("confirmed")
	m.ObserveBooking("slot_taken")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("confirmed")); got != 2 {
		t.Fatalf("expected 2 confirmed, got %v", got)
	}
	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("slot_taken")); got != 1 {
		t.Fatalf("expected 1 slot_taken, got %v", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("confirmed")
	m.ObserveAvailabilityQuery("slots")
}
