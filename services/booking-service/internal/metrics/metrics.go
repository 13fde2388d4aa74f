package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics counts booking outcomes and availability lookups.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	availabilityTotal  *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmaline",
			Subsystem: "booking",
			Name:      "bookings_total",
			Help:      "Booking attempts by outcome",
		}, []string{"result"}),
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "farmaline",
			Subsystem: "booking",
			Name:      "availability_queries_total",
			Help:      "Availability queries by kind",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.availabilityTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveAvailabilityQuery(kind string) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(kind).Inc()
}
