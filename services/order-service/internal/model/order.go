package model

import "time"

const (
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusDelivered = "delivered"
)

// ValidTransition reports whether an order may move from one status to
// the next. Orders only move forward.
func ValidTransition(from, to string) bool {
	switch from {
	case StatusPreparing:
		return to == StatusReady
	case StatusReady:
		return to == StatusDelivered
	default:
		return false
	}
}

type Order struct {
	ID             string
	UserID         string
	Items          []string
	Status         string
	DeliveryMethod string
	PaymentMethod  string
	CreatedAt      time.Time
}
