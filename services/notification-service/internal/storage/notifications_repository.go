package storage

import (
	"context"
	"encoding/json"

	"github.com/farmaciavalero/farmaline/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is the audit record of one outbound email.
type Notification struct {
	AggregateID string
	EventType   string
	Recipient   string
	Subject     string
	Payload     map[string]any
	Status      string
}

type NotificationsRepository struct {
	pool *db.Pool
}

func NewNotificationsRepository(pool *db.Pool) *NotificationsRepository {
	return &NotificationsRepository{pool: pool}
}

func (r *NotificationsRepository) Insert(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO notifications (aggregate_id, event_type, recipient, subject, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.AggregateID, n.EventType, n.Recipient, n.Subject, payload, n.Status)
	return err
}
