package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/farmaciavalero/farmaline/libs/db"
	"github.com/farmaciavalero/farmaline/libs/outbox"
	"github.com/farmaciavalero/farmaline/services/order-service/internal/model"
)

const EventOrderPlaced = "orders.order.placed.v1"

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type OrderRepository struct {
	pool   *db.Pool
	events *outbox.Repository
}

func NewOrderRepository(pool *db.Pool, events *outbox.Repository) *OrderRepository {
	return &OrderRepository{pool: pool, events: events}
}

// Create inserts the order and its placed event in one transaction.
func (r *OrderRepository) Create(ctx context.Context, order *model.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, items, status, delivery_method, payment_method, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, order.ID, order.UserID, order.Items, order.Status,
		order.DeliveryMethod, order.PaymentMethod, order.CreatedAt)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"order_id":        order.ID,
		"user_id":         order.UserID,
		"items":           order.Items,
		"delivery_method": order.DeliveryMethod,
		"payment_method":  order.PaymentMethod,
		"created_at":      order.CreatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := r.events.Insert(ctx, tx, outbox.Event{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     EventOrderPlaced,
		Payload:       payload,
	}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, items, status, delivery_method, payment_method, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Items, &o.Status,
			&o.DeliveryMethod, &o.PaymentMethod, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return orders, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, userID, id string) (model.Order, error) {
	var o model.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, items, status, delivery_method, payment_method, created_at
		FROM orders
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&o.ID, &o.UserID, &o.Items, &o.Status,
		&o.DeliveryMethod, &o.PaymentMethod, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, ErrOrderNotFound
		}
		return model.Order{}, err
	}
	return o, nil
}

// UpdateStatus moves an order along preparing -> ready -> delivered. The
// current status is locked and checked inside the transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, next string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return err
	}
	if !model.ValidTransition(current, next) {
		return ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, id, next); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
