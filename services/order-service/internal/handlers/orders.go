package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/farmaciavalero/farmaline/libs/auth"
	"github.com/farmaciavalero/farmaline/services/order-service/internal/model"
	"github.com/farmaciavalero/farmaline/services/order-service/internal/storage"
)

const maxOrderItems = 50

type OrderHandler struct {
	repo      *storage.OrderRepository
	logger    *slog.Logger
	jwtSecret string
	staffKey  string
}

func NewOrderHandler(repo *storage.OrderRepository, logger *slog.Logger, jwtSecret, staffKey string) *OrderHandler {
	return &OrderHandler{repo: repo, logger: logger, jwtSecret: jwtSecret, staffKey: staffKey}
}

type placeOrderRequest struct {
	Items          []string `json:"items"`
	DeliveryMethod string   `json:"delivery_method"`
	PaymentMethod  string   `json:"payment_method"`
}

type orderResponse struct {
	OrderID        string   `json:"order_id"`
	Items          []string `json:"items"`
	Status         string   `json:"status"`
	DeliveryMethod string   `json:"delivery_method,omitempty"`
	PaymentMethod  string   `json:"payment_method,omitempty"`
	CreatedAt      string   `json:"created_at"`
}

type updateStatusRequest struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

func (h *OrderHandler) requesterID(r *http.Request) (string, bool) {
	token, ok := auth.BearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", false
	}
	claims, err := auth.ParseAndVerifyHS256(token, h.jwtSecret)
	if err != nil || claims.Sub == "" {
		return "", false
	}
	return claims.Sub, true
}

func (h *OrderHandler) Place(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.requesterID(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	var items []string
	for _, item := range req.Items {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		http.Error(w, "at least one item required", http.StatusBadRequest)
		return
	}
	if len(items) > maxOrderItems {
		http.Error(w, "too many items", http.StatusUnprocessableEntity)
		return
	}

	order := &model.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Items:          items,
		Status:         model.StatusPreparing,
		DeliveryMethod: strings.TrimSpace(req.DeliveryMethod),
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		CreatedAt:      time.Now().UTC(),
	}
	if order.PaymentMethod == "" {
		order.PaymentMethod = "store_or_bizum"
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("order create failed", "err", err)
		http.Error(w, "failed to place order", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("order placed", "order_id", order.ID, "items", len(order.Items))
	writeJSON(w, http.StatusCreated, toResponse(*order))
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.requesterID(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	orders, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("order list failed", "err", err)
		http.Error(w, "failed to list orders", http.StatusServiceUnavailable)
		return
	}

	items := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items = append(items, toResponse(o))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, ok := h.requesterID(r)
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	orderID := strings.TrimSpace(r.URL.Query().Get("order_id"))
	if orderID == "" {
		http.Error(w, "order_id required", http.StatusBadRequest)
		return
	}

	order, err := h.repo.GetByID(r.Context(), userID, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.logger.Error("order lookup failed", "err", err)
		http.Error(w, "failed to load order", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(order))
}

// UpdateStatus is the counter-staff endpoint, gated by a shared key
// rather than a patient token.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.staffKey == "" || r.Header.Get("X-Staff-Key") != h.staffKey {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.Status = strings.TrimSpace(req.Status)
	if req.OrderID == "" || req.Status == "" {
		http.Error(w, "order_id and status required", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStatus(r.Context(), req.OrderID, req.Status); err != nil {
		switch {
		case errors.Is(err, storage.ErrOrderNotFound):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.Is(err, storage.ErrInvalidTransition):
			http.Error(w, "invalid status transition", http.StatusConflict)
		default:
			h.logger.Error("order status update failed", "err", err)
			http.Error(w, "failed to update order", http.StatusServiceUnavailable)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toResponse(o model.Order) orderResponse {
	return orderResponse{
		OrderID:        o.ID,
		Items:          o.Items,
		Status:         o.Status,
		DeliveryMethod: o.DeliveryMethod,
		PaymentMethod:  o.PaymentMethod,
		CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
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
