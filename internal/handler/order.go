package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mstrand/vanir/internal/domain"
)

// OrderHandler serves the order endpoints.
type OrderHandler struct {
	orders domain.OrderService
}

// NewOrderHandler creates an order handler.
func NewOrderHandler(orders domain.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// Get handles GET /orders/{orderID}. Orders are only visible to their owner.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if order.UserID != user {
		// Hide the existence of other users' orders.
		writeError(w, r, domain.ErrOrderNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// UpdateStatus handles POST /orders/{orderID}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	orderID := chi.URLParam(r, "orderID")
	existing, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if existing.UserID != user {
		writeError(w, r, domain.ErrOrderNotFound)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}
