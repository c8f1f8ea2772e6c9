package domain

import (
	"context"
	"time"
)

// Order domain errors.
var (
	ErrOrderNotFound           = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrInvalidStatusTransition = &Error{Code: ECONFLICT, Message: "Invalid order status transition"}
	ErrInvalidOrderInput       = &Error{Code: EINVALID, Message: "Order input is missing required fields"}
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderStatusNext encodes the forward-only transition chain
// pending -> confirmed -> shipped -> delivered, with cancelled reachable
// from pending or confirmed only.
var orderStatusNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:   {OrderStatusConfirmed: true, OrderStatusCancelled: true},
	OrderStatusConfirmed: {OrderStatusShipped: true, OrderStatusCancelled: true},
	OrderStatusShipped:   {OrderStatusDelivered: true},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to OrderStatus) bool {
	return orderStatusNext[from][to]
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	_, ok := orderStatusNext[s]
	return ok
}

// OrderItem is an immutable snapshot of one purchased line: product id,
// quantity, and the unit price captured at commit time. Later catalog price
// changes never alter past orders.
type OrderItem struct {
	ProductID      string `json:"productId"`
	VariantID      string `json:"variantId,omitempty"`
	ProductName    string `json:"productName"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

// Order is the durable record produced by a successful checkout. The item
// snapshot never mutates; only Status transitions after creation.
type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	UserID      string          `json:"userId"`
	Items       []OrderItem     `json:"items"`
	TotalCents  int64           `json:"totalCents"`
	Delivery    DeliveryDetails `json:"delivery"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OrderService provides business logic for order records.
type OrderService interface {
	// Create persists a new pending order from an item snapshot. Pure
	// creation: no stock or cart effects. Fails with EINVALID on missing
	// delivery fields or an empty item list.
	Create(ctx context.Context, userID string, items []OrderItem, delivery DeliveryDetails) (*Order, error)

	// GetOrder retrieves a single order by id.
	GetOrder(ctx context.Context, orderID string) (*Order, error)

	// ListOrders retrieves a user's orders, newest first.
	ListOrders(ctx context.Context, userID string) ([]Order, error)

	// UpdateStatus moves an order along the allowed transition chain.
	// Cancelling a pending or confirmed order releases its reserved stock
	// back to the inventory ledger in the same atomic unit.
	UpdateStatus(ctx context.Context, orderID string, newStatus OrderStatus) (*Order, error)
}
