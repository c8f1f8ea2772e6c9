package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/store"
	"github.com/mstrand/vanir/internal/telemetry"
)

// OrderService implements domain.OrderService.
type OrderService struct {
	store    store.Store
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	validate *validator.Validate
}

var _ domain.OrderService = (*OrderService)(nil)

// NewOrderService creates an order service.
func NewOrderService(st store.Store, logger *slog.Logger, metrics *telemetry.Metrics) *OrderService {
	return &OrderService{
		store:    st,
		logger:   logger,
		metrics:  metrics,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// newOrderNumber builds a human-readable order reference like
// ORD-20260828-4F7K. The UUID remains the canonical identifier; the number
// exists for emails and support conversations.
func newOrderNumber(now time.Time) string {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// buildOrder assembles an order record from an item snapshot without
// persisting it. Shared by Create and the checkout coordinator so both paths
// produce identical records.
func (s *OrderService) buildOrder(userID string, items []domain.OrderItem, delivery domain.DeliveryDetails) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.Invalid("order.create", "user id is required")
	}
	if len(items) == 0 {
		return domain.Order{}, domain.Invalid("order.create", "order must contain at least one item")
	}
	if err := s.validate.Struct(delivery); err != nil {
		return domain.Order{}, &domain.Error{
			Code:    domain.EINVALID,
			Op:      "order.create",
			Message: "Delivery details are incomplete or invalid",
			Err:     err,
		}
	}

	var total int64
	for _, it := range items {
		if it.Quantity <= 0 {
			return domain.Order{}, domain.Errorf(domain.EINVALID, "order.create",
				"quantity must be positive for product %s", it.ProductID)
		}
		if it.UnitPriceCents < 0 {
			return domain.Order{}, domain.Errorf(domain.EINVALID, "order.create",
				"unit price must not be negative for product %s", it.ProductID)
		}
		total += it.UnitPriceCents * it.Quantity
	}

	now := time.Now()
	return domain.Order{
		ID:          uuid.New().String(),
		OrderNumber: newOrderNumber(now),
		UserID:      userID,
		Items:       items,
		TotalCents:  total,
		Delivery:    delivery,
		Status:      domain.OrderStatusPending,
	}, nil
}

// Create persists a new pending order from an item snapshot. It touches no
// stock and no cart; the checkout coordinator owns those effects.
func (s *OrderService) Create(ctx context.Context, userID string, items []domain.OrderItem, delivery domain.DeliveryDetails) (*domain.Order, error) {
	order, err := s.buildOrder(userID, items, delivery)
	if err != nil {
		return nil, err
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		return nil, domain.Internal(err, "order.create", "failed to persist order")
	}

	s.metrics.OrdersCreated.Inc()
	s.metrics.OrderValue.Observe(float64(order.TotalCents))
	s.metrics.OrderItemCount.Observe(float64(len(order.Items)))
	s.logger.Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", userID,
		"total_cents", order.TotalCents)

	return &order, nil
}

// GetOrder retrieves a single order by id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves a user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.store.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "order.list", "failed to list orders")
	}
	return orders, nil
}

// UpdateStatus moves an order along the forward-only transition chain.
// Cancelling an order that still holds reserved stock (pending or confirmed)
// returns that stock to the ledger in the same atomic unit as the status
// change.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, newStatus domain.OrderStatus) (*domain.Order, error) {
	if !domain.ValidStatus(newStatus) {
		return nil, domain.Errorf(domain.EINVALID, "order.update_status", "unknown order status: %s", newStatus)
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.Status, newStatus) {
		return nil, domain.Errorf(domain.ECONFLICT, "order.update_status",
			"cannot transition order from %s to %s", order.Status, newStatus)
	}

	var restock []domain.StockRequest
	if newStatus == domain.OrderStatusCancelled {
		requests := make([]domain.StockRequest, len(order.Items))
		for i, it := range order.Items {
			requests[i] = domain.StockRequest{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		restock = domain.MergeStockRequests(requests)
	}

	// The store re-checks the stored status under the same atomic unit, so a
	// concurrent transition loses cleanly instead of double-applying.
	if err := s.store.UpdateOrderStatus(ctx, orderID, order.Status, newStatus, restock); err != nil {
		return nil, err
	}

	s.logger.Info("order status updated",
		"order_id", orderID,
		"from", order.Status,
		"to", newStatus,
		"restocked", len(restock) > 0)

	updated, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
