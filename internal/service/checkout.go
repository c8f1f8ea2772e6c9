package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/notify"
	"github.com/mstrand/vanir/internal/store"
	"github.com/mstrand/vanir/internal/telemetry"
)

// CheckoutService is the transaction coordinator that turns a cart into an
// order. It walks a fixed sequence of states (validating, reserving,
// committing) and delegates the single atomic commit to the store, so a
// crash at any point leaves either the full effect or none of it.
type CheckoutService struct {
	store     store.Store
	cart      domain.CartService
	inventory domain.InventoryService
	orders    *OrderService
	publisher notify.Publisher
	logger    *slog.Logger
	metrics   *telemetry.Metrics
}

var _ domain.CheckoutService = (*CheckoutService)(nil)

// NewCheckoutService creates a checkout coordinator.
func NewCheckoutService(
	st store.Store,
	cart domain.CartService,
	inventory domain.InventoryService,
	orders *OrderService,
	publisher notify.Publisher,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
) *CheckoutService {
	return &CheckoutService{
		store:     st,
		cart:      cart,
		inventory: inventory,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// retryRead runs a read-only operation and retries it exactly once if it
// fails with a system fault. Only idempotent reads go through here; the
// commit itself is called exactly once, always.
func retryRead[T any](fn func() (T, error)) (T, error) {
	out, err := fn()
	if err != nil && domain.IsCode(err, domain.EINTERNAL) {
		out, err = fn()
	}
	return out, err
}

// Checkout runs the full cart-to-order flow.
//
// Flow: validate delivery details and load the cart (validating), check that
// stock covers every line (reserving), then hand the store one atomic unit
// that decrements stock, inserts the order and clears the cart (committing).
// The stock check repeats inside the commit under exclusive row access, so
// passing the reserving state never guarantees the commit; it only rejects
// hopeless checkouts before any write.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, delivery domain.DeliveryDetails) (*domain.CheckoutResult, error) {
	s.metrics.CheckoutStarted.Inc()
	log := s.logger.With("user_id", userID)

	state := domain.CheckoutValidating
	log.Info("checkout state", "state", state)

	summary, err := retryRead(func() (*domain.CartSummary, error) {
		return s.cart.GetSummary(ctx, userID)
	})
	if err != nil {
		return nil, s.fail(log, state, err)
	}
	if len(summary.Lines) == 0 {
		s.metrics.CheckoutRejected.WithLabelValues("empty_cart").Inc()
		log.Info("checkout state", "state", domain.CheckoutRejectedEmptyCart)
		return nil, domain.ErrEmptyCart
	}

	// Build the order snapshot from the summary's current prices before the
	// commit so a mid-checkout price change cannot split the totals.
	items := make([]domain.OrderItem, len(summary.Lines))
	for i, line := range summary.Lines {
		items[i] = domain.OrderItem{
			ProductID:      line.ProductID,
			VariantID:      line.VariantID,
			ProductName:    line.ProductName,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		}
	}
	order, err := s.orders.buildOrder(userID, items, delivery)
	if err != nil {
		return nil, s.fail(log, state, err)
	}

	state = domain.CheckoutReserving
	log.Info("checkout state", "state", state)

	requests := make([]domain.StockRequest, len(items))
	for i, it := range items {
		requests[i] = domain.StockRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	_, err = retryRead(func() (struct{}, error) {
		return struct{}{}, s.inventory.ValidateStock(ctx, requests)
	})
	if err != nil {
		return nil, s.fail(log, state, err)
	}

	state = domain.CheckoutCommitting
	log.Info("checkout state", "state", state, "order_id", order.ID)

	// The commit must not be abandoned half-acknowledged: once we decide to
	// commit, a caller hanging up no longer cancels the transaction. The
	// commit is issued exactly once and never retried, because a retry after
	// an ambiguous failure could decrement stock twice.
	committed, err := s.store.CompleteCheckout(context.WithoutCancel(ctx), order)
	if err != nil {
		return nil, s.fail(log, state, err)
	}

	s.metrics.CheckoutCompleted.Inc()
	s.metrics.OrdersCreated.Inc()
	s.metrics.OrderValue.Observe(float64(committed.TotalCents))
	s.metrics.OrderItemCount.Observe(float64(len(committed.Items)))
	log.Info("checkout state", "state", domain.CheckoutCompleted,
		"order_id", committed.ID,
		"order_number", committed.OrderNumber,
		"total_cents", committed.TotalCents)

	// Post-commit notifications are best-effort and never affect the result.
	productIDs := make([]string, len(requests))
	for i, r := range requests {
		productIDs[i] = r.ProductID
	}
	s.publisher.InventoryChanged(ctx, productIDs)
	s.publisher.CartCleared(ctx, userID)

	return &domain.CheckoutResult{
		OrderID:     committed.ID,
		OrderNumber: committed.OrderNumber,
		TotalCents:  committed.TotalCents,
	}, nil
}

// fail records the terminal state for a checkout error and passes the error
// through unchanged. Business rejections keep their specific codes; anything
// else counts as a system fault.
func (s *CheckoutService) fail(log *slog.Logger, at domain.CheckoutState, err error) error {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		s.metrics.CheckoutRejected.WithLabelValues("insufficient_stock").Inc()
		log.Info("checkout state", "state", domain.CheckoutRejectedStock,
			"short_items", len(stockErr.Items))
	case domain.IsCode(err, domain.EINVALID), domain.IsCode(err, domain.ENOTFOUND), domain.IsCode(err, domain.ECONFLICT):
		s.metrics.CheckoutRejected.WithLabelValues("validation").Inc()
		log.Info("checkout state", "state", domain.CheckoutFailed, "at", at, "error", err)
	default:
		s.metrics.CheckoutFailed.Inc()
		log.Error("checkout state", "state", domain.CheckoutFailed, "at", at, "error", err)
	}
	return err
}
