package service

import (
	"context"
	"log/slog"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/store"
	"github.com/mstrand/vanir/internal/telemetry"
)

// CartService implements domain.CartService.
type CartService struct {
	store   store.Store
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

var _ domain.CartService = (*CartService)(nil)

// NewCartService creates a cart service.
func NewCartService(st store.Store, logger *slog.Logger, metrics *telemetry.Metrics) *CartService {
	return &CartService{store: st, logger: logger, metrics: metrics}
}

// AddItem adds quantity of a product (and optional variant) to the user's
// cart, merging into an existing line for the same (product, variant) pair.
// The product must exist and be available for sale; stock is not checked
// here, adding to cart reserves nothing.
func (s *CartService) AddItem(ctx context.Context, userID, productID, variantID string, quantity int64) (*domain.CartSummary, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Available {
		return nil, domain.ErrProductUnavailable
	}

	line, err := s.store.AddCartLine(ctx, userID, productID, variantID, quantity)
	if err != nil {
		return nil, domain.Internal(err, "cart.add_item", "failed to add cart line")
	}

	s.metrics.CartUpdated.WithLabelValues("add").Inc()
	s.logger.Info("cart item added",
		"user_id", userID,
		"product_id", productID,
		"line_id", line.ID,
		"quantity", line.Quantity)

	return s.GetSummary(ctx, userID)
}

// SetItemQuantity replaces the quantity of a cart line. Quantity 0 removes
// the line; negative quantities are rejected. Positive quantities are checked
// against current stock so a shopper learns about a shortage while editing,
// not at checkout. The check is advisory; checkout re-validates under the
// commit.
func (s *CartService) SetItemQuantity(ctx context.Context, userID, lineID string, quantity int64) (*domain.CartSummary, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if quantity == 0 {
		return s.RemoveItem(ctx, userID, lineID)
	}

	line, err := s.store.GetCartLine(ctx, userID, lineID)
	if err != nil {
		return nil, err
	}
	stock, err := s.store.GetStock(ctx, []string{line.ProductID})
	if err != nil {
		return nil, domain.Internal(err, "cart.set_quantity", "failed to read stock")
	}
	if available := stock[line.ProductID]; available < quantity {
		return nil, &domain.InsufficientStockError{Items: []domain.StockShortfall{{
			ProductID: line.ProductID,
			Available: available,
			Requested: quantity,
		}}}
	}
	if err := s.store.SetCartLineQuantity(ctx, userID, lineID, quantity); err != nil {
		return nil, err
	}

	s.metrics.CartUpdated.WithLabelValues("set_quantity").Inc()
	s.logger.Info("cart quantity updated",
		"user_id", userID,
		"line_id", lineID,
		"quantity", quantity)

	return s.GetSummary(ctx, userID)
}

// RemoveItem deletes a cart line. Removing a line that does not exist is a
// no-op success, so retried deletes stay idempotent.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) (*domain.CartSummary, error) {
	removed, err := s.store.DeleteCartLine(ctx, userID, lineID)
	if err != nil {
		return nil, domain.Internal(err, "cart.remove_item", "failed to remove cart line")
	}
	if removed {
		s.metrics.CartUpdated.WithLabelValues("remove").Inc()
		s.logger.Info("cart item removed", "user_id", userID, "line_id", lineID)
	}
	return s.GetSummary(ctx, userID)
}

// GetSummary loads the cart and joins each line with current product detail
// and totals. Prices are always the catalog's current prices; carts never
// snapshot price.
func (s *CartService) GetSummary(ctx context.Context, userID string) (*domain.CartSummary, error) {
	cart, err := s.store.GetCart(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, "cart.get_summary", "failed to load cart")
	}

	summary := &domain.CartSummary{
		UserID: userID,
		Lines:  make([]domain.CartLineView, 0, len(cart.Lines)),
	}
	for _, line := range cart.Lines {
		product, err := s.store.GetProduct(ctx, line.ProductID)
		if err != nil {
			// A product removed from the catalog after being carted renders
			// the whole summary unusable; surface it rather than hiding the
			// line.
			return nil, err
		}
		summary.Lines = append(summary.Lines, domain.CartLineView{
			CartLine:          line,
			ProductName:       product.Name,
			UnitPriceCents:    product.UnitPriceCents,
			LineSubtotalCents: product.UnitPriceCents * line.Quantity,
		})
		summary.ItemCount += line.Quantity
		summary.SubtotalCents += product.UnitPriceCents * line.Quantity
	}
	return summary, nil
}

// Clear removes every line from the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	if err := s.store.ClearCart(ctx, userID); err != nil {
		return domain.Internal(err, "cart.clear", "failed to clear cart")
	}
	s.metrics.CartUpdated.WithLabelValues("clear").Inc()
	return nil
}
