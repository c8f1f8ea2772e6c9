// Package service implements the business logic behind the cart, inventory,
// order and checkout contracts declared in the domain package. Services hold
// no state of their own; everything durable lives behind store.Store.
package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/store"
)

// InventoryService implements domain.InventoryService on top of the store's
// stock ledger.
type InventoryService struct {
	store  store.Store
	logger *slog.Logger
}

var _ domain.InventoryService = (*InventoryService)(nil)

// NewInventoryService creates an inventory service.
func NewInventoryService(st store.Store, logger *slog.Logger) *InventoryService {
	return &InventoryService{store: st, logger: logger}
}

// ValidateStock checks, without reserving anything, that current stock covers
// every requested line. Every short product is reported in one pass; a
// product missing from the catalog entirely is a not-found instead.
func (s *InventoryService) ValidateStock(ctx context.Context, items []domain.StockRequest) error {
	merged := domain.MergeStockRequests(items)
	if len(merged) == 0 {
		return nil
	}

	for _, it := range merged {
		if it.Quantity <= 0 {
			return domain.Errorf(domain.EINVALID, "inventory.validate_stock",
				"quantity must be positive for product %s", it.ProductID)
		}
	}

	ids := make([]string, len(merged))
	for i, it := range merged {
		ids[i] = it.ProductID
	}
	stock, err := s.store.GetStock(ctx, ids)
	if err != nil {
		return domain.Internal(err, "inventory.validate_stock", "failed to read stock")
	}

	var shortfalls []domain.StockShortfall
	for _, it := range merged {
		available, ok := stock[it.ProductID]
		if !ok {
			return domain.NotFound("inventory.validate_stock", "product", it.ProductID)
		}
		if available < it.Quantity {
			shortfalls = append(shortfalls, domain.StockShortfall{
				ProductID: it.ProductID,
				Available: available,
				Requested: it.Quantity,
			})
		}
	}
	if len(shortfalls) > 0 {
		sort.Slice(shortfalls, func(i, j int) bool { return shortfalls[i].ProductID < shortfalls[j].ProductID })
		return &domain.InsufficientStockError{Items: shortfalls}
	}
	return nil
}

// DecrementStock atomically decreases stock for the whole set.
func (s *InventoryService) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	merged := domain.MergeStockRequests(items)
	if len(merged) == 0 {
		return nil
	}
	for _, it := range merged {
		if it.Quantity <= 0 {
			return domain.Errorf(domain.EINVALID, "inventory.decrement_stock",
				"quantity must be positive for product %s", it.ProductID)
		}
	}
	if err := s.store.DecrementStock(ctx, merged); err != nil {
		return err
	}
	s.logger.Debug("stock decremented", "products", len(merged))
	return nil
}

// IncrementStock atomically returns stock to the ledger.
func (s *InventoryService) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	merged := domain.MergeStockRequests(items)
	if len(merged) == 0 {
		return nil
	}
	for _, it := range merged {
		if it.Quantity <= 0 {
			return domain.Errorf(domain.EINVALID, "inventory.increment_stock",
				"quantity must be positive for product %s", it.ProductID)
		}
	}
	if err := s.store.IncrementStock(ctx, merged); err != nil {
		return err
	}
	s.logger.Debug("stock restocked", "products", len(merged))
	return nil
}
