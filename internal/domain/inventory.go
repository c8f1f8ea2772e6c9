package domain

import "context"

// StockRequest is one (product, quantity) pair in a ledger operation.
type StockRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// InventoryService is the authoritative per-product stock counter.
// Stock is a non-negative integer; a decrement that would drive any product
// below zero is rejected wholesale, never partially applied.
type InventoryService interface {
	// ValidateStock is a read-only check that current stock covers every
	// requested line. Returns *InsufficientStockError listing every short
	// product, or nil. Stock may still change before a later decrement;
	// DecrementStock re-validates.
	ValidateStock(ctx context.Context, items []StockRequest) error

	// DecrementStock atomically decreases stock for the whole set: either
	// every product's stock drops by its requested quantity or none do.
	// Each row is re-checked under an exclusive update at decrement time to
	// close the race window between check and commit.
	DecrementStock(ctx context.Context, items []StockRequest) error

	// IncrementStock atomically returns stock to the ledger, used when a
	// reserved order is cancelled and by seeding.
	IncrementStock(ctx context.Context, items []StockRequest) error
}

// MergeStockRequests collapses duplicate product ids, summing quantities.
// Cart lines are unique per (product, variant) so two variants of the same
// product must be combined before hitting the ledger.
func MergeStockRequests(items []StockRequest) []StockRequest {
	index := make(map[string]int, len(items))
	merged := make([]StockRequest, 0, len(items))
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		index[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return merged
}
