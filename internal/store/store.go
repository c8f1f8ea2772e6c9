// Package store defines the single polymorphic storage capability used by
// the cart, inventory, order and checkout services. One implementation per
// backend (postgres, memory) is selected at process start; call sites never
// branch on the backend.
package store

import (
	"context"

	"github.com/mstrand/vanir/internal/domain"
)

// Store is the persistence capability contract.
//
// Implementations must guarantee:
//   - DecrementStock and IncrementStock apply their item set atomically and
//     DecrementStock rejects the whole set (with *InsufficientStockError)
//     if any product would go below zero.
//   - CompleteCheckout applies stock decrement, order insert and cart clear
//     inside one durability boundary: all three or none.
//   - Concurrent decrements against the same product are serialized, so two
//     racing checkouts can never both succeed past the remaining stock.
type Store interface {
	// Products / inventory ledger

	GetProduct(ctx context.Context, id string) (domain.Product, error)
	UpsertProduct(ctx context.Context, p domain.Product) error
	// GetStock returns current stock for the given product ids. Unknown ids
	// are omitted from the result.
	GetStock(ctx context.Context, ids []string) (map[string]int64, error)
	DecrementStock(ctx context.Context, items []domain.StockRequest) error
	IncrementStock(ctx context.Context, items []domain.StockRequest) error

	// Cart

	// GetCart returns the user's cart; a user with no cart gets an empty
	// cart (lazy creation happens on first AddCartLine).
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	// AddCartLine merges quantity into an existing (product, variant) line
	// or inserts a new one, creating the cart row if needed.
	AddCartLine(ctx context.Context, userID, productID, variantID string, quantity int64) (domain.CartLine, error)
	GetCartLine(ctx context.Context, userID, lineID string) (domain.CartLine, error)
	SetCartLineQuantity(ctx context.Context, userID, lineID string, quantity int64) error
	// DeleteCartLine reports whether a line was actually removed.
	DeleteCartLine(ctx context.Context, userID, lineID string) (bool, error)
	ClearCart(ctx context.Context, userID string) error

	// Checkout atomic unit

	// CompleteCheckout executes the atomic commit: conditional stock
	// decrement for every order item, insertion of the order with its item
	// snapshot, and deletion of the user's cart lines. On a stock shortfall
	// nothing is applied and *InsufficientStockError is returned.
	CompleteCheckout(ctx context.Context, order domain.Order) (domain.Order, error)

	// Orders

	InsertOrder(ctx context.Context, order domain.Order) error
	GetOrder(ctx context.Context, id string) (domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID string) ([]domain.Order, error)
	// UpdateOrderStatus transitions id from expected status `from` to `to`,
	// optionally returning stock (restock) in the same atomic unit. Fails
	// with ErrInvalidStatusTransition if the stored status is no longer
	// `from`.
	UpdateOrderStatus(ctx context.Context, id string, from, to domain.OrderStatus, restock []domain.StockRequest) error
}
