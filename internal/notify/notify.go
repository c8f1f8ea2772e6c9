// Package notify delivers change notifications to downstream caches and
// read paths. Delivery is fire-and-forget: failures are logged, never
// propagated, and never fail the operation that produced the change.
package notify

import "context"

// Event type discriminators on the wire.
const (
	TypeInventoryChanged = "inventory-changed"
	TypeCartCleared      = "cart-cleared"
)

// InventoryChangedEvent signals that stock changed for the listed products.
type InventoryChangedEvent struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"productIds"`
}

// CartClearedEvent signals that a user's cart was emptied.
type CartClearedEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Publisher tells dependent caches/read paths that state changed.
type Publisher interface {
	InventoryChanged(ctx context.Context, productIDs []string)
	CartCleared(ctx context.Context, userID string)
}

// Fanout forwards each notification to every configured publisher.
type Fanout []Publisher

func (f Fanout) InventoryChanged(ctx context.Context, productIDs []string) {
	for _, p := range f {
		p.InventoryChanged(ctx, productIDs)
	}
}

func (f Fanout) CartCleared(ctx context.Context, userID string) {
	for _, p := range f {
		p.CartCleared(ctx, userID)
	}
}

// Noop discards all notifications. Used when no broker/cache is configured.
type Noop struct{}

func (Noop) InventoryChanged(ctx context.Context, productIDs []string) {}
func (Noop) CartCleared(ctx context.Context, userID string)           {}
