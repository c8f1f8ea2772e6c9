package domain

import (
	"context"
	"time"
)

// Cart domain errors.
var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartLineNotFound = &Error{Code: ENOTFOUND, Message: "Cart line not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrEmptyCart        = &Error{Code: EINVALID, Message: "Cart is empty"}
)

// CartService provides business logic for shopping cart operations.
type CartService interface {
	// AddItem adds a product (and optional variant) to the user's cart,
	// creating the cart lazily on first use. If a line for the same
	// (product, variant) pair exists its quantity is increased instead of
	// duplicating the line.
	AddItem(ctx context.Context, userID, productID, variantID string, quantity int64) (*CartSummary, error)

	// SetItemQuantity sets the quantity of a cart line.
	// Quantity 0 removes the line; negative quantities are rejected.
	SetItemQuantity(ctx context.Context, userID, lineID string, quantity int64) (*CartSummary, error)

	// RemoveItem removes a cart line. Removing a non-existent line is a
	// no-op success so the operation is idempotent.
	RemoveItem(ctx context.Context, userID, lineID string) (*CartSummary, error)

	// GetSummary retrieves the cart with per-line detail and totals computed
	// from current product prices. A user with no cart gets an empty summary.
	GetSummary(ctx context.Context, userID string) (*CartSummary, error)

	// Clear removes all lines from the cart. Clearing an empty cart is a
	// no-op. Outside of tests this is called only by the checkout
	// coordinator after a successful commit.
	Clear(ctx context.Context, userID string) error
}

// CartLine is one entry in a cart: a product reference, an optional variant
// identifier ("" means no variant) and a positive quantity. A line whose
// quantity would drop to 0 is deleted, never stored.
type CartLine struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	VariantID string    `json:"variantId,omitempty"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Cart is the mutable pre-purchase collection of lines for one user.
// It is created lazily on first add and cleared, not deleted, on checkout.
type Cart struct {
	UserID    string     `json:"userId"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CartSummary aggregates the cart with product detail and calculated totals.
// Amounts use current catalog prices; the cart never snapshots price.
type CartSummary struct {
	UserID        string         `json:"userId"`
	Lines         []CartLineView `json:"lines"`
	ItemCount     int64          `json:"itemCount"`
	SubtotalCents int64          `json:"subtotalCents"`
}

// CartLineView is a cart line joined with current product details.
type CartLineView struct {
	CartLine
	ProductName       string `json:"productName"`
	UnitPriceCents    int64  `json:"unitPriceCents"`
	LineSubtotalCents int64  `json:"lineSubtotalCents"`
}
