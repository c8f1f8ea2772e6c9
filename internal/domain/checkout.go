package domain

import "context"

// CheckoutService converts a user's cart into a durable order.
type CheckoutService interface {
	// Checkout runs the full cart-to-order flow for the user: validate the
	// cart and stock, then atomically decrement inventory, create the order
	// record and clear the cart. All three effects apply together or not at
	// all. Returns *InsufficientStockError when stock cannot cover the cart,
	// ErrEmptyCart for an empty cart, and an EINTERNAL error when nothing
	// was persisted due to a system fault.
	Checkout(ctx context.Context, userID string, delivery DeliveryDetails) (*CheckoutResult, error)
}

// DeliveryDetails is the customer/delivery snapshot captured on the order.
// Validated with struct tags before any state is touched.
type DeliveryDetails struct {
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,min=5"`
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city" validate:"required"`
	PostalCode   string `json:"postalCode" validate:"required"`
	Country      string `json:"country" validate:"required,iso3166_1_alpha2"`
}

// CheckoutResult is returned to the caller on a completed checkout.
type CheckoutResult struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	TotalCents  int64  `json:"totalCents"`
}

// CheckoutState labels the coordinator's position in the checkout flow.
// States advance Idle -> Validating -> Reserving -> Committing -> Completed;
// the remaining values are terminal failure exits.
type CheckoutState string

const (
	CheckoutIdle               CheckoutState = "idle"
	CheckoutValidating         CheckoutState = "validating"
	CheckoutReserving          CheckoutState = "reserving"
	CheckoutCommitting         CheckoutState = "committing"
	CheckoutCompleted          CheckoutState = "completed"
	CheckoutRejectedEmptyCart  CheckoutState = "rejected_empty_cart"
	CheckoutRejectedStock      CheckoutState = "rejected_insufficient_stock"
	CheckoutFailed             CheckoutState = "failed"
)
