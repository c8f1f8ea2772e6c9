package handler

import (
	"net/http"

	"github.com/mstrand/vanir/internal/domain"
)

// CheckoutHandler serves POST /checkout.
type CheckoutHandler struct {
	checkout domain.CheckoutService
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(checkout domain.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type checkoutRequest struct {
	Delivery domain.DeliveryDetails `json:"delivery"`
}

// Checkout handles POST /checkout. A completed checkout returns 201 with the
// order reference; an insufficient-stock rejection returns 409 with the
// per-product shortfall list.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.checkout.Checkout(r.Context(), user, req.Delivery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
