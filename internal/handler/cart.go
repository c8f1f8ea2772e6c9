package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mstrand/vanir/internal/domain"
)

// CartHandler serves the cart endpoints.
type CartHandler struct {
	cart domain.CartService
}

// NewCartHandler creates a cart handler.
func NewCartHandler(cart domain.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity int64 `json:"quantity"`
}

// Get handles GET /cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	summary, err := h.cart.GetSummary(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AddItem handles POST /cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductID == "" {
		writeError(w, r, domain.Invalid("cart.add_item", "productId is required"))
		return
	}
	summary, err := h.cart.AddItem(r.Context(), user, req.ProductID, req.VariantID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// SetQuantity handles PATCH /cart/items/{lineID}.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req setQuantityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := h.cart.SetItemQuantity(r.Context(), user, chi.URLParam(r, "lineID"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RemoveItem handles DELETE /cart/items/{lineID}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	summary, err := h.cart.RemoveItem(r.Context(), user, chi.URLParam(r, "lineID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
