package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mstrand/vanir/internal/store"
)

// ProductHandler serves product read endpoints. Catalog management itself is
// out of scope; this exists so clients can show availability.
type ProductHandler struct {
	store store.Store
}

// NewProductHandler creates a product handler.
func NewProductHandler(st store.Store) *ProductHandler {
	return &ProductHandler{store: st}
}

// Get handles GET /products/{productID}.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}
