package domain

import "time"

// Product domain errors.
var (
	ErrProductNotFound    = &Error{Code: ENOTFOUND, Message: "Product not found"}
	ErrProductUnavailable = &Error{Code: EINVALID, Message: "Product is not available for purchase"}
)

// Product is a catalog entry. Stock is the authoritative available count and
// is mutated only through the inventory ledger's decrement/increment
// operations; everything else is owned by the (out of scope) catalog admin.
type Product struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	Stock          int64     `json:"stock"`
	Available      bool      `json:"available"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
