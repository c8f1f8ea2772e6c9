// Package handler exposes the checkout core over HTTP/JSON. The caller
// identity comes from the X-User-ID header; there is no session layer here,
// an upstream gateway is expected to authenticate and set the header.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mstrand/vanir/internal/domain"
	"github.com/mstrand/vanir/internal/middleware"
)

// userIDHeader carries the authenticated caller identity.
const userIDHeader = "X-User-ID"

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string                  `json:"kind"`
	Message string                  `json:"message"`
	Items   []domain.StockShortfall `json:"items,omitempty"`
}

// codeStatus maps domain error codes to HTTP status codes.
var codeStatus = map[string]int{
	domain.EINVALID:  http.StatusBadRequest,
	domain.EUNAUTH:   http.StatusUnauthorized,
	domain.ENOTFOUND: http.StatusNotFound,
	domain.ECONFLICT: http.StatusConflict,
	domain.ESTOCK:    http.StatusConflict,
	domain.EINTERNAL: http.StatusInternalServerError,
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a domain error to the error envelope. Insufficient-stock
// errors carry the per-product shortfall list; internal errors are logged
// with full detail but surface only a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	detail := errorDetail{
		Kind:    code,
		Message: domain.ErrorMessage(err),
	}
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		detail.Items = stockErr.Items
	}

	if code == domain.EINTERNAL {
		middleware.GetLogger(r.Context()).Error("request failed",
			slog.String("error", err.Error()))
	}

	writeJSON(w, status, errorBody{Error: detail})
}

// userID extracts the caller identity, writing a 401 when absent.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		writeError(w, r, &domain.Error{
			Code:    domain.EUNAUTH,
			Message: "Missing " + userIDHeader + " header",
		})
		return "", false
	}
	return id, true
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("handler.decode", "invalid JSON request body")
	}
	return nil
}
