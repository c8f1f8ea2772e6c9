package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports backend liveness. nil means no backend to check.
type Pinger func(ctx context.Context) error

// Health serves GET /healthz. With a pinger configured it reports 503 when
// the storage backend is unreachable.
func Health(ping Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
