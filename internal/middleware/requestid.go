// Package middleware provides HTTP middleware for the ledger service.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/daskhq/dask/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID tags every request with an ID: the client's X-Request-ID when
// present, a fresh UUID otherwise. The ID rides in the context for log
// correlation and is echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}
