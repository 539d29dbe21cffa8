// Package middleware provides reusable HTTP middleware for request IDs,
// panic recovery, Prometheus metrics, and request timeouts.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/stockguides/site/pkg/logger"
)

const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// RequestID propagates an inbound X-Request-ID, or mints a UUID, and stores
// it in the request context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

// GetRequestID returns the request id carried by r.
func GetRequestID(r *http.Request) string {
	return logger.RequestID(r.Context())
}
