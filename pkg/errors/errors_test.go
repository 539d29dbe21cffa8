package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error keeps its status", BadRequestf("slug is required"), http.StatusBadRequest},
		{"wrapped not found", fmt.Errorf("loading: %w", NotFoundf("guide %q not found", "x")), http.StatusNotFound},
		{"bare upstream sentinel", fmt.Errorf("fetch: %w", ErrUpstreamUnavailable), http.StatusServiceUnavailable},
		{"timeout sentinel", ErrTimeout, http.StatusGatewayTimeout},
		{"render failure", New(ErrRenderFailure, http.StatusInternalServerError, "png"), http.StatusInternalServerError},
		{"unclassified", context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatusCode(tt.err); got != tt.want {
				t.Errorf("HTTPStatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(BadRequestf("invalid slug %q", "A B")); got != `invalid slug "A B"` {
		t.Errorf("client error message = %q", got)
	}
	if got := PublicMessage(fmt.Errorf("db: %w", ErrInternal)); got != "internal server error" {
		t.Errorf("server error leaked: %q", got)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFoundf("missing"))
	if !Is(err, ErrNotFound) {
		t.Error("expected ErrNotFound in chain")
	}
	var appErr *AppError
	if !As(err, &appErr) || appErr.Message != "missing" {
		t.Errorf("As() = %v", appErr)
	}
}
