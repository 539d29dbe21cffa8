package origin

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		forwarded string
		tls       bool
		want      string
	}{
		{name: "plain", host: "example.com", want: "http://example.com"},
		{name: "tls", host: "example.com", tls: true, want: "https://example.com"},
		{name: "forwarded https", host: "alias.example", forwarded: "https", want: "https://alias.example"},
		{name: "forwarded list", host: "a.example", forwarded: "HTTPS, http", want: "https://a.example"},
		{name: "forwarded downgrade", host: "a.example", forwarded: "http", tls: true, want: "http://a.example"},
		{name: "forwarded junk ignored", host: "a.example:8080", forwarded: "gopher", want: "http://a.example:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/sitemap-index", nil)
			r.Host = tt.host
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-Proto", tt.forwarded)
			}
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			} else {
				r.TLS = nil
			}
			if got := FromRequest(r); got != tt.want {
				t.Errorf("FromRequest = %q, want %q", got, tt.want)
			}
		})
	}
}
