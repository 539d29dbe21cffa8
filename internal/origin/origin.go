// Package origin derives the public scheme+host of a request so absolute
// URLs stay correct under any host alias or behind a TLS-terminating proxy.
package origin

import (
	"net/http"
	"strings"
)

// FromRequest returns "scheme://host" for r. X-Forwarded-Proto wins over the
// connection's own TLS state; the first value of a comma list is used.
func FromRequest(r *http.Request) string {
	return Scheme(r) + "://" + r.Host
}

// Scheme returns "http" or "https".
func Scheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		proto = strings.ToLower(strings.TrimSpace(strings.Split(proto, ",")[0]))
		if proto == "http" || proto == "https" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
