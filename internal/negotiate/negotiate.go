// Package negotiate decides whether a request wants the machine (XML) or
// human (HTML) rendering of the same document.
package negotiate

import (
	"net/http"
	"strconv"
	"strings"
)

// Format is the negotiated representation.
type Format int

const (
	Human Format = iota
	Machine
)

func (f Format) String() string {
	if f == Machine {
		return "xml"
	}
	return "html"
}

// Reason records which signal decided the format.
type Reason string

const (
	ReasonOverride Reason = "override"
	ReasonAccept   Reason = "accept"
	ReasonCrawler  Reason = "crawler"
	ReasonDefault  Reason = "default"
)

// Negotiator is safe for concurrent use; it holds only the crawler token
// list, lower-cased at construction.
type Negotiator struct {
	tokens []string
}

func New(crawlerTokens []string) *Negotiator {
	tokens := make([]string, 0, len(crawlerTokens))
	for _, t := range crawlerTokens {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tokens = append(tokens, t)
		}
	}
	return &Negotiator{tokens: tokens}
}

// Negotiate applies, first match wins: an explicit ?format= override, an
// Accept header naming XML but not HTML, a known crawler User-Agent. Anything
// else is Human.
func (n *Negotiator) Negotiate(r *http.Request) Format {
	f, _ := n.Decide(r)
	return f
}

// Decide is Negotiate plus the deciding signal.
func (n *Negotiator) Decide(r *http.Request) (Format, Reason) {
	switch strings.ToLower(r.URL.Query().Get("format")) {
	case "xml":
		return Machine, ReasonOverride
	case "html":
		return Human, ReasonOverride
	}
	if xml, html := scanAccept(r.Header.Values("Accept")); xml && !html {
		return Machine, ReasonAccept
	}
	if n.IsCrawler(r.UserAgent()) {
		return Machine, ReasonCrawler
	}
	return Human, ReasonDefault
}

// IsCrawler reports whether ua contains any crawler token, ignoring case.
func (n *Negotiator) IsCrawler(ua string) bool {
	if ua == "" {
		return false
	}
	ua = strings.ToLower(ua)
	for _, t := range n.tokens {
		if strings.Contains(ua, t) {
			return true
		}
	}
	return false
}

// scanAccept reports whether the Accept values admit an XML type and an
// HTML type. Ranges with q=0 are refused and wildcards count as neither.
func scanAccept(values []string) (xml, html bool) {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			mediaType, params, _ := strings.Cut(part, ";")
			mediaType = strings.ToLower(strings.TrimSpace(mediaType))
			if refused(params) {
				continue
			}
			switch mediaType {
			case "text/html", "application/xhtml+xml":
				html = true
			case "application/xml", "text/xml":
				xml = true
			}
		}
	}
	return xml, html
}

func refused(params string) bool {
	for _, p := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.ToLower(strings.TrimSpace(k)) != "q" {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil && q <= 0
	}
	return false
}
