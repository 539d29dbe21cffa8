// Package router wires every public route and applies the middleware chain
// (RequestID → Timeout → Recover → Metrics).
package router

import (
	"net/http"
	"time"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/metadata"
	"github.com/stockguides/site/internal/page"
	"github.com/stockguides/site/internal/preview"
	"github.com/stockguides/site/internal/sitemap"
	"github.com/stockguides/site/pkg/health"
	"github.com/stockguides/site/pkg/metrics"
	pkgmw "github.com/stockguides/site/pkg/middleware"
)

// Handlers groups the route handlers. Health may be nil.
type Handlers struct {
	Metadata *metadata.Handler
	Preview  *preview.Handler
	Sitemap  *sitemap.Handler
	Pages    *page.Handler
	Health   *health.Checker
}

// New builds the site handler.
//
// Route table:
//
//	GET /metadata/{kind}/{slug}   → metadata JSON
//	GET /metadata/{kind}?slug=    → metadata JSON
//	GET /preview/{kind}/{slug}    → 1200x630 PNG
//	GET /preview/{kind}?slug=     → 1200x630 PNG
//	GET /sitemap/{kind}           → XML or HTML sitemap
//	GET /sitemap-index            → XML or HTML sitemap index
//	GET /robots.txt               → points crawlers at the index
//	GET /                         → home listing
//	GET /guides, GET /brokers     → section listings
//	GET /guides/{slug}            → guide page
//	GET /brokers/{slug}           → broker review page
//	GET /healthz, GET /readyz     → probes
func New(h Handlers, m *metrics.Metrics, requestTimeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /metadata/{kind}/{slug}", h.Metadata.Get)
	mux.HandleFunc("GET /metadata/{kind}", h.Metadata.Get)

	mux.HandleFunc("GET /preview/{kind}/{slug}", h.Preview.Get)
	mux.HandleFunc("GET /preview/{kind}", h.Preview.Get)

	mux.HandleFunc("GET /sitemap/{kind}", h.Sitemap.Sitemap)
	mux.HandleFunc("GET /sitemap-index", h.Sitemap.Index)
	mux.HandleFunc("GET /robots.txt", h.Sitemap.Robots)

	mux.HandleFunc("GET /{$}", h.Pages.Home)
	mux.HandleFunc("GET /guides", h.Pages.Section(content.KindGuide))
	mux.HandleFunc("GET /brokers", h.Pages.Section(content.KindBroker))
	mux.HandleFunc("GET /guides/{slug}", h.Pages.For(content.KindGuide))
	mux.HandleFunc("GET /brokers/{slug}", h.Pages.For(content.KindBroker))

	if h.Health != nil {
		mux.HandleFunc("GET /healthz", h.Health.LiveHandler())
		mux.HandleFunc("GET /readyz", h.Health.ReadyHandler())
	}

	// Applied inside-out: request → RequestID → Timeout → Recover → Metrics → mux.
	var chain http.Handler = mux
	chain = pkgmw.Metrics(m)(chain)
	chain = pkgmw.Recover(chain)
	chain = pkgmw.Timeout(requestTimeout)(chain)
	chain = pkgmw.RequestID(chain)
	return chain
}
