package sitemap

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/stockguides/site/internal/events"
	"github.com/stockguides/site/internal/negotiate"
	"github.com/stockguides/site/internal/origin"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
	"github.com/stockguides/site/pkg/metrics"
)

const (
	contentTypeXML  = "application/xml; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"
)

// Handler serves the sitemaps, the sitemap index and robots.txt.
type Handler struct {
	agg        *Aggregator
	negotiator *negotiate.Negotiator
	siteName   string
	metrics    *metrics.Metrics
	tracker    events.Tracker
	logger     *slog.Logger
}

func NewHandler(agg *Aggregator, n *negotiate.Negotiator, siteName string, m *metrics.Metrics, tracker events.Tracker) *Handler {
	if tracker == nil {
		tracker = events.Discard
	}
	return &Handler{
		agg:        agg,
		negotiator: n,
		siteName:   siteName,
		metrics:    m,
		tracker:    tracker,
		logger:     slog.Default().With("component", "sitemap-handler"),
	}
}

// Sitemap serves GET /sitemap/{kind}.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind := r.PathValue("kind")
	set, err := h.agg.Build(r.Context(), kind, origin.FromRequest(r))
	if err != nil {
		h.fail(w, r, kind, err)
		return
	}
	h.write(w, r, set, start)
}

// Index serves GET /sitemap-index.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	set, err := h.agg.Index(r.Context(), origin.FromRequest(r))
	if err != nil {
		h.fail(w, r, "index", err)
		return
	}
	h.write(w, r, set, start)
}

// Robots serves GET /robots.txt.
func (h *Handler) Robots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "User-agent: *\nAllow: /\n\nSitemap: %s\n", IndexURL(origin.FromRequest(r)))
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, set Set, start time.Time) {
	format, reason := h.negotiator.Decide(r)

	var (
		body []byte
		err  error
	)
	if format == negotiate.Machine {
		body, err = RenderXML(set)
		w.Header().Set("Content-Type", contentTypeXML)
	} else {
		body, err = RenderHTML(set, h.siteName)
		w.Header().Set("Content-Type", contentTypeHTML)
	}
	if err != nil {
		w.Header().Del("Content-Type")
		h.fail(w, r, set.Kind, err)
		return
	}

	h.logger.Debug("sitemap rendered",
		"kind", set.Kind,
		"format", format.String(),
		"reason", reason,
		"entries", len(set.Entries),
		"request_id", logger.RequestID(r.Context()),
	)
	h.metrics.ObserveSitemap(set.Kind, format.String(), len(set.Entries))
	h.track(r, set.Kind, format.String(), "ok", start)

	w.Header().Set("Vary", "Accept, User-Agent")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, kind string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Artifact(r.Context(), kind, "", "sitemap").Error("sitemap build failed", "error", err)
	}
	h.track(r, kind, "", "error", time.Time{})
	http.Error(w, apperrors.PublicMessage(err), status)
}

func (h *Handler) track(r *http.Request, kind, format, outcome string, start time.Time) {
	ev := events.New(events.ArtifactSitemap, kind, "", outcome)
	ev.Format = format
	if !start.IsZero() {
		ev.LatencyMs = time.Since(start).Milliseconds()
	}
	ev.RequestID = logger.RequestID(r.Context())
	h.tracker.Track(ev)
}
