// Package preview synthesizes the 1200x630 social preview image of a guide
// or broker review. Rendering always degrades to a branded fallback image;
// an error response is produced only when the fallback itself cannot be
// painted.
package preview

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockguides/site/internal/events"
	"github.com/stockguides/site/internal/metadata"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
	"github.com/stockguides/site/pkg/metrics"
	"github.com/stockguides/site/pkg/tracing"
)

// Outcome names the terminal state of one render.
type Outcome string

const (
	OutcomeThemed   Outcome = "themed"
	OutcomeFallback Outcome = "fallback"
	OutcomeError    Outcome = "error"
)

const (
	stageFetch    = "fetch_metadata"
	stageCompose  = "compose"
	stageFallback = "fallback"

	contentTypePNG  = "image/png"
	contentTypeText = "text/plain; charset=utf-8"
	errorBody       = "failed to render preview image"
)

// Result is a finished response body with its status.
type Result struct {
	Outcome     Outcome
	Status      int
	ContentType string
	Body        []byte
}

// Renderer runs fetch -> compose, dropping to the fallback on any failure.
type Renderer struct {
	source   metadata.Source
	composer Composer
	site     Identity
	metrics  *metrics.Metrics
	tracker  events.Tracker
	logger   *slog.Logger
}

func NewRenderer(source metadata.Source, composer Composer, site Identity, m *metrics.Metrics, tracker events.Tracker) *Renderer {
	if tracker == nil {
		tracker = events.Discard
	}
	return &Renderer{
		source:   source,
		composer: composer,
		site:     site,
		metrics:  m,
		tracker:  tracker,
		logger:   slog.Default().With("component", "preview-renderer"),
	}
}

// Render produces the preview for req. It never returns an error; the
// Result carries a 500 only when even the fallback failed.
func (r *Renderer) Render(ctx context.Context, req metadata.Request) Result {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "preview", logger.RequestID(ctx))
	span.SetAttr("kind", string(req.Kind))
	span.SetAttr("slug", req.Slug)

	res := r.run(ctx, req)

	span.SetAttr("outcome", string(res.Outcome))
	span.End()
	span.Log(r.logger)

	elapsed := time.Since(start)
	r.metrics.ObservePreview(string(req.Kind), string(res.Outcome), elapsed)
	ev := events.New(events.ArtifactPreview, string(req.Kind), req.Slug, string(res.Outcome))
	ev.Format = "png"
	ev.LatencyMs = elapsed.Milliseconds()
	ev.RequestID = logger.RequestID(ctx)
	r.tracker.Track(ev)
	return res
}

func (r *Renderer) run(ctx context.Context, req metadata.Request) Result {
	md, err := r.fetch(ctx, req)
	if err != nil {
		logger.Artifact(ctx, string(req.Kind), req.Slug, stageFetch).
			Warn("metadata unavailable, using fallback image", "error", err)
		return r.fallback(ctx, req)
	}

	card := NewCard(md, r.site)
	body, err := r.compose(ctx, card)
	if err != nil {
		logger.Artifact(ctx, string(req.Kind), req.Slug, stageCompose).
			Error("themed render failed, using fallback image", "error", err, "theme", card.Theme.Name)
		return r.fallback(ctx, req)
	}
	return Result{Outcome: OutcomeThemed, Status: http.StatusOK, ContentType: contentTypePNG, Body: body}
}

func (r *Renderer) fetch(ctx context.Context, req metadata.Request) (md metadata.Metadata, err error) {
	ctx, span := tracing.StartChildSpan(ctx, stageFetch)
	defer span.End()
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.Newf(apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "metadata lookup panic: %v", rec)
		}
	}()
	md, err = r.source.Lookup(ctx, req)
	if err == nil && md.Title == "" {
		err = apperrors.New(apperrors.ErrUpstreamUnavailable, http.StatusServiceUnavailable, "metadata has no title")
	}
	return md, err
}

func (r *Renderer) compose(ctx context.Context, card Card) (body []byte, err error) {
	_, span := tracing.StartChildSpan(ctx, stageCompose)
	span.SetAttr("theme", card.Theme.Name)
	defer span.End()
	defer recoverRender(&err)
	return r.composer.Compose(card)
}

func (r *Renderer) fallback(ctx context.Context, req metadata.Request) Result {
	_, span := tracing.StartChildSpan(ctx, stageFallback)
	defer span.End()

	body, err := func() (body []byte, err error) {
		defer recoverRender(&err)
		return r.composer.Fallback()
	}()
	if err != nil {
		logger.Artifact(ctx, string(req.Kind), req.Slug, stageFallback).
			Error("fallback render failed", "error", err)
		return Result{
			Outcome:     OutcomeError,
			Status:      http.StatusInternalServerError,
			ContentType: contentTypeText,
			Body:        []byte(errorBody),
		}
	}
	return Result{Outcome: OutcomeFallback, Status: http.StatusOK, ContentType: contentTypePNG, Body: body}
}

