package metadata

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/events"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
)

// Handler serves GET /metadata/{kind}/{slug}. The slug may also arrive as
// ?slug= on GET /metadata/{kind}.
type Handler struct {
	repo    content.Repository
	tracker events.Tracker
	logger  *slog.Logger
}

// NewHandler creates a Handler. A nil tracker discards events.
func NewHandler(repo content.Repository, tracker events.Tracker) *Handler {
	if tracker == nil {
		tracker = events.Discard
	}
	return &Handler{
		repo:    repo,
		tracker: tracker,
		logger:  slog.Default().With("component", "metadata-handler"),
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	kind, ok := content.ParseKind(r.PathValue("kind"))
	if !ok {
		h.writeError(w, http.StatusNotFound, "unknown content kind")
		return
	}
	slug := r.PathValue("slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Artifact(ctx, string(kind), slug, "metadata").Error("metadata lookup panicked", "panic", rec)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
			h.track(r, kind, slug, "error", start)
		}
	}()

	md, err := Project(ctx, h.repo, kind, slug)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.Artifact(ctx, string(kind), slug, "metadata").Error("metadata lookup failed", "error", err)
		}
		h.writeError(w, status, apperrors.PublicMessage(err))
		h.track(r, kind, slug, outcomeFor(status), start)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	h.writeJSON(w, http.StatusOK, md)
	h.track(r, kind, slug, "ok", start)
}

func outcomeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	default:
		return "error"
	}
}

func (h *Handler) track(r *http.Request, kind content.Kind, slug, outcome string, start time.Time) {
	ev := events.New(events.ArtifactMetadata, string(kind), slug, outcome)
	ev.LatencyMs = time.Since(start).Milliseconds()
	ev.RequestID = logger.RequestID(r.Context())
	h.tracker.Track(ev)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
