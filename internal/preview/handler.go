package preview

import (
	"net/http"
	"strconv"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/metadata"
	"github.com/stockguides/site/internal/origin"
)

// Handler serves GET /preview/{kind}/{slug} and GET /preview/{kind}?slug=.
type Handler struct {
	renderer *Renderer
}

func NewHandler(renderer *Renderer) *Handler {
	return &Handler{renderer: renderer}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := content.ParseKind(r.PathValue("kind"))
	if !ok {
		http.Error(w, "unknown content kind", http.StatusNotFound)
		return
	}
	slug := r.PathValue("slug")
	if slug == "" {
		slug = r.URL.Query().Get("slug")
	}
	if slug == "" {
		http.Error(w, "slug is required", http.StatusBadRequest)
		return
	}
	if !content.ValidSlug(slug) {
		http.Error(w, "invalid slug", http.StatusBadRequest)
		return
	}

	res := h.renderer.Render(r.Context(), metadata.Request{
		Kind:   kind,
		Slug:   slug,
		Origin: origin.FromRequest(r),
	})

	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
	w.Header().Set("Cache-Control", "public, max-age=0, must-revalidate")
	w.Header().Set("X-Preview-Outcome", string(res.Outcome))
	w.WriteHeader(res.Status)
	if r.Method != http.MethodHead {
		w.Write(res.Body)
	}
}
