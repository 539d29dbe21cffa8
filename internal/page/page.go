// Package page renders the public HTML page of a guide or broker review,
// carrying the Open Graph tags that point unfurlers at the preview image and
// the JSON-LD documents crawlers read.
package page

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/events"
	"github.com/stockguides/site/internal/origin"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
)

type view struct {
	SiteName    string
	Title       string
	Description string
	Category    string
	Author      string
	Published   string
	Canonical   string
	Image       string
	ImageWidth  int
	ImageHeight int
	OGType      string
	Crumbs      []crumb
	Body        template.HTML
	Blocks      template.HTML
	Schemas     []any
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | {{.SiteName}}</title>
<meta name="description" content="{{.Description}}">
<link rel="canonical" href="{{.Canonical}}">
<meta property="og:type" content="{{.OGType}}">
<meta property="og:site_name" content="{{.SiteName}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:description" content="{{.Description}}">
<meta property="og:url" content="{{.Canonical}}">
<meta property="og:image" content="{{.Image}}">
<meta property="og:image:type" content="image/png">
<meta property="og:image:width" content="{{.ImageWidth}}">
<meta property="og:image:height" content="{{.ImageHeight}}">
<meta name="twitter:card" content="summary_large_image">
<meta name="twitter:image" content="{{.Image}}">
{{range .Schemas}}<script type="application/ld+json">{{.}}</script>
{{end}}</head>
<body>
<nav class="crumbs">{{range $i, $c := .Crumbs}}{{if $i}} &rsaquo; {{end}}<a href="{{$c.URL}}">{{$c.Name}}</a>{{end}}</nav>
<article>
<header>
<p class="category">{{.Category}}</p>
<h1>{{.Title}}</h1>
{{if or .Author .Published}}<p class="byline">{{with .Author}}By {{.}}{{end}}{{if and .Author .Published}} &middot; {{end}}{{with .Published}}<time datetime="{{.}}">{{.}}</time>{{end}}</p>{{end}}
</header>
<div class="body">
{{.Body}}</div>
{{.Blocks}}</article>
</body>
</html>
`))

// Renderer builds entry pages from the content store.
type Renderer struct {
	repo     content.Repository
	siteName string
	md       goldmark.Markdown
}

func NewRenderer(repo content.Repository, siteName string) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	return &Renderer{repo: repo, siteName: siteName, md: md}
}

// Render produces the page of kind/slug with absolute URLs rooted at base.
func (r *Renderer) Render(ctx context.Context, kind content.Kind, slug, base string) ([]byte, error) {
	if !content.ValidSlug(slug) {
		return nil, apperrors.BadRequestf("invalid slug %q", slug)
	}
	entry, err := r.repo.Get(ctx, kind, slug)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	if err := r.md.Convert([]byte(entry.Body), &body); err != nil {
		return nil, apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "converting markdown: %v", err)
	}
	st := &renderState{kind: kind}
	blocks, err := renderBlocks(st, entry.Blocks)
	if err != nil {
		return nil, apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "%v", err)
	}

	pageURL := base + kind.PathPrefix() + slug
	imageURL := base + "/preview/" + string(kind) + "/" + slug
	crumbs := []crumb{
		{Name: "Home", URL: base + "/"},
		{Name: sectionTitle(kind), URL: base + "/" + kind.Dir()},
		{Name: entry.Title, URL: pageURL},
	}

	v := view{
		SiteName:    r.siteName,
		Title:       entry.Title,
		Description: entry.Excerpt,
		Category:    entry.Category,
		Author:      entry.Author,
		Canonical:   pageURL,
		Image:       imageURL,
		ImageWidth:  1200,
		ImageHeight: 630,
		OGType:      "article",
		Crumbs:      crumbs,
		Body:        template.HTML(body.String()),
		Blocks:      blocks,
		Schemas:     structuredData(entry, r.siteName, base, pageURL, imageURL, crumbs),
	}
	if !entry.PublishedAt.IsZero() {
		v.Published = entry.PublishedAt.UTC().Format("2006-01-02")
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, v); err != nil {
		return nil, apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "executing page template: %v", err)
	}
	return out.Bytes(), nil
}

func sectionTitle(kind content.Kind) string {
	if kind == content.KindBroker {
		return "Broker reviews"
	}
	return "Guides"
}

// Handler serves the entry pages and the home and section listings.
type Handler struct {
	renderer *Renderer
	tracker  events.Tracker
}

func NewHandler(renderer *Renderer, tracker events.Tracker) *Handler {
	if tracker == nil {
		tracker = events.Discard
	}
	return &Handler{renderer: renderer, tracker: tracker}
}

// For returns the handler of one content kind.
func (h *Handler) For(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		slug := r.PathValue("slug")
		body, err := h.renderer.Render(r.Context(), kind, slug, origin.FromRequest(r))

		h.track(r, string(kind), slug, err, start)

		if err != nil {
			status := apperrors.HTTPStatusCode(err)
			if status >= http.StatusInternalServerError {
				logger.Artifact(r.Context(), string(kind), slug, "page").Error("page render failed", "error", err)
			}
			http.Error(w, apperrors.PublicMessage(err), status)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			w.Write(body)
		}
	}
}

func (h *Handler) track(r *http.Request, kind, slug string, err error, start time.Time) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ev := events.New(events.ArtifactPage, kind, slug, outcome)
	ev.Format = "html"
	ev.LatencyMs = time.Since(start).Milliseconds()
	ev.RequestID = logger.RequestID(r.Context())
	h.tracker.Track(ev)
}
