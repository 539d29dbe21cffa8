package page

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/origin"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
)

type listingItem struct {
	Title    string
	URL      string
	Excerpt  string
	Category string
}

type listingSection struct {
	Title string
	URL   string
	Items []listingItem
}

type listingView struct {
	SiteName  string
	Title     string
	Canonical string
	Crumbs    []crumb
	Sections  []listingSection
}

var listingTemplate = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} | {{.SiteName}}</title>
<link rel="canonical" href="{{.Canonical}}">
<meta property="og:type" content="website">
<meta property="og:site_name" content="{{.SiteName}}">
<meta property="og:title" content="{{.Title}}">
<meta property="og:url" content="{{.Canonical}}">
</head>
<body>
<nav class="crumbs">{{range $i, $c := .Crumbs}}{{if $i}} &rsaquo; {{end}}<a href="{{$c.URL}}">{{$c.Name}}</a>{{end}}</nav>
<h1>{{.Title}}</h1>
{{range .Sections}}<section>
<h2><a href="{{.URL}}">{{.Title}}</a></h2>
{{if .Items}}<ul class="entries">
{{range .Items}}<li><a href="{{.URL}}">{{.Title}}</a> <span class="category">{{.Category}}</span>{{with .Excerpt}}<p>{{.}}</p>{{end}}</li>
{{end}}</ul>{{else}}<p>Nothing published yet.</p>{{end}}
</section>
{{end}}</body>
</html>
`))

// RenderSection lists every entry of one kind, ordered by slug.
func (r *Renderer) RenderSection(ctx context.Context, kind content.Kind, base string) ([]byte, error) {
	section, err := r.section(ctx, kind, base)
	if err != nil {
		return nil, err
	}
	return r.renderListing(listingView{
		SiteName:  r.siteName,
		Title:     section.Title,
		Canonical: section.URL,
		Crumbs:    []crumb{{Name: "Home", URL: base + "/"}, {Name: section.Title, URL: section.URL}},
		Sections:  []listingSection{section},
	})
}

// RenderHome lists both sections.
func (r *Renderer) RenderHome(ctx context.Context, base string) ([]byte, error) {
	v := listingView{
		SiteName:  r.siteName,
		Title:     r.siteName,
		Canonical: base + "/",
		Crumbs:    []crumb{{Name: "Home", URL: base + "/"}},
	}
	for _, kind := range content.Kinds {
		section, err := r.section(ctx, kind, base)
		if err != nil {
			return nil, err
		}
		v.Sections = append(v.Sections, section)
	}
	return r.renderListing(v)
}

func (r *Renderer) section(ctx context.Context, kind content.Kind, base string) (listingSection, error) {
	entries, err := r.repo.ListAll(ctx, kind)
	if err != nil {
		return listingSection{}, fmt.Errorf("listing %s entries: %w", kind, err)
	}
	slices.SortFunc(entries, func(a, b *content.Entry) int { return cmp.Compare(a.Slug, b.Slug) })

	s := listingSection{
		Title: sectionTitle(kind),
		URL:   base + "/" + kind.Dir(),
		Items: make([]listingItem, 0, len(entries)),
	}
	for _, e := range entries {
		s.Items = append(s.Items, listingItem{
			Title:    e.Title,
			URL:      base + kind.PathPrefix() + e.Slug,
			Excerpt:  e.Excerpt,
			Category: e.Category,
		})
	}
	return s, nil
}

func (r *Renderer) renderListing(v listingView) ([]byte, error) {
	var out bytes.Buffer
	if err := listingTemplate.Execute(&out, v); err != nil {
		return nil, apperrors.Newf(apperrors.ErrRenderFailure, http.StatusInternalServerError, "executing listing template: %v", err)
	}
	return out.Bytes(), nil
}

// Home serves GET /.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := h.renderer.RenderHome(r.Context(), origin.FromRequest(r))
	h.serveListing(w, r, "home", body, err, start)
}

// Section returns the handler of GET /guides or GET /brokers.
func (h *Handler) Section(kind content.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		body, err := h.renderer.RenderSection(r.Context(), kind, origin.FromRequest(r))
		h.serveListing(w, r, string(kind), body, err, start)
	}
}

func (h *Handler) serveListing(w http.ResponseWriter, r *http.Request, kind string, body []byte, err error, start time.Time) {
	h.track(r, kind, "", err, start)
	if err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status >= http.StatusInternalServerError {
			logger.Artifact(r.Context(), kind, "", "listing").Error("listing render failed", "error", err)
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
