// Package sitemap builds per-kind sitemaps and the sitemap index from the
// content store and renders them as XML or as an HTML page.
package sitemap

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/pkg/config"
	apperrors "github.com/stockguides/site/pkg/errors"
)

// Sitemap kinds. Guide and broker map to content kinds; page lists the
// static pages from configuration.
const (
	KindGuide  = string(content.KindGuide)
	KindBroker = string(content.KindBroker)
	KindPage   = "page"
)

// Kinds lists the published sitemaps in index order.
var Kinds = []string{KindGuide, KindBroker, KindPage}

// Entry is one <url> of a sitemap, or one <sitemap> of the index. Index
// entries leave ChangeFrequency and Priority empty.
type Entry struct {
	Loc             string
	LastModified    time.Time
	ChangeFrequency string
	Priority        float64
}

// Set is an ordered entry set. Index marks a sitemap index document.
type Set struct {
	Kind    string
	Index   bool
	Entries []Entry
}

type policy struct {
	changeFrequency string
	priority        float64
}

var policies = map[content.Kind]policy{
	content.KindGuide:  {changeFrequency: "weekly", priority: 0.8},
	content.KindBroker: {changeFrequency: "monthly", priority: 0.7},
}

// Aggregator turns repository listings into entry sets. Nothing is cached;
// every call re-reads the store.
type Aggregator struct {
	repo  content.Repository
	pages []config.StaticPage
	order string
	now   func() time.Time
}

func NewAggregator(repo content.Repository, cfg config.SitemapConfig) *Aggregator {
	order := cfg.Order
	if order == "" {
		order = config.OrderSlug
	}
	return &Aggregator{
		repo:  repo,
		pages: cfg.StaticPages,
		order: order,
		now:   time.Now,
	}
}

// Build returns the entry set of one sitemap kind with absolute URLs rooted
// at origin.
func (a *Aggregator) Build(ctx context.Context, kind, origin string) (Set, error) {
	if kind == KindPage {
		return a.buildPages(origin), nil
	}
	ck, ok := content.ParseKind(kind)
	if !ok {
		return Set{}, apperrors.NotFoundf("unknown sitemap %q", kind)
	}
	entries, err := a.repo.ListAll(ctx, ck)
	if err != nil {
		return Set{}, fmt.Errorf("listing %s entries: %w", ck, err)
	}

	p := policies[ck]
	set := Set{Kind: kind, Entries: make([]Entry, 0, len(entries))}
	slugs := make(map[string]string, len(entries))
	for _, e := range entries {
		lastMod := e.LastModified
		if lastMod.IsZero() {
			lastMod = a.repo.LastModified(ctx, ck, e.Slug)
		}
		loc := origin + ck.PathPrefix() + e.Slug
		slugs[loc] = e.Slug
		set.Entries = append(set.Entries, Entry{
			Loc:             loc,
			LastModified:    lastMod.UTC(),
			ChangeFrequency: p.changeFrequency,
			Priority:        p.priority,
		})
	}
	a.sort(set.Entries, func(e Entry) string { return slugs[e.Loc] })
	return set, nil
}

// Index lists every published sitemap. A child's lastmod is its newest
// entry, or now when it has none.
func (a *Aggregator) Index(ctx context.Context, origin string) (Set, error) {
	set := Set{Kind: "index", Index: true, Entries: make([]Entry, 0, len(Kinds))}
	for _, kind := range Kinds {
		child, err := a.Build(ctx, kind, origin)
		if err != nil {
			return Set{}, err
		}
		set.Entries = append(set.Entries, Entry{
			Loc:          origin + "/sitemap/" + kind,
			LastModified: a.newest(child),
		})
	}
	return set, nil
}

// IndexURL is the absolute location of the sitemap index.
func IndexURL(origin string) string {
	return origin + "/sitemap-index"
}

// buildPages keeps the configured order of static pages.
func (a *Aggregator) buildPages(origin string) Set {
	now := a.now().UTC()
	set := Set{Kind: KindPage, Entries: make([]Entry, 0, len(a.pages))}
	for _, p := range a.pages {
		path := p.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		set.Entries = append(set.Entries, Entry{
			Loc:             origin + path,
			LastModified:    now,
			ChangeFrequency: p.ChangeFrequency,
			Priority:        p.Priority,
		})
	}
	return set
}

// sort applies the configured order: by slug, or newest first with slug as
// the tie-breaker.
func (a *Aggregator) sort(entries []Entry, slug func(Entry) string) {
	slices.SortStableFunc(entries, func(x, y Entry) int {
		if a.order == config.OrderModified {
			if c := y.LastModified.Compare(x.LastModified); c != 0 {
				return c
			}
		}
		return cmp.Compare(slug(x), slug(y))
	})
}

func (a *Aggregator) newest(s Set) time.Time {
	var newest time.Time
	for _, e := range s.Entries {
		if e.LastModified.After(newest) {
			newest = e.LastModified
		}
	}
	if newest.IsZero() {
		return a.now().UTC()
	}
	return newest
}
