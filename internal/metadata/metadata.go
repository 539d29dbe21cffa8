// Package metadata projects content entries onto the narrow field set the
// preview renderer needs, and serves that projection over HTTP.
package metadata

import (
	"context"
	"fmt"
	"net/http"

	"github.com/stockguides/site/internal/content"
	apperrors "github.com/stockguides/site/pkg/errors"
)

// Metadata is everything a preview image is composed from. Body text is
// deliberately absent.
type Metadata struct {
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Category string `json:"category"`
}

// Request identifies the entry a preview is rendered for. Origin is the
// scheme+host the over-the-wire source calls back into.
type Request struct {
	Kind   content.Kind
	Slug   string
	Origin string
}

// Source resolves metadata for a preview. Errors wrap apperrors.ErrBadRequest,
// apperrors.ErrNotFound or apperrors.ErrUpstreamUnavailable.
type Source interface {
	Lookup(ctx context.Context, req Request) (Metadata, error)
}

// Project reads one entry and reduces it to Metadata.
func Project(ctx context.Context, repo content.Repository, kind content.Kind, slug string) (Metadata, error) {
	if slug == "" {
		return Metadata{}, apperrors.BadRequestf("slug is required")
	}
	if !content.ValidSlug(slug) {
		return Metadata{}, apperrors.BadRequestf("invalid slug %q", slug)
	}
	entry, err := repo.Get(ctx, kind, slug)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || apperrors.Is(err, apperrors.ErrBadRequest) {
			return Metadata{}, err
		}
		return Metadata{}, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError,
			fmt.Sprintf("reading %s %q: %v", kind, slug, err))
	}
	return Metadata{
		Slug:     entry.Slug,
		Title:    entry.Title,
		Excerpt:  entry.Excerpt,
		Category: entry.Category,
	}, nil
}

// DirectSource serves metadata in-process from the repository.
type DirectSource struct {
	repo content.Repository
}

func NewDirectSource(repo content.Repository) *DirectSource {
	return &DirectSource{repo: repo}
}

func (s *DirectSource) Lookup(ctx context.Context, req Request) (Metadata, error) {
	md, err := Project(ctx, s.repo, req.Kind, req.Slug)
	if err != nil && apperrors.Is(err, apperrors.ErrInternal) {
		return Metadata{}, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	return md, err
}
