package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/stockguides/site/pkg/errors"
)

var contentExtensions = []string{".md", ".mdx"}

// FileRepository reads entries from <dir>/guides and <dir>/brokers. Every
// call goes back to disk; nothing is memoized between requests.
type FileRepository struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewFileRepository creates a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default().With("component", "content-files"),
	}
}

// Dir returns the store root.
func (r *FileRepository) Dir() string { return r.dir }

// Get loads a single entry.
func (r *FileRepository) Get(ctx context.Context, kind Kind, slug string) (*Entry, error) {
	if !ValidSlug(slug) {
		return nil, apperrors.BadRequestf("invalid slug %q", slug)
	}
	path, info, err := r.locate(kind, slug)
	if err != nil {
		return nil, err
	}
	return r.load(kind, slug, path, info)
}

// ListAll returns every parseable entry of kind, sorted by file name.
func (r *FileRepository) ListAll(ctx context.Context, kind Kind) ([]*Entry, error) {
	kindDir := filepath.Join(r.dir, kind.Dir())
	dirEntries, err := os.ReadDir(kindDir)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("content directory absent", "kind", kind, "dir", kindDir)
		return []*Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kindDir, err)
	}

	entries := make([]*Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if de.IsDir() {
			continue
		}
		slug, ok := slugFromFile(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			r.logger.Warn("skipping unreadable content file", "kind", kind, "file", de.Name(), "error", err)
			continue
		}
		entry, err := r.load(kind, slug, filepath.Join(kindDir, de.Name()), info)
		if err != nil {
			r.logger.Warn("skipping unparseable content file", "kind", kind, "slug", slug, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LastModified returns the backing file's modification time, or now when
// the file cannot be stat'ed.
func (r *FileRepository) LastModified(ctx context.Context, kind Kind, slug string) time.Time {
	_, info, err := r.locate(kind, slug)
	if err != nil {
		r.logger.Debug("falling back to current time for lastmod", "kind", kind, "slug", slug, "error", err)
		return r.now().UTC()
	}
	return info.ModTime().UTC()
}

func (r *FileRepository) locate(kind Kind, slug string) (string, fs.FileInfo, error) {
	for _, ext := range contentExtensions {
		path := filepath.Join(r.dir, kind.Dir(), slug+ext)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, info, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", nil, apperrors.NotFoundf("%s %q not found", kind, slug)
}

func (r *FileRepository) load(kind Kind, slug, path string, info fs.FileInfo) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return newEntry(kind, slug, doc, info.ModTime().UTC()), nil
}

func newEntry(kind Kind, slug string, doc *Document, modified time.Time) *Entry {
	category := doc.Category
	if category == "" {
		category = kind.DefaultCategory()
	}
	return &Entry{
		Kind:         kind,
		Slug:         slug,
		Title:        doc.Title,
		Excerpt:      doc.Excerpt,
		Category:     category,
		Author:       doc.Author,
		PublishedAt:  doc.PublishedAt,
		Body:         doc.Body,
		Blocks:       doc.Blocks,
		LastModified: modified,
	}
}

func slugFromFile(name string) (string, bool) {
	ext := filepath.Ext(name)
	for _, allowed := range contentExtensions {
		if ext == allowed {
			slug := strings.TrimSuffix(name, ext)
			return slug, ValidSlug(slug)
		}
	}
	return "", false
}
