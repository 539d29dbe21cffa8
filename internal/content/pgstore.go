package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/postgres"
)

// Schema creates the table read by PostgresRepository. Content tooling owns
// the writes; this package only reads.
const Schema = `CREATE TABLE IF NOT EXISTS content_entries (
	kind         TEXT        NOT NULL,
	slug         TEXT        NOT NULL,
	title        TEXT        NOT NULL,
	excerpt      TEXT        NOT NULL DEFAULT '',
	category     TEXT        NOT NULL DEFAULT '',
	author       TEXT        NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	body         TEXT        NOT NULL DEFAULT '',
	blocks       JSONB       NOT NULL DEFAULT '[]',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (kind, slug)
)`

const selectColumns = `slug, title, excerpt, category, author, published_at, body, blocks, updated_at`

// PostgresRepository serves the content store from the content_entries
// table. updated_at plays the role of the file modification time.
type PostgresRepository struct {
	db     *postgres.Client
	now    func() time.Time
	logger *slog.Logger
}

// NewPostgresRepository creates a repository over an open client.
func NewPostgresRepository(db *postgres.Client) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		now:    time.Now,
		logger: slog.Default().With("component", "content-postgres"),
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Get loads a single entry.
func (r *PostgresRepository) Get(ctx context.Context, kind Kind, slug string) (*Entry, error) {
	if !ValidSlug(slug) {
		return nil, apperrors.BadRequestf("invalid slug %q", slug)
	}
	row := r.db.DB.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM content_entries WHERE kind = $1 AND slug = $2`,
		string(kind), slug,
	)
	entry, err := scanEntry(kind, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("%s %q not found", kind, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %q: %w", kind, slug, err)
	}
	return entry, nil
}

// ListAll returns every decodable entry of kind ordered by slug.
func (r *PostgresRepository) ListAll(ctx context.Context, kind Kind) ([]*Entry, error) {
	rows, err := r.db.DB.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM content_entries WHERE kind = $1 ORDER BY slug`,
		string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s entries: %w", kind, err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(kind, rows)
		if err != nil {
			r.logger.Warn("skipping undecodable content row", "kind", kind, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s entries: %w", kind, err)
	}
	return entries, nil
}

// LastModified returns updated_at, or now when the row cannot be read.
func (r *PostgresRepository) LastModified(ctx context.Context, kind Kind, slug string) time.Time {
	var updated time.Time
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT updated_at FROM content_entries WHERE kind = $1 AND slug = $2`,
		string(kind), slug,
	).Scan(&updated)
	if err != nil {
		r.logger.Debug("falling back to current time for lastmod", "kind", kind, "slug", slug, "error", err)
		return r.now().UTC()
	}
	return updated.UTC()
}

func scanEntry(kind Kind, row rowScanner) (*Entry, error) {
	var (
		doc       Document
		slug      string
		published sql.NullTime
		rawBlocks []byte
		updated   time.Time
	)
	if err := row.Scan(&slug, &doc.Title, &doc.Excerpt, &doc.Category, &doc.Author,
		&published, &doc.Body, &rawBlocks, &updated); err != nil {
		return nil, err
	}
	if published.Valid {
		doc.PublishedAt = published.Time
	}
	if len(rawBlocks) > 0 {
		var raws []rawBlock
		if err := json.Unmarshal(rawBlocks, &raws); err != nil {
			return nil, fmt.Errorf("decoding blocks of %q: %w", slug, err)
		}
		blocks, err := decodeBlocks(raws)
		if err != nil {
			return nil, fmt.Errorf("decoding blocks of %q: %w", slug, err)
		}
		doc.Blocks = blocks
	}
	if doc.Excerpt == "" {
		doc.Excerpt = DeriveExcerpt([]byte(doc.Body), MaxDerivedExcerpt)
	}
	return newEntry(kind, slug, &doc, updated.UTC()), nil
}
