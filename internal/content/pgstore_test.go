package content

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stockguides/site/pkg/config"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	port, _ := strconv.Atoi(envOrDefault("TEST_POSTGRES_PORT", "5432"))
	db, err := postgres.New(config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            port,
		Database:        envOrDefault("TEST_POSTGRES_DB", "stockguides_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "stockguides"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		t.Skipf("skipping postgres test: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgresRepository(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	if err := db.Exec(ctx, Schema); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := db.Exec(ctx, `DELETE FROM content_entries WHERE slug LIKE 'pgtest-%'`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := db.Exec(ctx,
		`INSERT INTO content_entries (kind, slug, title, excerpt, category, body, blocks, updated_at)
		 VALUES ('guide', 'pgtest-etfs', 'ETFs Explained', '', 'Investing', 'ETFs trade like stocks.', '[{"type":"key-takeaways","items":["Cheap"]}]', $1),
		        ('guide', 'pgtest-broken', 'Broken', '', '', '', '[{"type":"carousel"}]', $1)`,
		updated,
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	t.Cleanup(func() { db.Exec(context.Background(), `DELETE FROM content_entries WHERE slug LIKE 'pgtest-%'`) })

	repo := NewPostgresRepository(db)

	entry, err := repo.Get(ctx, KindGuide, "pgtest-etfs")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Excerpt != "ETFs trade like stocks." {
		t.Errorf("derived Excerpt = %q", entry.Excerpt)
	}
	if len(entry.Blocks) != 1 || entry.Blocks[0].Kind() != BlockKeyTakeaways {
		t.Errorf("Blocks = %#v", entry.Blocks)
	}
	if !entry.LastModified.Equal(updated) {
		t.Errorf("LastModified = %v, want %v", entry.LastModified, updated)
	}

	if _, err := repo.Get(ctx, KindGuide, "pgtest-missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", err)
	}

	all, err := repo.ListAll(ctx, KindGuide)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	for _, e := range all {
		if e.Slug == "pgtest-broken" {
			t.Error("ListAll returned the undecodable row")
		}
	}

	if got := repo.LastModified(ctx, KindGuide, "pgtest-etfs"); !got.Equal(updated) {
		t.Errorf("LastModified = %v, want %v", got, updated)
	}
}
