package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	apperrors "github.com/stockguides/site/pkg/errors"
)

func writeFile(t *testing.T, dir, kindDir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, kindDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const guideIndexFunds = `---
title: What Is an Index Fund?
excerpt: A plain-English introduction to index funds.
category: Investing
author: Dana Reyes
date: 2024-03-01
---
Index funds track a market index.
`

const guideNoExcerpt = `---
title: Reading a Candlestick Chart
category: Analysis
---

Candlesticks show the **open**, high, low and close
for a period.

## Second heading
More text.
`

func TestFileRepositoryGet(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guides", "index-funds.md", guideIndexFunds)
	repo := NewFileRepository(dir)

	got, err := repo.Get(context.Background(), KindGuide, "index-funds")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := &Entry{
		Kind:        KindGuide,
		Slug:        "index-funds",
		Title:       "What Is an Index Fund?",
		Excerpt:     "A plain-English introduction to index funds.",
		Category:    CategoryInvesting,
		Author:      "Dana Reyes",
		PublishedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Body:        "Index funds track a market index.\n",
		Blocks:      []Block{},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(Entry{}, "LastModified"), cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
	if got.LastModified.IsZero() {
		t.Error("LastModified not populated")
	}
}

func TestFileRepositoryGetErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guides", "index-funds.md", guideIndexFunds)
	repo := NewFileRepository(dir)

	if _, err := repo.Get(context.Background(), KindGuide, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("missing slug: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(context.Background(), KindBroker, "index-funds"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("wrong kind: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.Get(context.Background(), KindGuide, "../etc/passwd"); !errors.Is(err, apperrors.ErrBadRequest) {
		t.Errorf("traversal slug: err = %v, want ErrBadRequest", err)
	}
}

func TestFileRepositoryDerivesExcerptAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guides", "candlesticks.md", guideNoExcerpt)
	writeFile(t, dir, "brokers", "acme-trade.md", "---\ntitle: Acme Trade Review\n---\nLow fees.\n")
	repo := NewFileRepository(dir)

	guide, err := repo.Get(context.Background(), KindGuide, "candlesticks")
	if err != nil {
		t.Fatalf("Get guide: %v", err)
	}
	if want := "Candlesticks show the open, high, low and close for a period."; guide.Excerpt != want {
		t.Errorf("Excerpt = %q, want %q", guide.Excerpt, want)
	}

	broker, err := repo.Get(context.Background(), KindBroker, "acme-trade")
	if err != nil {
		t.Fatalf("Get broker: %v", err)
	}
	if broker.Category != CategoryReviews {
		t.Errorf("broker Category = %q, want %q", broker.Category, CategoryReviews)
	}
}

func TestFileRepositoryListAllSkipsBrokenEntries(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "guides", "index-funds.md", guideIndexFunds)
	writeFile(t, dir, "guides", "candlesticks.md", guideNoExcerpt)
	writeFile(t, dir, "guides", "broken.md", "no front matter here")
	writeFile(t, dir, "guides", "bad-block.md", "---\ntitle: Bad\nblocks:\n  - type: carousel\n---\n")
	writeFile(t, dir, "guides", "notes.txt", "ignored")
	writeFile(t, dir, "guides", "Upper_Case.md", guideIndexFunds)

	entries, err := NewFileRepository(dir).ListAll(context.Background(), KindGuide)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	var slugs []string
	for _, e := range entries {
		slugs = append(slugs, e.Slug)
	}
	if diff := cmp.Diff([]string{"candlesticks", "index-funds"}, slugs); diff != "" {
		t.Errorf("slugs mismatch (-want +got):\n%s", diff)
	}
}

func TestFileRepositoryListAllMissingDirectory(t *testing.T) {
	entries, err := NewFileRepository(filepath.Join(t.TempDir(), "nope")).ListAll(context.Background(), KindBroker)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if entries == nil || len(entries) != 0 {
		t.Errorf("entries = %v, want empty non-nil slice", entries)
	}
}

func TestFileRepositoryLastModified(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guides", "index-funds.md", guideIndexFunds)
	stamp := time.Date(2023, 11, 5, 8, 30, 0, 0, time.UTC)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	repo := NewFileRepository(dir)
	if got := repo.LastModified(context.Background(), KindGuide, "index-funds"); !got.Equal(stamp) {
		t.Errorf("LastModified = %v, want %v", got, stamp)
	}

	fixed := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	if got := repo.LastModified(context.Background(), KindGuide, "missing"); !got.Equal(fixed) {
		t.Errorf("fallback LastModified = %v, want %v", got, fixed)
	}
}
