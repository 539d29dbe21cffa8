package preview

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/events"
	"github.com/stockguides/site/internal/metadata"
	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/metrics"
)

var testSite = Identity{Name: "Stock Guides", Tagline: "Learn to invest", Domain: "stockguides.example"}

type sourceFunc func(ctx context.Context, req metadata.Request) (metadata.Metadata, error)

func (f sourceFunc) Lookup(ctx context.Context, req metadata.Request) (metadata.Metadata, error) {
	return f(ctx, req)
}

func found(md metadata.Metadata) sourceFunc {
	return func(context.Context, metadata.Request) (metadata.Metadata, error) { return md, nil }
}

func failing(err error) sourceFunc {
	return func(context.Context, metadata.Request) (metadata.Metadata, error) { return metadata.Metadata{}, err }
}

// stubComposer records cards and can be made to fail either path.
type stubComposer struct {
	mu           sync.Mutex
	cards        []Card
	composeErr   error
	composePanic bool
	fallbackErr  error
}

func (s *stubComposer) Compose(card Card) ([]byte, error) {
	s.mu.Lock()
	s.cards = append(s.cards, card)
	s.mu.Unlock()
	if s.composePanic {
		panic("font face exploded")
	}
	if s.composeErr != nil {
		return nil, s.composeErr
	}
	return []byte("themed-png"), nil
}

func (s *stubComposer) Fallback() ([]byte, error) {
	if s.fallbackErr != nil {
		return nil, s.fallbackErr
	}
	return []byte("fallback-png"), nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []events.ArtifactEvent
}

func (t *recordingTracker) Track(e events.ArtifactEvent) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

func serve(h *Handler, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /preview/{kind}/{slug}", h.Get)
	mux.HandleFunc("GET /preview/{kind}", h.Get)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRenderOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		source      metadata.Source
		composer    *stubComposer
		wantStatus  int
		wantOutcome Outcome
		wantBody    string
		wantType    string
	}{
		{
			name:        "themed",
			source:      found(metadata.Metadata{Slug: "index-funds", Title: "What Is an Index Fund?", Category: "Investing"}),
			composer:    &stubComposer{},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeThemed,
			wantBody:    "themed-png",
			wantType:    "image/png",
		},
		{
			name:        "unknown slug",
			source:      failing(apperrors.NotFoundf("guide %q not found", "nope")),
			composer:    &stubComposer{},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name:        "source unavailable",
			source:      failing(apperrors.New(apperrors.ErrUpstreamUnavailable, 503, "down")),
			composer:    &stubComposer{},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name:        "empty title",
			source:      found(metadata.Metadata{Slug: "x"}),
			composer:    &stubComposer{},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name: "source panics",
			source: sourceFunc(func(context.Context, metadata.Request) (metadata.Metadata, error) {
				panic("nil pointer")
			}),
			composer:    &stubComposer{},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name:        "compose error",
			source:      found(metadata.Metadata{Title: "T", Category: "Trading"}),
			composer:    &stubComposer{composeErr: errors.New("boom")},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name:        "compose panic",
			source:      found(metadata.Metadata{Title: "T", Category: "Trading"}),
			composer:    &stubComposer{composePanic: true},
			wantStatus:  http.StatusOK,
			wantOutcome: OutcomeFallback,
			wantBody:    "fallback-png",
			wantType:    "image/png",
		},
		{
			name:        "fallback also fails",
			source:      failing(errors.New("down")),
			composer:    &stubComposer{fallbackErr: errors.New("no fonts")},
			wantStatus:  http.StatusInternalServerError,
			wantOutcome: OutcomeError,
			wantBody:    errorBody,
			wantType:    "text/plain; charset=utf-8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(NewRenderer(tt.source, tt.composer, testSite, nil, nil))
			rec := serve(h, "/preview/guide/index-funds")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("X-Preview-Outcome"); got != string(tt.wantOutcome) {
				t.Errorf("outcome = %q, want %q", got, tt.wantOutcome)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("content type = %q, want %q", got, tt.wantType)
			}
			if rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body, tt.wantBody)
			}
		})
	}
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	composer := &stubComposer{}
	h := NewHandler(NewRenderer(found(metadata.Metadata{Title: "T"}), composer, testSite, nil, nil))
	tests := []struct {
		target string
		status int
	}{
		{"/preview/guide", http.StatusBadRequest},
		{"/preview/guide?slug=", http.StatusBadRequest},
		{"/preview/guide/Bad_Slug", http.StatusBadRequest},
		{"/preview/podcast/index-funds", http.StatusNotFound},
		{"/preview/broker?slug=acme-trade", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := serve(h, tt.target); rec.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.target, rec.Code, tt.status)
		}
	}
	if len(composer.cards) != 1 {
		t.Errorf("composer called %d times, want 1", len(composer.cards))
	}
}

func TestRenderPassesOrigin(t *testing.T) {
	var got metadata.Request
	src := sourceFunc(func(_ context.Context, req metadata.Request) (metadata.Metadata, error) {
		got = req
		return metadata.Metadata{Title: "T"}, nil
	})
	h := NewHandler(NewRenderer(src, &stubComposer{}, testSite, nil, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /preview/{kind}/{slug}", h.Get)
	req := httptest.NewRequest(http.MethodGet, "/preview/broker/acme-trade", nil)
	req.Host = "alias.example"
	req.Header.Set("X-Forwarded-Proto", "https")
	mux.ServeHTTP(httptest.NewRecorder(), req)

	want := metadata.Request{Kind: content.KindBroker, Slug: "acme-trade", Origin: "https://alias.example"}
	if got != want {
		t.Errorf("request = %+v, want %+v", got, want)
	}
}

func TestCardTheming(t *testing.T) {
	long := strings.Repeat("Dividend investing explained ", 4)[:95]
	composer := &stubComposer{}
	r := NewRenderer(found(metadata.Metadata{Title: long, Excerpt: "e", Category: "Unknown"}), composer, testSite, nil, nil)
	r.Render(context.Background(), metadata.Request{Kind: content.KindGuide, Slug: "dividends"})

	if len(composer.cards) != 1 {
		t.Fatalf("cards = %d", len(composer.cards))
	}
	card := composer.cards[0]
	if card.Theme.Name != content.CategoryBasics || card.Theme != ThemeFor(content.CategoryBasics) {
		t.Errorf("theme = %q, want the Basics palette", card.Theme.Name)
	}
	if card.Category != "Unknown" {
		t.Errorf("badge label = %q, want the entry's own category", card.Category)
	}
	if n := utf8.RuneCountInString(card.Title); n != 80 || !strings.HasSuffix(card.Title, "...") {
		t.Errorf("title %q has %d runes", card.Title, n)
	}
	if card.Title[:77] != long[:77] {
		t.Errorf("title prefix changed: %q", card.Title)
	}
	if card.Site != testSite {
		t.Errorf("site = %+v", card.Site)
	}
}

func TestThemeFor(t *testing.T) {
	for _, cat := range []string{"Basics", "Investing", "Trading", "Analysis", "Reviews"} {
		if got := ThemeFor(cat).Name; got != cat {
			t.Errorf("ThemeFor(%q) = %q", cat, got)
		}
	}
	for _, cat := range []string{"", "investing", "Crypto"} {
		if got := ThemeFor(cat).Name; got != content.CategoryBasics {
			t.Errorf("ThemeFor(%q) = %q, want Basics", cat, got)
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	exact := strings.Repeat("a", 80)
	tests := []struct {
		in   string
		want string
	}{
		{"Short", "Short"},
		{exact, exact},
		{exact + "b", strings.Repeat("a", 77) + "..."},
		{strings.Repeat("é", 90), strings.Repeat("é", 77) + "..."},
	}
	for _, tt := range tests {
		if got := TruncateTitle(tt.in); got != tt.want {
			t.Errorf("TruncateTitle(%d runes) = %q", utf8.RuneCountInString(tt.in), got)
		}
	}
}

func TestRenderRecordsMetricsAndEvents(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	tracker := &recordingTracker{}
	r := NewRenderer(failing(apperrors.ErrNotFound), &stubComposer{}, testSite, m, tracker)
	r.Render(context.Background(), metadata.Request{Kind: content.KindBroker, Slug: "gone"})

	if got := testutil.ToFloat64(m.PreviewRendersTotal.WithLabelValues("broker", "fallback")); got != 1 {
		t.Errorf("fallback renders = %v, want 1", got)
	}
	if len(tracker.events) != 1 {
		t.Fatalf("events = %d, want 1", len(tracker.events))
	}
	ev := tracker.events[0]
	if ev.Artifact != events.ArtifactPreview || ev.Outcome != "fallback" || ev.Slug != "gone" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestGGComposerDimensions(t *testing.T) {
	c, err := NewGGComposer(testSite)
	if err != nil {
		t.Fatalf("NewGGComposer: %v", err)
	}
	themed, err := c.Compose(NewCard(metadata.Metadata{
		Title:    strings.Repeat("Long title words ", 10),
		Excerpt:  strings.Repeat("An excerpt that wraps across several lines. ", 8),
		Category: "Reviews",
	}, testSite))
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	fallback, err := c.Fallback()
	if err != nil {
		t.Fatalf("Fallback: %v", err)
	}
	for name, body := range map[string][]byte{"themed": themed, "fallback": fallback} {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(body))
		if err != nil {
			t.Fatalf("%s: decode: %v", name, err)
		}
		if format != "png" || cfg.Width != Width || cfg.Height != Height {
			t.Errorf("%s: got %s %dx%d", name, format, cfg.Width, cfg.Height)
		}
	}
	if bytes.Equal(themed, fallback) {
		t.Error("themed and fallback images are identical")
	}
}

func TestNewCardBadgeLabel(t *testing.T) {
	tests := []struct {
		category  string
		wantLabel string
		wantTheme string
	}{
		{category: "Investing", wantLabel: "Investing", wantTheme: content.CategoryInvesting},
		{category: "Crypto", wantLabel: "Crypto", wantTheme: content.CategoryBasics},
		{category: "", wantLabel: content.CategoryBasics, wantTheme: content.CategoryBasics},
		{category: "  ", wantLabel: content.CategoryBasics, wantTheme: content.CategoryBasics},
	}
	for _, tt := range tests {
		card := NewCard(metadata.Metadata{Title: "T", Category: tt.category}, testSite)
		if card.Category != tt.wantLabel || card.Theme.Name != tt.wantTheme {
			t.Errorf("NewCard(%q): label %q theme %q, want %q %q", tt.category, card.Category, card.Theme.Name, tt.wantLabel, tt.wantTheme)
		}
	}
}

func TestRecoverRenderClassifiesPanic(t *testing.T) {
	var err error
	func() {
		defer recoverRender(&err)
		panic("font face exploded")
	}()
	if !errors.Is(err, apperrors.ErrRenderFailure) {
		t.Fatalf("err = %v, want ErrRenderFailure", err)
	}
	if got := apperrors.HTTPStatusCode(err); got != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", got)
	}
}
