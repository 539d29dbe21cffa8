// Command site serves the guide and broker review pages together with the
// artifacts derived from them: metadata JSON, social preview images,
// sitemaps and robots.txt.
//
// Usage:
//
//	go run ./cmd/site [--config configs/development.yaml] [--env-file .env]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/stockguides/site/internal/content"
	"github.com/stockguides/site/internal/events"
	"github.com/stockguides/site/internal/metadata"
	"github.com/stockguides/site/internal/negotiate"
	"github.com/stockguides/site/internal/page"
	"github.com/stockguides/site/internal/preview"
	"github.com/stockguides/site/internal/router"
	"github.com/stockguides/site/internal/sitemap"
	"github.com/stockguides/site/pkg/config"
	"github.com/stockguides/site/pkg/health"
	"github.com/stockguides/site/pkg/kafka"
	"github.com/stockguides/site/pkg/logger"
	"github.com/stockguides/site/pkg/metrics"
	"github.com/stockguides/site/pkg/postgres"
	"github.com/stockguides/site/pkg/resilience"
)

func main() {
	configPath := flag.StringP("config", "c", "configs/development.yaml", "path to config file")
	envFile := flag.String("env-file", ".env", "optional dotenv file loaded before SITE_* overrides")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("site stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("site stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting site",
		"port", cfg.Server.Port,
		"content_backend", cfg.Content.Backend,
		"metadata_source", cfg.Preview.MetadataSource,
	)

	m := metrics.New(nil)
	checker := health.NewChecker()

	repo, closeRepo, err := openRepository(ctx, cfg, checker)
	if err != nil {
		return err
	}
	defer closeRepo()

	source := newMetadataSource(cfg, repo, m, checker)

	g, gctx := errgroup.WithContext(ctx)

	var (
		tracker   events.Tracker = events.Discard
		collector *events.Collector
	)
	if cfg.Events.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Events.Topic)
		defer producer.Close()
		collector = events.NewCollector(producer, cfg.Events.BufferSize, m)
		collector.Start(ctx)
		defer collector.Close()
		tracker = collector
		slog.Info("artifact events enabled", "topic", cfg.Events.Topic, "brokers", cfg.Kafka.Brokers)
	}

	site := preview.Identity{Name: cfg.Site.Name, Tagline: cfg.Site.Tagline, Domain: cfg.Site.Domain}
	composer, err := preview.NewGGComposer(site)
	if err != nil {
		return fmt.Errorf("loading preview fonts: %w", err)
	}

	sitemaps := sitemap.NewHandler(
		sitemap.NewAggregator(repo, cfg.Sitemap),
		negotiate.New(cfg.Sitemap.CrawlerTokens),
		cfg.Site.Name, m, tracker,
	)
	handler := router.New(router.Handlers{
		Metadata: metadata.NewHandler(repo, tracker),
		Preview:  preview.NewHandler(preview.NewRenderer(source, composer, site, m, tracker)),
		Sitemap:  sitemaps,
		Pages:    page.NewHandler(page.NewRenderer(repo, cfg.Site.Name), tracker),
		Health:   checker,
	}, m, cfg.Server.RequestTimeout)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g.Go(func() error {
		slog.Info("site listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("site server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			return metrics.Serve(gctx, metrics.NewServer(cfg.Metrics.Port, m), cfg.Server.ShutdownTimeout)
		})
	}
	err = g.Wait()
	// Both servers have shut down; flush what their last requests tracked.
	if collector != nil {
		collector.Close()
	}
	return err
}

// openRepository selects the content store and registers its readiness check.
func openRepository(ctx context.Context, cfg *config.Config, checker *health.Checker) (content.Repository, func(), error) {
	switch cfg.Content.Backend {
	case config.BackendPostgres:
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		if err := db.Exec(ctx, content.Schema); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ensuring content schema: %w", err)
		}
		slog.Info("connected to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		checker.Register("postgres", db.Ping)
		return content.NewPostgresRepository(db), func() { db.Close() }, nil
	default:
		repo := content.NewFileRepository(cfg.Content.Dir)
		checker.Register("content-dir", func(context.Context) error {
			_, err := os.Stat(repo.Dir())
			return err
		})
		return repo, func() {}, nil
	}
}

// newMetadataSource picks the in-process or over-the-wire metadata source.
func newMetadataSource(cfg *config.Config, repo content.Repository, m *metrics.Metrics, checker *health.Checker) metadata.Source {
	if cfg.Preview.MetadataSource != config.SourceHTTP {
		return metadata.NewDirectSource(repo)
	}
	src := metadata.NewHTTPSource(&http.Client{}, metadata.HTTPConfig{
		Origin:  cfg.Preview.MetadataOrigin,
		Timeout: cfg.Preview.FetchTimeout,
		Retry:   resilience.RetryConfig{MaxAttempts: cfg.Preview.RetryAttempts},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Preview.BreakerFailures,
			ResetTimeout:     cfg.Preview.BreakerReset,
		},
	}, m)
	checker.RegisterOptional("metadata-endpoint", src.Check)
	return src
}
