package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/stockguides/site/pkg/errors"
	"github.com/stockguides/site/pkg/logger"
	"github.com/stockguides/site/pkg/metrics"
	"github.com/stockguides/site/pkg/resilience"
)

const maxMetadataBody = 64 << 10

// HTTPConfig tunes the over-the-wire source.
type HTTPConfig struct {
	// Origin, when set, overrides the per-request origin.
	Origin  string
	Timeout time.Duration
	Retry   resilience.RetryConfig
	Breaker resilience.CircuitBreakerConfig
}

// HTTPSource fetches metadata from the metadata endpoint of a deployment,
// for renderers that cannot reach the content store themselves.
type HTTPSource struct {
	client  *http.Client
	cfg     HTTPConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewHTTPSource creates a source using client (http.DefaultClient when nil).
func NewHTTPSource(client *http.Client, cfg HTTPConfig, m *metrics.Metrics) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.Breaker.OnStateChange == nil {
		cfg.Breaker.OnStateChange = func(name string, to resilience.State) {
			m.SetBreakerState(name, int(to))
		}
	}
	s := &HTTPSource{
		client:  client,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("metadata-endpoint", cfg.Breaker),
		metrics: m,
		now:     time.Now,
		logger:  slog.Default().With("component", "metadata-http-source"),
	}
	if cfg.Origin == "" {
		// Requests then follow the caller-supplied Host header.
		s.logger.Warn("metadata origin not pinned; set preview.metadataOrigin in http mode")
	}
	return s
}

// Check reports an error while the breaker is open. Readiness uses it to
// mark the site degraded, since previews then fall back.
func (s *HTTPSource) Check(context.Context) error {
	if st := s.breaker.GetState(); st == resilience.StateOpen {
		return fmt.Errorf("%w: %s", resilience.ErrCircuitOpen, s.breaker.Name())
	}
	return nil
}

// Lookup calls GET {origin}/metadata/{kind}/{slug} with caching disabled.
// The whole exchange, retries included, is bounded by the configured timeout.
func (s *HTTPSource) Lookup(ctx context.Context, req Request) (Metadata, error) {
	origin := s.cfg.Origin
	if origin == "" {
		origin = req.Origin
	}
	if origin == "" {
		s.metrics.ObserveMetadataFetch("http", "unavailable")
		return Metadata{}, fmt.Errorf("%w: no origin to fetch metadata from", apperrors.ErrUpstreamUnavailable)
	}
	endpoint := s.endpoint(origin, req)

	var md Metadata
	var lookupErr error
	breakerErr := s.breaker.Execute(func() error {
		md, lookupErr = resilience.Within(ctx, s.cfg.Timeout, "metadata-fetch", func(ctx context.Context) (Metadata, error) {
			var out Metadata
			err := resilience.Retry(ctx, "metadata-fetch", s.cfg.Retry, func() error {
				var err error
				out, err = s.fetch(ctx, endpoint)
				return err
			})
			return out, err
		})
		// A well-formed "no such entry" answer means the endpoint is healthy.
		if apperrors.Is(lookupErr, apperrors.ErrNotFound) || apperrors.Is(lookupErr, apperrors.ErrBadRequest) {
			return nil
		}
		return lookupErr
	})

	switch {
	case errors.Is(breakerErr, resilience.ErrCircuitOpen):
		s.metrics.ObserveMetadataFetch("http", "circuit_open")
		return Metadata{}, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, breakerErr)
	case lookupErr == nil:
		s.metrics.ObserveMetadataFetch("http", "ok")
		return md, nil
	case apperrors.Is(lookupErr, apperrors.ErrNotFound):
		s.metrics.ObserveMetadataFetch("http", "not_found")
		return Metadata{}, lookupErr
	case apperrors.Is(lookupErr, apperrors.ErrBadRequest):
		s.metrics.ObserveMetadataFetch("http", "bad_request")
		return Metadata{}, lookupErr
	default:
		s.metrics.ObserveMetadataFetch("http", "unavailable")
		logger.Artifact(ctx, string(req.Kind), req.Slug, "fetch_metadata").Warn("metadata endpoint unavailable", "endpoint", endpoint, "error", lookupErr)
		if apperrors.Is(lookupErr, apperrors.ErrUpstreamUnavailable) {
			return Metadata{}, lookupErr
		}
		return Metadata{}, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnavailable, lookupErr)
	}
}

func (s *HTTPSource) endpoint(origin string, req Request) string {
	q := url.Values{}
	q.Set("t", strconv.FormatInt(s.now().UnixNano(), 10))
	return fmt.Sprintf("%s/metadata/%s/%s?%s",
		strings.TrimRight(origin, "/"),
		url.PathEscape(string(req.Kind)),
		url.PathEscape(req.Slug),
		q.Encode(),
	)
}

type metadataPayload struct {
	Metadata
	Error string `json:"error"`
}

func (s *HTTPSource) fetch(ctx context.Context, endpoint string) (Metadata, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Metadata{}, resilience.Permanent(fmt.Errorf("%w: building request: %v", apperrors.ErrUpstreamUnavailable, err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Pragma", "no-cache")
	if id := logger.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Metadata{}, fmt.Errorf("calling metadata endpoint: %w", err)
	}
	defer resp.Body.Close()

	var payload metadataPayload
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBody)).Decode(&payload)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Metadata{}, resilience.Permanent(apperrors.NotFoundf("%s", errorText(payload, "not found")))
	case resp.StatusCode == http.StatusBadRequest:
		return Metadata{}, resilience.Permanent(apperrors.BadRequestf("%s", errorText(payload, "bad request")))
	case resp.StatusCode >= http.StatusInternalServerError:
		return Metadata{}, fmt.Errorf("metadata endpoint returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Metadata{}, resilience.Permanent(fmt.Errorf("%w: metadata endpoint returned %d", apperrors.ErrUpstreamUnavailable, resp.StatusCode))
	}
	if decodeErr != nil {
		return Metadata{}, resilience.Permanent(fmt.Errorf("%w: decoding metadata: %v", apperrors.ErrUpstreamUnavailable, decodeErr))
	}
	if payload.Error != "" {
		return Metadata{}, resilience.Permanent(fmt.Errorf("%w: metadata endpoint error: %s", apperrors.ErrUpstreamUnavailable, payload.Error))
	}
	if payload.Title == "" {
		return Metadata{}, resilience.Permanent(fmt.Errorf("%w: metadata payload has no title", apperrors.ErrUpstreamUnavailable))
	}
	return payload.Metadata, nil
}

func errorText(p metadataPayload, fallback string) string {
	if p.Error != "" {
		return p.Error
	}
	return fallback
}
