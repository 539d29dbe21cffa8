// Package health runs dependency checks in parallel and serves liveness and
// readiness probes. A failing critical check takes the site down; a failing
// optional one only degrades it.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Probe returns nil when the dependency is usable.
type Probe func(ctx context.Context) error

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

type check struct {
	probe    Probe
	critical bool
}

// Checker manages registered probes and runs them concurrently.
type Checker struct {
	checks map[string]check
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]check),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a probe whose failure marks the whole report down.
func (c *Checker) Register(name string, probe Probe) {
	c.add(name, probe, true)
}

// RegisterOptional adds a probe whose failure only degrades the report.
func (c *Checker) RegisterOptional(name string, probe Probe) {
	c.add(name, probe, false)
}

func (c *Checker) add(name string, probe Probe, critical bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check{probe: probe, critical: critical}
}

// Run executes all probes concurrently. The overall status is the worst
// component status.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]check, len(c.checks))
	for name, ch := range c.checks {
		checks[name] = ch
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, ch := range checks {
		wg.Add(1)
		go func(n string, ch check) {
			defer wg.Done()
			start := time.Now()
			result := ComponentHealth{Status: StatusUp}
			if err := ch.probe(ctx); err != nil {
				result.Status = StatusDegraded
				if ch.critical {
					result.Status = StatusDown
				}
				result.Message = err.Error()
				c.logger.Warn("health check failed", "check", n, "critical", ch.critical, "error", err)
			}
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			report.Components[n] = result
			mu.Unlock()
		}(name, ch)
	}
	wg.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			return report
		case StatusDegraded:
			report.Status = StatusDegraded
		}
	}
	return report
}

// LiveHandler answers liveness probes without running checks.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}

// ReadyHandler answers readiness probes. A degraded site still serves
// traffic, so only StatusDown yields 503.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(report)
	}
}
