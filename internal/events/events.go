// Package events publishes a record of every artifact the site synthesizes
// so downstream consumers can see what crawlers and unfurlers asked for.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Artifact string

const (
	ArtifactPreview  Artifact = "preview"
	ArtifactMetadata Artifact = "metadata"
	ArtifactSitemap  Artifact = "sitemap"
	ArtifactPage     Artifact = "page"
)

// ArtifactEvent describes one synthesized response.
type ArtifactEvent struct {
	ID        string    `json:"id"`
	Artifact  Artifact  `json:"artifact"`
	Kind      string    `json:"kind"`
	Slug      string    `json:"slug,omitempty"`
	Outcome   string    `json:"outcome"`
	Format    string    `json:"format,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps an event with a fresh ID and the current time.
func New(artifact Artifact, kind, slug, outcome string) ArtifactEvent {
	return ArtifactEvent{
		ID:        uuid.NewString(),
		Artifact:  artifact,
		Kind:      kind,
		Slug:      slug,
		Outcome:   outcome,
		Timestamp: time.Now().UTC(),
	}
}

// Key partitions events so one artifact kind stays ordered.
func (e ArtifactEvent) Key() string {
	return string(e.Artifact) + ":" + e.Kind
}

// Tracker accepts events without blocking the caller.
type Tracker interface {
	Track(event ArtifactEvent)
}

// Discard is the Tracker used when publishing is disabled.
var Discard Tracker = discard{}

type discard struct{}

func (discard) Track(ArtifactEvent) {}
