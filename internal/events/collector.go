package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/stockguides/site/pkg/kafka"
	"github.com/stockguides/site/pkg/metrics"
)

const maxBatch = 100

// Publisher writes a batch of events to the broker.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers events in memory and publishes them in batches from a
// single goroutine. Track never blocks: when the buffer is full, or the
// collector is closed, the event is dropped and counted.
type Collector struct {
	publisher Publisher
	eventCh   chan ArtifactEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan ArtifactEvent, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "artifact-events"),
		done:      make(chan struct{}),
	}
}

// Start launches the publishing loop. The loop runs until Close, so events
// tracked while the servers drain still go out; cancelling ctx does not stop
// it and does not abort in-flight publishes.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	pubCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		for event := range c.eventCh {
			c.publish(pubCtx, c.fill([]ArtifactEvent{event}))
		}
	}()
	c.logger.Info("artifact event collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(event ArtifactEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.metrics.EventDropped()
		c.logger.Debug("artifact event dropped (collector closed)", "artifact", event.Artifact, "kind", event.Kind)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.metrics.EventDropped()
		c.logger.Warn("artifact event dropped (buffer full)", "artifact", event.Artifact, "kind", event.Kind)
	}
}

// Close stops accepting events, publishes what is buffered and waits for the
// loop to finish. Call it after the HTTP servers have shut down. Safe to call
// more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	started := c.started
	c.mu.Unlock()

	if !started {
		c.drainRemaining(context.Background())
		return
	}
	<-c.done
}

// fill appends whatever is already buffered, up to maxBatch.
func (c *Collector) fill(batch []ArtifactEvent) []ArtifactEvent {
	for len(batch) < maxBatch {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, event)
		default:
			return batch
		}
	}
	return batch
}

func (c *Collector) publish(ctx context.Context, batch []ArtifactEvent) {
	if len(batch) == 0 {
		return
	}
	msgs := make([]kafka.Event, len(batch))
	for i, e := range batch {
		msgs[i] = kafka.Event{Key: e.Key(), Value: e}
	}
	if err := c.publisher.PublishBatch(ctx, msgs); err != nil {
		c.logger.Error("failed to publish artifact events", "count", len(batch), "error", err)
	}
}

// drainRemaining publishes a closed, never-started buffer.
func (c *Collector) drainRemaining(ctx context.Context) {
	for {
		batch := c.fill(nil)
		if len(batch) == 0 {
			return
		}
		c.publish(ctx, batch)
	}
}
