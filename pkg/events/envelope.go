// Package events defines the envelope scoring events travel in and the sinks
// that receive them.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Envelope wraps a domain event with routing and deduplication metadata.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type routes the event, e.g. "scoring.response_scored".
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	// Version is the payload schema version.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is stable across activity retries so sinks can drop
	// duplicates.
	IdempotencyKey string `json:"idempotency_key"`

	// WorkflowID and RunID correlate the event with its Temporal execution.
	// Both are empty for events emitted outside a workflow.
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`

	Payload json.RawMessage `json:"payload"`
}

// EventSink receives events. Delivery is best effort: callers log sink
// failures and carry on, so implementations should return quickly.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (NoOpEventSink) Append(context.Context, Envelope) error { return nil }

// NewNoOpEventSink returns a sink that discards events.
func NewNoOpEventSink() EventSink { return NoOpEventSink{} }

// LogSink writes each event as one structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	s.logger.InfoContext(ctx, "event",
		"type", e.Type,
		"id", e.ID,
		"idempotency_key", e.IdempotencyKey,
		"workflow_id", e.WorkflowID,
		"payload", json.RawMessage(e.Payload),
	)
	return nil
}

// MemorySink keeps events in memory, dropping repeats of an idempotency key.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (s *MemorySink) Append(_ context.Context, e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.IdempotencyKey != "" {
		if _, dup := s.seen[e.IdempotencyKey]; dup {
			return nil
		}
		s.seen[e.IdempotencyKey] = struct{}{}
	}
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the stored events in arrival order.
func (s *MemorySink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Envelope, len(s.events))
	copy(out, s.events)
	return out
}
