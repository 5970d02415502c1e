// Package events carries diagnostic events out of the report pipeline.
//
// Events are observability only: emitting one never changes pipeline
// behaviour. The framework persists them into the store's events table; tests
// use a Recorder.
package events

import (
	"context"
	"sync"
)

// Event names emitted by the pipeline and the collectors
const (
	ArtifactSkipped   = "artifact_skipped"
	ArtifactCapped    = "artifact_capped"
	ContentTruncated  = "content_truncated"
	StateChanged      = "state_changed"
	ModelInvoked      = "model_invoked"
	ContractViolation = "contract_violation"
	CollectionFailed  = "collection_failed"
)

// Sink receives diagnostic events
type Sink interface {
	Emit(ctx context.Context, name string, attrs map[string]any)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, name string, attrs map[string]any)

// Emit calls f
func (f SinkFunc) Emit(ctx context.Context, name string, attrs map[string]any) {
	f(ctx, name, attrs)
}

type nopSink struct{}

func (nopSink) Emit(context.Context, string, map[string]any) {}

// Nop returns a Sink that drops every event
func Nop() Sink {
	return nopSink{}
}

// OrNop returns s, or a no-op sink when s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return nopSink{}
	}
	return s
}

// Event is a recorded diagnostic event
type Event struct {
	Name  string
	Attrs map[string]any
}

// Recorder is a Sink that keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event
func (r *Recorder) Emit(_ context.Context, name string, attrs map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cp[k] = v
	}
	r.events = append(r.events, Event{Name: name, Attrs: cp})
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]Event, len(r.events))
	copy(result, r.events)
	return result
}

// Named returns the recorded events with the given name
func (r *Recorder) Named(name string) []Event {
	var result []Event
	for _, e := range r.Events() {
		if e.Name == name {
			result = append(result, e)
		}
	}
	return result
}
