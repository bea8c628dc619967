package eventsink

import (
	"sync"

	"fenrir/internal/domain"
)

// Recorder is a synchronous, in-memory Sink used by tests that need to
// assert on exactly which events a Coordinator operation emitted.
type Recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of every event published so far, in publish order.
func (r *Recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByTopic filters recorded events to a single topic.
func (r *Recorder) ByTopic(kind domain.EventKind) []domain.Event {
	var out []domain.Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
