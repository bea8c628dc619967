// Package eventsink provides the exchange's in-process event publisher: a
// single tomb-supervised drain worker over a buffered channel, in the same
// worker-pool idiom the rest of this codebase uses for long-running
// goroutines.
package eventsink

import (
	"context"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"fenrir/internal/domain"
)

const defaultQueueSize = 1024

// Downstream is whatever durable destination events are published to
// (a log, a message broker, a webhook...). It is an external collaborator;
// the exchange core only depends on the Sink interface.
type Downstream func(event domain.Event) error

// Async is the default Sink: Publish enqueues without blocking on I/O, and
// a single background worker drains the queue in order, calling Downstream
// and logging-and-swallowing any failure. A single drain worker is a
// deliberate choice: it gives strict global publish order without needing
// per-key routing.
type Async struct {
	downstream Downstream
	queue      chan domain.Event
	t          *tomb.Tomb
}

// NewAsync builds an Async sink around downstream. Call Start to begin
// draining and Stop to shut down cleanly.
func NewAsync(downstream Downstream) *Async {
	return &Async{
		downstream: downstream,
		queue:      make(chan domain.Event, defaultQueueSize),
	}
}

// Start launches the drain worker under ctx.
func (a *Async) Start(ctx context.Context) {
	t, ctx := tomb.WithContext(ctx)
	a.t = t
	t.Go(func() error {
		return a.drain(ctx)
	})
}

// Stop signals the drain worker to exit and waits for it.
func (a *Async) Stop() {
	if a.t == nil {
		return
	}
	a.t.Kill(nil)
	_ = a.t.Wait()
}

func (a *Async) drain(ctx context.Context) error {
	log.Info().Msg("event sink worker starting")
	for {
		select {
		case <-a.t.Dying():
			return nil
		case <-ctx.Done():
			return nil
		case event := <-a.queue:
			if err := a.downstream(event); err != nil {
				log.Error().
					Err(err).
					Str("eventID", event.ID).
					Str("topic", event.Kind.Topic()).
					Str("key", event.Key).
					Msg("event publish failed, dropping")
			}
		}
	}
}

// Publish enqueues event for asynchronous delivery. If the queue is full,
// meaning the downstream destination is falling behind, the event is logged
// and dropped rather than blocking the submitting transaction. This is an
// accepted at-most-once gap between ledger state and the event stream.
func (a *Async) Publish(event domain.Event) {
	select {
	case a.queue <- event:
	default:
		log.Error().
			Str("eventID", event.ID).
			Str("topic", event.Kind.Topic()).
			Str("key", event.Key).
			Msg("event sink queue full, dropping event")
	}
}
