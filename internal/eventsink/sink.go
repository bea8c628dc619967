package eventsink

import "fenrir/internal/domain"

// Sink is a durable, best-effort ordered (per key), at-least-once publisher
// of domain events. Publish is fire-and-forget from the Coordinator's point
// of view: a failure is logged, never returned to the caller as a
// transaction failure.
type Sink interface {
	Publish(event domain.Event)
}
