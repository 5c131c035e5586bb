package broadcast

import "context"

// Event is a single fan-out message pushed to connected observers.
// Delivery is at-most-once: observers that are offline simply miss it.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher pushes events to every subscriber of the realtime channel.
// Publish is fire-and-forget from the caller's perspective; implementations
// must not retry or queue.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop discards every event. Used by tests and offline tooling.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }
