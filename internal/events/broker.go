package events

import "context"

// Broker delivers named events to every subscriber registered under that
// name at publish time. Missed events are not replayed.
type Broker interface {
	Publish(ctx context.Context, name string, env Envelope) error
	// Subscribe registers a new subscriber. The subscription is removed when
	// ctx is done or Close is called, whichever happens first.
	Subscribe(ctx context.Context, name string) (*Subscription, error)
	SubscriberCount(name string) int
	Close() error
}
