package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Subscription is one subscriber's view of a named event stream.
type Subscription struct {
	ID   string
	Name string

	ch     chan Envelope
	done   chan struct{}
	once   sync.Once
	detach func()
}

// newSubscription creates a subscription with a buffered queue. detach must
// guarantee that deliver is never called again once it returns.
func newSubscription(name string, buffer int, detach func()) *Subscription {
	if buffer <= 0 {
		buffer = 1
	}
	return &Subscription{
		ID:     uuid.NewString(),
		Name:   name,
		ch:     make(chan Envelope, buffer),
		done:   make(chan struct{}),
		detach: detach,
	}
}

// Events yields envelopes in publish order. The channel is closed after Close.
func (s *Subscription) Events() <-chan Envelope {
	return s.ch
}

// Done is closed once the subscription has been torn down.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close deregisters the subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.detach != nil {
			s.detach()
		}
		close(s.done)
		close(s.ch)
	})
}

// deliver enqueues env without blocking and reports whether it fit.
func (s *Subscription) deliver(env Envelope) bool {
	select {
	case s.ch <- env:
		return true
	default:
		return false
	}
}

// closeOnDone tears the subscription down when ctx ends.
func (s *Subscription) closeOnDone(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
}
