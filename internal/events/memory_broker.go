package events

import (
	"context"
	"sync"

	"go.uber.org/zap"

	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

// MemoryBroker is an in-process publish/subscribe bus keyed by event name.
// Every subscriber gets its own copy of each event (fan-out).
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[string]*Subscription
	buffer int
	closed bool
	logger *logger.Logger
}

func NewMemoryBroker(buffer int, l *logger.Logger) *MemoryBroker {
	if l == nil {
		l = logger.NewNop()
	}
	return &MemoryBroker{
		subs:   make(map[string]map[string]*Subscription),
		buffer: buffer,
		logger: l.With(zap.String("component", "memory_broker")),
	}
}

// Publish hands env to every current subscriber of name. A subscriber whose
// queue is full misses the event.
func (b *MemoryBroker) Publish(ctx context.Context, name string, env Envelope) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return gql_errors.ErrBrokerClosed
	}
	for id, sub := range b.subs[name] {
		if !sub.deliver(env) {
			b.logger.Warnf("subscriber %s queue full, dropped %s event", id, name)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(name, b.buffer, func() { b.remove(name, sub.ID) })

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, gql_errors.ErrBrokerClosed
	}
	if _, ok := b.subs[name]; !ok {
		b.subs[name] = make(map[string]*Subscription)
	}
	b.subs[name][sub.ID] = sub
	b.mu.Unlock()

	sub.closeOnDone(ctx)
	b.logger.Debugf("subscriber %s registered for %s", sub.ID, name)
	return sub, nil
}

func (b *MemoryBroker) remove(name, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subs[name]; ok {
		delete(subscribers, id)
		if len(subscribers) == 0 {
			delete(b.subs, name)
		}
	}
}

func (b *MemoryBroker) SubscriberCount(name string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[name])
}

// Close tears down every subscription and rejects further use.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*Subscription
	for _, subscribers := range b.subs {
		for _, sub := range subscribers {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}
