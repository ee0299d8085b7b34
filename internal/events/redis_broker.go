package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

// RedisBroker implements Broker over Redis Pub/Sub so that several processes
// share one event stream. Each Subscription holds its own Redis subscription.
type RedisBroker struct {
	client *redis.Client
	buffer int
	logger *logger.Logger

	mu     sync.Mutex
	counts map[string]int
	closed bool
}

func NewRedisBroker(client *redis.Client, buffer int, l *logger.Logger) *RedisBroker {
	if l == nil {
		l = logger.NewNop()
	}
	return &RedisBroker{
		client: client,
		buffer: buffer,
		logger: l.With(zap.String("component", "redis_broker")),
		counts: make(map[string]int),
	}
}

func channelName(name string) string {
	return ChannelPrefixEvent + name
}

func (b *RedisBroker) Publish(ctx context.Context, name string, env Envelope) error {
	if b.isClosed() {
		return gql_errors.ErrBrokerClosed
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(name), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channelName(name), err)
	}
	return nil
}

// Subscribe returns once Redis has confirmed the subscription, so events
// published after it returns are delivered.
func (b *RedisBroker) Subscribe(ctx context.Context, name string) (*Subscription, error) {
	if b.isClosed() {
		return nil, gql_errors.ErrBrokerClosed
	}

	pubsub := b.client.Subscribe(ctx, channelName(name))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channelName(name), err)
	}

	listenCtx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	sub := newSubscription(name, b.buffer, func() {
		cancel()
		_ = pubsub.Close()
		<-stopped
		b.track(name, -1)
	})
	b.track(name, 1)

	go b.listen(listenCtx, pubsub, sub, stopped)
	sub.closeOnDone(ctx)
	return sub, nil
}

func (b *RedisBroker) listen(ctx context.Context, pubsub *redis.PubSub, sub *Subscription, stopped chan struct{}) {
	defer close(stopped)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				// connection gone for good; release the subscriber
				go sub.Close()
				return
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warnf("dropping malformed event on %s: %v", msg.Channel, err)
				continue
			}
			if !sub.deliver(env) {
				b.logger.Warnf("subscriber %s queue full, dropped %s event", sub.ID, sub.Name)
			}
		}
	}
}

func (b *RedisBroker) track(name string, delta int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[name] += delta
	if b.counts[name] <= 0 {
		delete(b.counts, name)
	}
}

// SubscriberCount reports subscribers held by this process only.
func (b *RedisBroker) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[name]
}

func (b *RedisBroker) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close closes the underlying client, which ends every open subscription.
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.client.Close()
}
