package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/events"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/repository"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

const publishTimeout = 5 * time.Second

type MessageService struct {
	repo   repository.MessageRepository
	broker events.Broker
	logger *logger.Logger
}

func NewMessageService(repo repository.MessageRepository, broker events.Broker, l *logger.Logger) *MessageService {
	if l == nil {
		l = logger.NewNop()
	}
	return &MessageService{
		repo:   repo,
		broker: broker,
		logger: l.With(zap.String("component", "message_service")),
	}
}

// CreateMessage stores a message and then announces it on MESSAGE_CREATED.
// Nothing is published when the store rejects the write.
func (s *MessageService) CreateMessage(ctx context.Context, text, createdBy string) (message.Message, error) {
	msg := message.Message{Text: text, CreatedBy: createdBy}
	if _, err := s.repo.Insert(ctx, &msg); err != nil {
		return message.Message{}, fmt.Errorf("create message: %w", err)
	}

	env, err := events.NewEnvelope(events.EventMessageCreated, events.AggregateTypeMessage, msg.ID, msg.CreatedPayload())
	if err != nil {
		s.logger.Ctx(ctx).Errorf("message %s stored but not announced: %v", msg.ID, err)
		return msg, nil
	}
	// the insert has committed; a caller hanging up must not cancel the announcement
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.broker.Publish(publishCtx, events.EventMessageCreated, env); err != nil {
		s.logger.Ctx(ctx).Errorf("message %s stored but not announced: %v", msg.ID, err)
	}
	return msg, nil
}

// GetMessage returns gql_errors.ErrNotFound for ids the store never issued.
func (s *MessageService) GetMessage(ctx context.Context, id string) (message.Message, error) {
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gql_errors.ErrNotFound) {
			return message.Message{}, err
		}
		return message.Message{}, fmt.Errorf("get message %s: %w", id, err)
	}
	return msg, nil
}

// SubscribeMessageCreated yields one message per MESSAGE_CREATED event
// published after registration. The channel closes and the broker
// subscription is released when ctx is done.
func (s *MessageService) SubscribeMessageCreated(ctx context.Context) (<-chan message.Message, error) {
	sub, err := s.broker.Subscribe(ctx, events.EventMessageCreated)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", events.EventMessageCreated, err)
	}

	out := make(chan message.Message)
	go func() {
		defer close(out)
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case env, ok := <-sub.Events():
				if !ok {
					return
				}
				var payload message.CreatedPayload
				if err := env.Decode(&payload); err != nil {
					s.logger.Warnf("skipping event: %v", err)
					continue
				}
				select {
				case out <- payload.Message():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Health reports whether the store answers.
func (s *MessageService) Health(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", gql_errors.ErrServiceUnavailable, err)
	}
	return nil
}

// SubscriberCount is the number of live MESSAGE_CREATED subscribers.
func (s *MessageService) SubscriberCount() int {
	return s.broker.SubscriberCount(events.EventMessageCreated)
}
