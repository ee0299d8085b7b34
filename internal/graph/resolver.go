package graph

import (
	"context"
	"errors"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
)

// MessageService is the part of services.MessageService the schema needs.
type MessageService interface {
	CreateMessage(ctx context.Context, text, createdBy string) (message.Message, error)
	GetMessage(ctx context.Context, id string) (message.Message, error)
	SubscribeMessageCreated(ctx context.Context) (<-chan message.Message, error)
}

// Resolver is the root resolver for Query, Mutation and Subscription.
type Resolver struct {
	service MessageService
}

func NewResolver(service MessageService) *Resolver {
	return &Resolver{service: service}
}

// Message resolves to null for unknown ids; not found is not an error.
func (r *Resolver) Message(ctx context.Context, args struct{ ID graphql.ID }) (*MessageResolver, error) {
	msg, err := r.service.GetMessage(ctx, string(args.ID))
	if err != nil {
		if errors.Is(err, gql_errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	// the caller already holds the id; only create responses surface it
	msg.ID = ""
	return &MessageResolver{msg: msg}, nil
}

type MessageInput struct {
	Text     *string
	Username *string
}

func (r *Resolver) CreateMessage(ctx context.Context, args struct{ MessageInput *MessageInput }) (*MessageResolver, error) {
	var text, username string
	if in := args.MessageInput; in != nil {
		text = deref(in.Text)
		username = deref(in.Username)
	}

	msg, err := r.service.CreateMessage(ctx, text, username)
	if err != nil {
		return nil, err
	}
	return &MessageResolver{msg: msg}, nil
}

func (r *Resolver) MessageCreated(ctx context.Context) (<-chan *MessageResolver, error) {
	feed, err := r.service.SubscribeMessageCreated(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan *MessageResolver)
	go func() {
		defer close(out)
		for msg := range feed {
			select {
			case out <- &MessageResolver{msg: msg}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

type MessageResolver struct {
	msg message.Message
}

// ID is set on create responses only. Lookups and subscription payloads
// resolve it to null.
func (m *MessageResolver) ID() *graphql.ID {
	if m.msg.ID == "" {
		return nil
	}
	id := graphql.ID(m.msg.ID)
	return &id
}

func (m *MessageResolver) Text() *string {
	return &m.msg.Text
}

func (m *MessageResolver) CreatedBy() *string {
	return &m.msg.CreatedBy
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
