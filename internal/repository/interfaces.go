package repository

import (
	"context"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
)

// MessageRepository is the persistence gateway for the messages collection.
// Implementations own one long-lived connection opened by Connect.
type MessageRepository interface {
	Connect(ctx context.Context) error
	Insert(ctx context.Context, m *message.Message) (string, error)
	FindByID(ctx context.Context, id string) (message.Message, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
