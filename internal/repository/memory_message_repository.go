package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
)

// MemoryMessageRepository keeps messages in process memory. It is meant for
// local development and tests; nothing survives a restart.
type MemoryMessageRepository struct {
	mu        sync.RWMutex
	messages  map[string]message.Message
	connected bool
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{messages: make(map[string]message.Message)}
}

func (r *MemoryMessageRepository) Connect(ctx context.Context) error {
	r.mu.Lock()
	r.connected = true
	r.mu.Unlock()
	return nil
}

func (r *MemoryMessageRepository) Insert(ctx context.Context, m *message.Message) (string, error) {
	if err := validateMessage(m); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.connected {
		return "", gql_errors.ErrConnection
	}

	id := uuid.NewString()
	stored := message.Message{ID: id, Text: m.Text, CreatedBy: m.CreatedBy}
	r.messages[id] = stored
	m.ID = id
	return id, nil
}

func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (message.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.connected {
		return message.Message{}, gql_errors.ErrConnection
	}

	m, ok := r.messages[id]
	if !ok {
		return message.Message{}, gql_errors.ErrNotFound
	}
	return m, nil
}

func (r *MemoryMessageRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.connected {
		return gql_errors.ErrConnection
	}
	return nil
}

func (r *MemoryMessageRepository) Close(ctx context.Context) error {
	r.mu.Lock()
	r.connected = false
	r.mu.Unlock()
	return nil
}

// Count returns the number of stored messages.
func (r *MemoryMessageRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.messages)
}
