package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
)

const createMessagesTable = `
CREATE TABLE IF NOT EXISTS messages (
	id         UUID PRIMARY KEY,
	text       TEXT NOT NULL CHECK (text <> ''),
	created_by TEXT NOT NULL CHECK (created_by <> ''),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresMessageRepository struct {
	dsn string

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

func NewPostgresMessageRepository(dsn string) *PostgresMessageRepository {
	return &PostgresMessageRepository{dsn: dsn}
}

func (r *PostgresMessageRepository) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, r.dsn)
	if err != nil {
		return fmt.Errorf("%w: postgres connect: %v", gql_errors.ErrConnection, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("%w: postgres ping: %v", gql_errors.ErrConnection, err)
	}
	if _, err := pool.Exec(ctx, createMessagesTable); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create messages table: %w", err)
	}

	r.mu.Lock()
	r.pool = pool
	r.mu.Unlock()
	return nil
}

func (r *PostgresMessageRepository) getPool() (*pgxpool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.pool == nil {
		return nil, gql_errors.ErrConnection
	}
	return r.pool, nil
}

func (r *PostgresMessageRepository) Insert(ctx context.Context, m *message.Message) (string, error) {
	if err := validateMessage(m); err != nil {
		return "", err
	}
	pool, err := r.getPool()
	if err != nil {
		return "", err
	}

	id := uuid.New()
	_, err = pool.Exec(ctx,
		"INSERT INTO messages (id, text, created_by) VALUES ($1, $2, $3)",
		id.String(), m.Text, m.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}

	m.ID = id.String()
	return m.ID, nil
}

func (r *PostgresMessageRepository) FindByID(ctx context.Context, id string) (message.Message, error) {
	pool, err := r.getPool()
	if err != nil {
		return message.Message{}, err
	}

	uid, err := uuid.Parse(id)
	if err != nil {
		return message.Message{}, gql_errors.ErrNotFound
	}

	var m message.Message
	err = pool.QueryRow(ctx,
		"SELECT id::text, text, created_by FROM messages WHERE id = $1", uid.String()).
		Scan(&m.ID, &m.Text, &m.CreatedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return message.Message{}, gql_errors.ErrNotFound
		}
		return message.Message{}, fmt.Errorf("failed to find message: %w", err)
	}
	return m, nil
}

func (r *PostgresMessageRepository) Ping(ctx context.Context) error {
	pool, err := r.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (r *PostgresMessageRepository) Close(ctx context.Context) error {
	r.mu.Lock()
	pool := r.pool
	r.pool = nil
	r.mu.Unlock()
	if pool != nil {
		pool.Close()
	}
	return nil
}
