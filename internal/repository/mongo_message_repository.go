package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/domain/message"
	gql_errors "github.com/Hemanta-dev/learn-subscription-gql/pkg/errors"
)

const collectionName = "messages"

// messageDocument mirrors the layout written by earlier versions of the
// service, so existing collections keep working.
type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Text      string             `bson:"text"`
	CreatedBy string             `bson:"createdBy"`
}

type MongoMessageRepository struct {
	uri            string
	database       string
	connectTimeout time.Duration

	mu     sync.RWMutex
	client *mongo.Client
	coll   *mongo.Collection
}

func NewMongoMessageRepository(uri, database string, connectTimeout time.Duration) *MongoMessageRepository {
	return &MongoMessageRepository{
		uri:            uri,
		database:       database,
		connectTimeout: connectTimeout,
	}
}

func (r *MongoMessageRepository) Connect(ctx context.Context) error {
	opts := options.Client().ApplyURI(r.uri)
	if r.connectTimeout > 0 {
		opts.SetServerSelectionTimeout(r.connectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("%w: mongo connect: %v", gql_errors.ErrConnection, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("%w: mongo ping: %v", gql_errors.ErrConnection, err)
	}

	r.mu.Lock()
	r.client = client
	r.coll = client.Database(r.database).Collection(collectionName)
	r.mu.Unlock()
	return nil
}

func (r *MongoMessageRepository) collection() (*mongo.Collection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.coll == nil {
		return nil, gql_errors.ErrConnection
	}
	return r.coll, nil
}

func (r *MongoMessageRepository) Insert(ctx context.Context, m *message.Message) (string, error) {
	if err := validateMessage(m); err != nil {
		return "", err
	}
	coll, err := r.collection()
	if err != nil {
		return "", err
	}

	res, err := coll.InsertOne(ctx, messageDocument{Text: m.Text, CreatedBy: m.CreatedBy})
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to convert inserted ID %v to ObjectID", res.InsertedID)
	}
	m.ID = oid.Hex()
	return m.ID, nil
}

func (r *MongoMessageRepository) FindByID(ctx context.Context, id string) (message.Message, error) {
	coll, err := r.collection()
	if err != nil {
		return message.Message{}, err
	}

	// a malformed id can never have been issued by this store
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return message.Message{}, gql_errors.ErrNotFound
	}

	var doc messageDocument
	if err := coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return message.Message{}, gql_errors.ErrNotFound
		}
		return message.Message{}, fmt.Errorf("failed to find message: %w", err)
	}

	return message.Message{
		ID:        doc.ID.Hex(),
		Text:      doc.Text,
		CreatedBy: doc.CreatedBy,
	}, nil
}

func (r *MongoMessageRepository) Ping(ctx context.Context) error {
	r.mu.RLock()
	client := r.client
	r.mu.RUnlock()
	if client == nil {
		return gql_errors.ErrConnection
	}
	return client.Ping(ctx, readpref.Primary())
}

func (r *MongoMessageRepository) Close(ctx context.Context) error {
	r.mu.Lock()
	client := r.client
	r.client = nil
	r.coll = nil
	r.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Disconnect(ctx)
}
