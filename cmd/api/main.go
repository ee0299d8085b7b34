package main

import (
	"context"
	"os"
	"time"

	"github.com/Hemanta-dev/learn-subscription-gql/config"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/events"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/graph"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/handler"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/redis"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/repository"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/server"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/services"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/websocket"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	appLogger := logger.New(cfg.LogMode)
	defer appLogger.Sync()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatalf("Invalid configuration: %s", err)
	}

	repo := newRepository(cfg)
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	err := repo.Connect(connectCtx)
	cancel()
	if err != nil {
		appLogger.Fatalf("Failed to connect to the %s store: %s", cfg.StoreDriver, err)
	}
	appLogger.Infof("Connected to the %s store", cfg.StoreDriver)

	broker, err := newBroker(cfg, appLogger)
	if err != nil {
		closeRepository(repo, appLogger)
		appLogger.Fatalf("Failed to start the %s event broker: %s", cfg.EventBroker, err)
	}

	messageService := services.NewMessageService(repo, broker, appLogger)
	schema, err := graph.NewSchema(graph.NewResolver(messageService))
	if err != nil {
		appLogger.Fatalf("Failed to parse the GraphQL schema: %s", err)
	}

	hub := websocket.NewHub()
	wsHandler := websocket.NewHandler(schema, hub, appLogger)

	srv := server.New(cfg, hub, appLogger)
	srv.SetupRoutes(&server.Handlers{
		GraphQL: handler.NewGraphQLHandler(schema, wsHandler, cfg.GraphQLPath, appLogger),
		Health:  messageService,
	})

	exitCode := 0
	if err := srv.Start(); err != nil {
		appLogger.Errorf("Server exited: %s", err)
		exitCode = 1
	}

	if err := broker.Close(); err != nil {
		appLogger.Errorf("Failed to close the event broker: %s", err)
	}
	closeRepository(repo, appLogger)
	appLogger.Sync()
	os.Exit(exitCode)
}

func newRepository(cfg *config.Config) repository.MessageRepository {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return repository.NewPostgresMessageRepository(cfg.PostgresDSN())
	case config.StoreMemory:
		return repository.NewMemoryMessageRepository()
	default:
		return repository.NewMongoMessageRepository(cfg.MongoURI, cfg.MongoDatabase, cfg.ConnectTimeout)
	}
}

func newBroker(cfg *config.Config, l *logger.Logger) (events.Broker, error) {
	if cfg.EventBroker != config.BrokerRedis {
		return events.NewMemoryBroker(cfg.SubscriberBuffer, l), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	client, err := redis.Connect(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}
	return events.NewRedisBroker(client, cfg.SubscriberBuffer, l), nil
}

func closeRepository(repo repository.MessageRepository, l *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Close(ctx); err != nil {
		l.Errorf("Failed to close the store: %s", err)
	}
}
