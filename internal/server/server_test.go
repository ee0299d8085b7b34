package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hemanta-dev/learn-subscription-gql/config"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/events"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/graph"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/handler"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/repository"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/services"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/websocket"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

type unhealthy struct{}

func (unhealthy) Health(context.Context) error { return errors.New("store down") }
func (unhealthy) SubscriberCount() int         { return 0 }

func newTestServer(t *testing.T, health HealthChecker) *Server {
	t.Helper()
	cfg := &config.Config{AppPort: "0", AppMode: TestMode, GraphQLPath: "/graphql"}

	repo := repository.NewMemoryMessageRepository()
	require.NoError(t, repo.Connect(context.Background()))
	broker := events.NewMemoryBroker(16, logger.NewNop())
	t.Cleanup(func() { _ = broker.Close() })
	svc := services.NewMessageService(repo, broker, logger.NewNop())
	schema, err := graph.NewSchema(graph.NewResolver(svc))
	require.NoError(t, err)

	hub := websocket.NewHub()
	srv := New(cfg, hub, logger.NewNop())
	if health == nil {
		health = svc
	}
	srv.SetupRoutes(&Handlers{
		GraphQL: handler.NewGraphQLHandler(schema, websocket.NewHandler(schema, hub, logger.NewNop()), cfg.GraphQLPath, logger.NewNop()),
		Health:  health,
	})
	return srv
}

func TestServer_Ping(t *testing.T) {
	srv := newTestServer(t, nil)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"message":"pong"}}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil)

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Status  string `json:"status"`
			Clients int    `json:"clients"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Zero(t, body.Data.Clients)
}

func TestServer_HealthUnavailable(t *testing.T) {
	srv := newTestServer(t, unhealthy{})

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "UNHEALTHY")
}

func TestServer_GraphQLRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"query":"mutation { createMessage(messageInput: {text: \"hi\", username: \"bo\"}) { text createdBy } }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"createMessage":{"text":"hi","createdBy":"bo"}}}`, w.Body.String())
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	srv := newTestServer(t, nil)
	assert.NoError(t, srv.Shutdown())
}
