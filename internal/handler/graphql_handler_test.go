package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/events"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/graph"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/handler"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/repository"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/services"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/websocket"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	engine, _ := newEngineWithStore(t)
	return engine
}

func newEngineWithStore(t *testing.T) (*gin.Engine, *repository.MemoryMessageRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryMessageRepository()
	require.NoError(t, repo.Connect(context.Background()))
	broker := events.NewMemoryBroker(16, logger.NewNop())
	svc := services.NewMessageService(repo, broker, logger.NewNop())
	schema, err := graph.NewSchema(graph.NewResolver(svc))
	require.NoError(t, err)

	hub := websocket.NewHub()
	h := handler.NewGraphQLHandler(schema, websocket.NewHandler(schema, hub, logger.NewNop()), "/graphql", logger.NewNop())
	t.Cleanup(func() {
		hub.Shutdown()
		_ = broker.Close()
	})

	engine := gin.New()
	engine.POST("/graphql", h.Query)
	engine.GET("/graphql", h.Serve)
	return engine, repo
}

func post(t *testing.T, engine *gin.Engine, body interface{}) (*httptest.ResponseRecorder, graphqlResponse) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var out graphqlResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestGraphQLHandler_CreateThenQuery(t *testing.T) {
	engine := newEngine(t)

	w, resp := post(t, engine, map[string]interface{}{
		"query": `mutation { createMessage(messageInput: {text: "hello", username: "ann"}) { id text createdBy } }`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp.Errors)

	var created struct {
		CreateMessage struct {
			ID        string `json:"id"`
			Text      string `json:"text"`
			CreatedBy string `json:"createdBy"`
		} `json:"createMessage"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.NotEmpty(t, created.CreateMessage.ID)
	assert.Equal(t, "hello", created.CreateMessage.Text)
	assert.Equal(t, "ann", created.CreateMessage.CreatedBy)

	w, resp = post(t, engine, map[string]interface{}{
		"query":         `query Get($id: ID!) { message(id: $id) { text createdBy } }`,
		"operationName": "Get",
		"variables":     map[string]interface{}{"id": created.CreateMessage.ID},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"message":{"text":"hello","createdBy":"ann"}}`, string(resp.Data))
}

func TestGraphQLHandler_ValidationErrorInBody(t *testing.T) {
	engine := newEngine(t)

	w, resp := post(t, engine, map[string]interface{}{
		"query": `mutation { createMessage(messageInput: {text: "hello"}) { id } }`,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0].Message, "createdBy")
}

func TestGraphQLHandler_BadRequest(t *testing.T) {
	engine := newEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(t, engine, map[string]interface{}{"variables": map[string]interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "query is required")
}

func TestGraphQLHandler_ServesPlayground(t *testing.T) {
	engine := newEngine(t)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "GraphQLPlayground.init")
}

func TestGraphQLHandler_GetQuery(t *testing.T) {
	engine := newEngine(t)

	params := url.Values{}
	params.Set("query", `query Get($id: ID!) { message(id: $id) { text } }`)
	params.Set("variables", `{"id":"missing"}`)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"message":null}}`, w.Body.String())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?query=%7B__typename%7D&variables=nope", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphQLHandler_GetRejectsMutation(t *testing.T) {
	engine, store := newEngineWithStore(t)

	params := url.Values{}
	params.Set("query", `mutation { createMessage(messageInput: {text: "hi", username: "eve"}) { id text } }`)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	assert.Contains(t, w.Body.String(), "METHOD_NOT_ALLOWED")

	// the named operation decides, not the first one in the document
	params = url.Values{}
	params.Set("query", `query Get { message(id: "x") { text } }
mutation Create { createMessage(messageInput: {text: "hi", username: "eve"}) { id } }`)
	params.Set("operationName", "Create")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	params.Set("operationName", "Get")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"message":null}}`, w.Body.String())

	assert.Zero(t, store.Count(), "rejected mutations must not be stored")
}

func TestGraphQLHandler_UpgradesWebSocket(t *testing.T) {
	ts := httptest.NewServer(newEngine(t))
	defer ts.Close()

	dialer := gorilla.Dialer{Subprotocols: []string{websocket.SubprotocolTransportWS}}
	conn, _, err := dialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/graphql", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, websocket.SubprotocolTransportWS, conn.Subprotocol())

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "connection_init"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "connection_ack", ack.Type)
}
