package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	graphql "github.com/graph-gophers/graphql-go"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/graph"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/transport/httpdto"
	"github.com/Hemanta-dev/learn-subscription-gql/internal/websocket"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

type GraphQLHandler struct {
	schema   *graphql.Schema
	ws       *websocket.Handler
	endpoint string
	logger   *logger.Logger
}

func NewGraphQLHandler(schema *graphql.Schema, ws *websocket.Handler, endpoint string, l *logger.Logger) *GraphQLHandler {
	if l == nil {
		l = logger.NewNop()
	}
	return &GraphQLHandler{schema: schema, ws: ws, endpoint: endpoint, logger: l}
}

// Query executes a query or mutation sent as JSON.
func (h *GraphQLHandler) Query(c *gin.Context) {
	var req httpdto.GraphQLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	h.exec(c, req)
}

// Serve answers GET on the endpoint. WebSocket upgrades carry subscriptions,
// a query parameter runs a query, anything else gets the playground.
func (h *GraphQLHandler) Serve(c *gin.Context) {
	if websocket.IsUpgrade(c) && h.ws != nil {
		h.ws.Connect(c)
		return
	}

	query := c.Query("query")
	if query == "" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", playgroundPage(h.endpoint))
		return
	}

	req := httpdto.GraphQLRequest{Query: query, OperationName: c.Query("operationName")}
	// GET must stay safe: mutations and subscriptions need POST or a socket
	if kind, ok := graph.OperationType(req.Query, req.OperationName); ok && kind != graph.OperationQuery {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, httpdto.NewErrorResponse(
			"can only perform a "+kind+" operation from a POST request", "METHOD_NOT_ALLOWED"))
		return
	}
	if raw := c.Query("variables"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid variables", "INVALID_REQUEST"))
			return
		}
	}
	h.exec(c, req)
}

func (h *GraphQLHandler) exec(c *gin.Context, req httpdto.GraphQLRequest) {
	resp := h.schema.Exec(c.Request.Context(), req.Query, req.OperationName, req.Variables)
	if len(resp.Errors) > 0 {
		h.logger.Ctx(c.Request.Context()).Debugf("graphql operation %q returned %d error(s): %s",
			req.OperationName, len(resp.Errors), resp.Errors[0].Message)
	}
	c.JSON(http.StatusOK, resp)
}
