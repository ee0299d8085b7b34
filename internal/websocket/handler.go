package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	graphql "github.com/graph-gophers/graphql-go"
	"go.uber.org/zap"

	"github.com/Hemanta-dev/learn-subscription-gql/internal/graph"
	"github.com/Hemanta-dev/learn-subscription-gql/pkg/logger"
)

const defaultInitTimeout = 10 * time.Second

// Executor runs GraphQL operations. *graphql.Schema satisfies it.
type Executor interface {
	Exec(ctx context.Context, queryString string, operationName string, variables map[string]interface{}) *graphql.Response
	Subscribe(ctx context.Context, queryString string, operationName string, variables map[string]interface{}) (<-chan interface{}, error)
}

type Handler struct {
	schema      Executor
	hub         *Hub
	logger      *Logger
	upgrader    websocket.Upgrader
	initTimeout time.Duration
}

func NewHandler(schema Executor, hub *Hub, l *logger.Logger) *Handler {
	return &Handler{
		schema: schema,
		hub:    hub,
		logger: NewLogger(l),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{SubprotocolTransportWS, SubprotocolGraphQLWS},
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		initTimeout: defaultInitTimeout,
	}
}

// WithInitTimeout overrides how long a client may wait before connection_init.
func (h *Handler) WithInitTimeout(d time.Duration) *Handler {
	h.initTimeout = d
	return h
}

// IsUpgrade reports whether the request asks for a WebSocket.
func IsUpgrade(c *gin.Context) bool {
	return websocket.IsWebSocketUpgrade(c.Request)
}

// Connect upgrades the request and serves GraphQL operations until the
// client goes away.
func (h *Handler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("upgrade_failed", "", err)
		return
	}

	client := NewClient(conn, protocolFor(conn.Subprotocol()))
	ctx, cancel := context.WithCancel(h.hub.Context())
	defer cancel()

	h.hub.Register(client)
	defer h.hub.Unregister(client)
	h.logger.Info("connected", client.ID, zap.String("protocol", client.Protocol()))

	go client.WriteLoop(ctx)

	initTimer := time.AfterFunc(h.initTimeout, func() {
		if !client.isAcked() {
			h.logger.Warn("init_timeout", client.ID)
			client.closeWith(closeInitTimeout, "Connection initialisation timeout")
		}
	})
	defer initTimer.Stop()

	h.readLoop(ctx, client)
	client.close()
	h.logger.Info("disconnected", client.ID)
}

func (h *Handler) readLoop(ctx context.Context, client *Client) {
	conn := client.Conn
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("read_failed", client.ID, zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg operationMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			if !h.protocolError(client, "", closeBadRequest, "Invalid message received") {
				return
			}
			continue
		}
		if !h.dispatch(ctx, client, msg) {
			return
		}
	}
}

// dispatch handles one client message and reports whether to keep reading.
func (h *Handler) dispatch(ctx context.Context, client *Client, msg operationMessage) bool {
	p := client.protocol

	if p.terminate != "" && msg.Type == p.terminate {
		return false
	}

	switch msg.Type {
	case msgConnectionInit:
		if client.acknowledge() && p.closeCodes {
			client.closeWith(closeTooManyInits, "Too many initialisation requests")
			return false
		}
		client.SendMessage(encodeMessage("", msgConnectionAck, nil))
		if p.keepAlive != "" {
			client.SendMessage(encodeMessage("", p.keepAlive, nil))
		}
	case msgPing:
		client.SendMessage(encodeMessage("", msgPong, msg.Payload))
	case msgPong:
	case p.start:
		if !client.isAcked() {
			return h.protocolError(client, msg.ID, closeUnauthorized, "Unauthorized")
		}
		return h.startOperation(ctx, client, msg)
	case p.stop:
		client.removeOperation(msg.ID)
	default:
		return h.protocolError(client, msg.ID, closeBadRequest, fmt.Sprintf("Invalid message type %q", msg.Type))
	}
	return true
}

// protocolError closes the socket for protocols that use close codes and
// otherwise answers with an error message. It reports whether to keep reading.
func (h *Handler) protocolError(client *Client, id string, code int, reason string) bool {
	h.logger.Warn("protocol_error", client.ID, zap.String("reason", reason), zap.String("operation_id", id))
	if client.protocol.closeCodes {
		client.closeWith(code, reason)
		return false
	}
	msgType := client.protocol.errorType
	if id == "" {
		msgType = msgConnectionError
	}
	client.SendMessage(encodeMessage(id, msgType, client.protocol.errorPayload(reason)))
	return true
}

func (h *Handler) startOperation(ctx context.Context, client *Client, msg operationMessage) bool {
	p := client.protocol

	var payload startPayload
	if msg.ID == "" || json.Unmarshal(msg.Payload, &payload) != nil || payload.Query == "" {
		return h.protocolError(client, msg.ID, closeBadRequest, "Invalid subscribe payload")
	}

	opCtx, opCancel := context.WithCancel(ctx)
	if !client.addOperation(msg.ID, opCancel) {
		opCancel()
		return h.protocolError(client, msg.ID, closeSubscriberExists, fmt.Sprintf("Subscriber for %s already exists", msg.ID))
	}

	stream, err := h.run(opCtx, payload)
	if err != nil {
		client.removeOperation(msg.ID)
		client.SendMessage(encodeMessage(msg.ID, p.errorType, p.errorPayload(err.Error())))
		return true
	}

	h.hub.operationStarted()
	h.logger.Info("operation_started", client.ID, zap.String("operation_id", msg.ID))
	go h.forward(client, msg.ID, stream)
	return true
}

// run streams a subscription, or executes a query or mutation once and
// yields its single result.
func (h *Handler) run(ctx context.Context, payload startPayload) (<-chan interface{}, error) {
	kind, _ := graph.OperationType(payload.Query, payload.OperationName)
	if kind != graph.OperationQuery && kind != graph.OperationMutation {
		return h.schema.Subscribe(ctx, payload.Query, payload.OperationName, payload.Variables)
	}

	out := make(chan interface{}, 1)
	go func() {
		defer close(out)
		out <- h.schema.Exec(ctx, payload.Query, payload.OperationName, payload.Variables)
	}()
	return out, nil
}

// forward relays results until the stream ends. It sends complete only when
// the server ended the operation; a client stop gets no reply.
func (h *Handler) forward(client *Client, id string, stream <-chan interface{}) {
	defer h.hub.operationFinished()
	p := client.protocol

	for item := range stream {
		if resp, ok := item.(*graphql.Response); ok && len(resp.Data) == 0 && len(resp.Errors) > 0 {
			// request errors end the operation without a complete
			if client.removeOperation(id) {
				messages := make([]string, 0, len(resp.Errors))
				for _, e := range resp.Errors {
					messages = append(messages, e.Message)
				}
				client.SendMessage(encodeMessage(id, p.errorType, p.errorPayload(messages...)))
			}
			drain(stream)
			return
		}

		data, err := json.Marshal(item)
		if err != nil {
			h.logger.Error("encode_failed", client.ID, err, zap.String("operation_id", id))
			continue
		}
		if !client.SendMessage(encodeMessage(id, p.data, json.RawMessage(data))) {
			h.logger.Warn("payload_dropped", client.ID, zap.String("operation_id", id))
		}
	}

	if client.removeOperation(id) {
		client.SendMessage(encodeMessage(id, p.complete, nil))
	}
	h.logger.Info("operation_finished", client.ID, zap.String("operation_id", id))
}

func drain(stream <-chan interface{}) {
	for range stream {
	}
}
