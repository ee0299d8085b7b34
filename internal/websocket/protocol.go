package websocket

import (
	"encoding/json"
	"strings"
)

// Supported WebSocket subprotocols.
const (
	SubprotocolTransportWS = "graphql-transport-ws"
	SubprotocolGraphQLWS   = "graphql-ws"
)

// Message types shared by both subprotocols.
const (
	msgConnectionInit  = "connection_init"
	msgConnectionAck   = "connection_ack"
	msgConnectionError = "connection_error"
	msgPing            = "ping"
	msgPong            = "pong"
)

// Close codes used by graphql-transport-ws.
const (
	closeBadRequest       = 4400
	closeUnauthorized     = 4401
	closeInitTimeout      = 4408
	closeSubscriberExists = 4409
	closeTooManyInits     = 4429
)

// protocol maps the operation lifecycle onto one subprotocol's message names.
type protocol struct {
	name      string
	start     string
	stop      string
	data      string
	errorType string
	complete  string
	keepAlive string
	terminate string
	// closeCodes reports whether protocol violations close the socket
	// with a 44xx code instead of answering with an error message.
	closeCodes bool
}

var (
	transportWS = protocol{
		name:       SubprotocolTransportWS,
		start:      "subscribe",
		stop:       "complete",
		data:       "next",
		errorType:  "error",
		complete:   "complete",
		closeCodes: true,
	}
	// graphql-ws is the subscriptions-transport-ws wire format.
	graphqlWS = protocol{
		name:      SubprotocolGraphQLWS,
		start:     "start",
		stop:      "stop",
		data:      "data",
		errorType: "error",
		complete:  "complete",
		keepAlive: "ka",
		terminate: "connection_terminate",
	}
)

// protocolFor picks the protocol negotiated during the upgrade. Clients that
// name no subprotocol get graphql-ws.
func protocolFor(subprotocol string) protocol {
	if subprotocol == SubprotocolTransportWS {
		return transportWS
	}
	return graphqlWS
}

type operationMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type startPayload struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

type errorMessage struct {
	Message string `json:"message"`
}

func encodeMessage(id, msgType string, payload interface{}) []byte {
	msg := operationMessage{ID: id, Type: msgType}
	if payload != nil {
		raw, ok := payload.(json.RawMessage)
		if !ok {
			var err error
			raw, err = json.Marshal(payload)
			if err != nil {
				raw, _ = json.Marshal(errorMessage{Message: err.Error()})
			}
		}
		msg.Payload = raw
	}
	data, _ := json.Marshal(msg)
	return data
}

// errorPayload shapes an error the way each protocol expects: a list of
// GraphQL errors for graphql-transport-ws, a single object for graphql-ws.
func (p protocol) errorPayload(messages ...string) interface{} {
	if p.name == SubprotocolTransportWS {
		list := make([]errorMessage, 0, len(messages))
		for _, m := range messages {
			list = append(list, errorMessage{Message: m})
		}
		return list
	}
	return errorMessage{Message: strings.Join(messages, "; ")}
}
