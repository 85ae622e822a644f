// Package hub fans robot states out to WebSocket monitors
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewStateMessage wraps a robot state in the same envelope the controller
// uses, so monitors parse it with protocol.ParseMessage.
func NewStateMessage(state *protocol.RobotState) (Message, error) {
	msg, err := protocol.NewStateMessage(state)
	if err != nil {
		return Message{}, err
	}
	data, err := msg.Bytes()
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
