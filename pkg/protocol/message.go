// Package protocol defines the WebSocket message types exchanged with the robot controller.
// This package is shared between the client (pkg/network) and the simulator (pkg/sim).
//
// A session starts with a fixed handshake (connect / connect_reply) and then
// alternates one robot_state from the controller with one robot_command from
// the client for every control cycle.
package protocol

import (
	"bytes"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Version is the protocol version implemented by this library.
const Version uint16 = 1

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Client → Controller messages
	TypeConnect      MessageType = "connect"       // Handshake request
	TypeRobotCommand MessageType = "robot_command" // One cycle's command

	// Controller → Client messages
	TypeConnectReply MessageType = "connect_reply" // Handshake reply
	TypeRobotState   MessageType = "robot_state"   // One cycle's state
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if d := bytes.TrimSpace(m.Data); len(d) == 0 || bytes.Equal(d, []byte("null")) {
		return fmt.Errorf("message %q has no data", m.Type)
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Handshake
// =============================================================================

// ConnectStatus is the controller's answer to a connect request.
type ConnectStatus string

const (
	StatusSuccess             ConnectStatus = "success"
	StatusIncompatibleVersion ConnectStatus = "incompatible_version"
)

// ConnectRequest opens a session.
type ConnectRequest struct {
	Version   uint16 `json:"version"`    // Client protocol version
	SessionID string `json:"session_id"` // Client-chosen id, echoed in the reply
}

// ConnectReply carries the negotiated server version.
type ConnectReply struct {
	Status    ConnectStatus `json:"status"`
	Version   uint16        `json:"version"` // Server version
	SessionID string        `json:"session_id"`
}
