package protocol

import "fmt"

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewConnectMessage creates a handshake request
func NewConnectMessage(version uint16, sessionID string) (*Message, error) {
	return NewMessage(TypeConnect, ConnectRequest{
		Version:   version,
		SessionID: sessionID,
	})
}

// NewConnectReplyMessage creates a handshake reply
func NewConnectReplyMessage(status ConnectStatus, version uint16, sessionID string) (*Message, error) {
	return NewMessage(TypeConnectReply, ConnectReply{
		Status:    status,
		Version:   version,
		SessionID: sessionID,
	})
}

// NewStateMessage creates a robot state message
func NewStateMessage(state *RobotState) (*Message, error) {
	return NewMessage(TypeRobotState, state)
}

// NewCommandMessage creates a robot command message
func NewCommandMessage(cmd *RobotCommand) (*Message, error) {
	return NewMessage(TypeRobotCommand, cmd)
}

// =============================================================================
// Helper functions for parsing message data
// =============================================================================

func (m *Message) expect(t MessageType) error {
	if m.Type != t {
		return fmt.Errorf("unexpected message type %q, want %q", m.Type, t)
	}
	return nil
}

// GetConnectRequest extracts the handshake request from a message
func (m *Message) GetConnectRequest() (*ConnectRequest, error) {
	if err := m.expect(TypeConnect); err != nil {
		return nil, err
	}
	var req ConnectRequest
	if err := m.ParseData(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetConnectReply extracts the handshake reply from a message
func (m *Message) GetConnectReply() (*ConnectReply, error) {
	if err := m.expect(TypeConnectReply); err != nil {
		return nil, err
	}
	var reply ConnectReply
	if err := m.ParseData(&reply); err != nil {
		return nil, err
	}
	switch reply.Status {
	case StatusSuccess, StatusIncompatibleVersion:
	default:
		return nil, fmt.Errorf("unknown connect status %q", reply.Status)
	}
	return &reply, nil
}

// GetRobotState extracts the robot state from a message
func (m *Message) GetRobotState() (*RobotState, error) {
	if err := m.expect(TypeRobotState); err != nil {
		return nil, err
	}
	var wire stateWire
	if err := m.ParseData(&wire); err != nil {
		return nil, err
	}
	state, err := wire.state()
	if err != nil {
		return nil, fmt.Errorf("malformed robot state: %w", err)
	}
	return state, nil
}

// GetRobotCommand extracts the robot command from a message
func (m *Message) GetRobotCommand() (*RobotCommand, error) {
	if err := m.expect(TypeRobotCommand); err != nil {
		return nil, err
	}
	var cmd RobotCommand
	if err := m.ParseData(&cmd); err != nil {
		return nil, err
	}
	if cmd.Motion != nil && !cmd.Motion.Kind.Valid() {
		return nil, fmt.Errorf("unknown motion kind %q", cmd.Motion.Kind)
	}
	return &cmd, nil
}
