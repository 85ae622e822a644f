// Package network implements the connection channel to the robot controller.
//
// A Channel is opened with a fixed handshake and then carries strictly
// alternating traffic: one robot state received, one command sent. The first
// network or protocol failure breaks the channel for good; callers open a new
// one instead of retrying.
package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-franka/internal/log"
	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// errBroken is the cause reported once a channel has failed.
var errBroken = errors.New("channel unusable after previous failure")

// Channel is an open session with the controller.
// It is owned by one goroutine at a time; only Close may be called concurrently.
type Channel struct {
	conn   *websocket.Conn
	cfg    Config
	logger *slog.Logger

	sessionID string
	version   uint16

	haveState bool
	lastID    uint64
	broken    atomic.Bool

	closeOnce sync.Once
}

// URL turns a controller address into a WebSocket URL.
// Accepted forms: "host", "host:port", "ws://host:port/path", "wss://...".
func URL(address string) (string, error) {
	if address == "" {
		return "", fmt.Errorf("empty address")
	}

	if u, err := url.Parse(address); err == nil && (u.Scheme == "ws" || u.Scheme == "wss") {
		if u.Host == "" {
			return "", fmt.Errorf("address %q has no host", address)
		}
		if u.Path == "" {
			u.Path = DefaultPath
		}
		return u.String(), nil
	}

	host := address
	port := strconv.Itoa(DefaultPort)
	if h, p, err := net.SplitHostPort(address); err == nil {
		host = h
		if p != "" {
			port = p
		}
	}
	if host == "" {
		return "", fmt.Errorf("address %q has no host", address)
	}

	u := url.URL{Scheme: "ws", Host: net.JoinHostPort(host, port), Path: DefaultPath}
	return u.String(), nil
}

// Open dials the controller and performs the handshake.
//
// It fails with a network error if the controller is unreachable or the
// connection drops before the handshake completes, an incompatible version
// error if the server version is not supported, and a protocol error if the
// reply is malformed.
func Open(ctx context.Context, address string, cfg Config) (*Channel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid network config: %w", err)
	}
	logger := log.Or(cfg.Logger, "network")

	target, err := URL(address)
	if err != nil {
		return nil, errs.Network("resolve address", err)
	}

	deadline := time.Now().Add(cfg.HandshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	logger.Debug("dialing controller", "url", target)
	conn, _, err := dialer.DialContext(dialCtx, target, nil)
	if err != nil {
		return nil, errs.Network("connect to "+target, err)
	}

	c := &Channel{
		conn:      conn,
		cfg:       cfg,
		logger:    logger,
		sessionID: uuid.NewString(),
	}

	if err := c.handshake(deadline); err != nil {
		conn.Close()
		return nil, err
	}

	c.logger = logger.With("session", c.sessionID)
	c.logger.Info("connected to controller", "url", target, "server_version", c.version)
	return c, nil
}

func (c *Channel) handshake(deadline time.Time) error {
	req, err := protocol.NewConnectMessage(protocol.Version, c.sessionID)
	if err != nil {
		return errs.Protocol("encode connect request", err)
	}
	data, err := req.Bytes()
	if err != nil {
		return errs.Protocol("encode connect request", err)
	}

	c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errs.Network("send connect request", err)
	}

	c.conn.SetReadDeadline(deadline)
	_, data, err = c.conn.ReadMessage()
	if err != nil {
		return errs.Network("receive connect reply", err)
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return errs.Protocol("decode connect reply", err)
	}
	reply, err := msg.GetConnectReply()
	if err != nil {
		return errs.Protocol("decode connect reply", err)
	}
	if reply.SessionID != c.sessionID {
		return errs.Newf(errs.KindProtocol, "decode connect reply",
			"session id mismatch: sent %s, got %s", c.sessionID, reply.SessionID)
	}

	if reply.Status == protocol.StatusIncompatibleVersion {
		return errs.Newf(errs.KindIncompatibleVersion, "connect",
			"server version %d rejected client version %d", reply.Version, protocol.Version)
	}
	if !c.cfg.supports(reply.Version) {
		return errs.Newf(errs.KindIncompatibleVersion, "connect",
			"server version %d not supported (supported: %v)", reply.Version, c.cfg.SupportedVersions)
	}

	c.version = reply.Version
	return nil
}

// ServerVersion returns the version negotiated at Open.
func (c *Channel) ServerVersion() uint16 {
	return c.version
}

// SessionID returns the id this client chose for the session.
func (c *Channel) SessionID() string {
	return c.sessionID
}

// Broken reports whether a previous failure made the channel unusable.
func (c *Channel) Broken() bool {
	return c.broken.Load()
}

// fail marks the channel broken and returns err.
func (c *Channel) fail(err error) error {
	if c.broken.CompareAndSwap(false, true) {
		c.logger.Warn("channel failed", "error", err)
	}
	return err
}

// ReceiveState blocks until exactly one robot state arrives.
func (c *Channel) ReceiveState() (*protocol.RobotState, error) {
	const op = "receive state"
	if c.broken.Load() {
		return nil, errs.Network(op, errBroken)
	}

	c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReceiveTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, c.fail(errs.Network(op, err))
	}

	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return nil, c.fail(errs.Protocol(op, err))
	}
	state, err := msg.GetRobotState()
	if err != nil {
		return nil, c.fail(errs.Protocol(op, err))
	}

	if c.haveState && state.MessageID <= c.lastID {
		return nil, c.fail(errs.Newf(errs.KindProtocol, op,
			"message id %d does not follow %d", state.MessageID, c.lastID))
	}
	c.haveState = true
	c.lastID = state.MessageID

	return state, nil
}

// SendCommand writes exactly one command.
func (c *Channel) SendCommand(cmd *protocol.RobotCommand) error {
	const op = "send command"
	if c.broken.Load() {
		return errs.Network(op, errBroken)
	}

	msg, err := protocol.NewCommandMessage(cmd)
	if err != nil {
		return c.fail(errs.Protocol(op, err))
	}
	data, err := msg.Bytes()
	if err != nil {
		return c.fail(errs.Protocol(op, err))
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.SendTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return c.fail(errs.Network(op, err))
	}
	return nil
}

// Close releases the connection. It is idempotent and never fails; errors
// are logged.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
			c.logger.Debug("close frame not sent", "error", err)
		}
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("close connection", "error", err)
		}
		c.broken.Store(true)
		c.logger.Info("channel closed")
	})
}
