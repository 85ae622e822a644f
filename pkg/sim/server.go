package sim

import (
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/network"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// Server is a simulated controller.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *slog.Logger

	mu       sync.Mutex
	commands []protocol.RobotCommand
	ln       net.Listener

	// Stats
	sessions   atomic.Int64
	statesSent atomic.Uint64
}

// Stats contains simulator statistics
type Stats struct {
	Sessions         int64  `json:"sessions"`
	StatesSent       uint64 `json:"states_sent"`
	CommandsReceived int    `json:"commands_received"`
}

// New creates a simulator with its own fiber app.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sim config: %w", err)
	}
	s := &Server{
		cfg:    cfg,
		logger: log.Or(cfg.Logger, "sim"),
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
	}
	s.RegisterRoutes(s.app)
	return s, nil
}

// RegisterRoutes registers the controller endpoint on a Fiber app
func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Use(network.DefaultPath, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(network.DefaultPath, websocket.New(s.handleSession))
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown. It blocks.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Start serves on addr in the background and returns the bound address.
// Use "127.0.0.1:0" to pick a free port.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	go func() {
		if err := s.app.Listener(ln); err != nil {
			s.logger.Debug("listener stopped", "error", err)
		}
	}()
	return ln.Addr().String(), nil
}

// Shutdown stops serving and closes open sessions.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	s.mu.Lock()
	if s.ln != nil {
		// The listener may not have been handed to fiber yet.
		s.ln.Close()
		s.ln = nil
	}
	s.mu.Unlock()
	return err
}

// Commands returns a copy of every command received so far, in order.
func (s *Server) Commands() []protocol.RobotCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.RobotCommand, len(s.commands))
	copy(out, s.commands)
	return out
}

// GetStats returns simulator statistics
func (s *Server) GetStats() Stats {
	s.mu.Lock()
	n := len(s.commands)
	s.mu.Unlock()
	return Stats{
		Sessions:         s.sessions.Load(),
		StatesSent:       s.statesSent.Load(),
		CommandsReceived: n,
	}
}

func (s *Server) record(cmd *protocol.RobotCommand) {
	s.mu.Lock()
	s.commands = append(s.commands, *cmd)
	s.mu.Unlock()
}

// handleSession runs one controller session on a WebSocket connection
func (s *Server) handleSession(c *websocket.Conn) {
	id := s.sessions.Add(1)
	logger := s.logger.With("session", id)

	sessionID, ok := s.handshake(c, logger)
	if !ok {
		return
	}
	logger = logger.With("client_session", sessionID)
	logger.Info("session started")

	commands := make(chan *protocol.RobotCommand, 16)
	done := make(chan struct{})
	go s.readPump(c, commands, done, logger)

	st := newState(s.cfg)
	for cycle := uint64(1); ; cycle++ {
		if s.cfg.DisconnectAfter > 0 && cycle > s.cfg.DisconnectAfter {
			logger.Info("disconnecting", "after_states", s.cfg.DisconnectAfter)
			return
		}

		data, err := s.encodeState(st.snapshot(cycle), cycle)
		if err != nil {
			logger.Error("encode state", "error", err)
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Debug("session ended", "error", err)
			return
		}
		s.statesSent.Add(1)

		if !s.await(cycle, st, commands, done, logger) {
			logger.Info("session ended by client")
			return
		}
	}
}

// await applies the command answering cycle, or gives up after one period.
// Commands answering an earlier state are dropped. It returns false once
// the client is gone.
func (s *Server) await(cycle uint64, st *arm, commands <-chan *protocol.RobotCommand, done <-chan struct{}, logger *slog.Logger) bool {
	timer := time.NewTimer(s.cfg.Period)
	defer timer.Stop()
	for {
		select {
		case cmd := <-commands:
			if cmd.MessageID != cycle {
				logger.Debug("dropping stale command", "message_id", cmd.MessageID, "cycle", cycle)
				continue
			}
			st.apply(cmd, s.cfg.Period)
			return true
		case <-timer.C:
			return true
		case <-done:
			return false
		}
	}
}

func (s *Server) handshake(c *websocket.Conn, logger *slog.Logger) (string, bool) {
	_, data, err := c.ReadMessage()
	if err != nil {
		logger.Debug("no connect request", "error", err)
		return "", false
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		logger.Warn("bad connect request", "error", err)
		return "", false
	}
	req, err := msg.GetConnectRequest()
	if err != nil {
		logger.Warn("bad connect request", "error", err)
		return "", false
	}

	if s.cfg.DropOnConnect {
		logger.Info("dropping connection before handshake reply")
		return "", false
	}

	status := protocol.StatusSuccess
	if s.cfg.RejectVersion {
		status = protocol.StatusIncompatibleVersion
	}
	reply, err := protocol.NewConnectReplyMessage(status, s.cfg.Version, req.SessionID)
	if err != nil {
		logger.Error("encode connect reply", "error", err)
		return "", false
	}
	out, err := reply.Bytes()
	if err != nil {
		logger.Error("encode connect reply", "error", err)
		return "", false
	}
	if err := c.WriteMessage(websocket.TextMessage, out); err != nil {
		logger.Debug("send connect reply", "error", err)
		return "", false
	}
	return req.SessionID, status == protocol.StatusSuccess
}

// readPump reads commands until the connection closes
func (s *Server) readPump(c *websocket.Conn, commands chan<- *protocol.RobotCommand, done chan<- struct{}, logger *slog.Logger) {
	defer close(done)
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.ParseMessage(data)
		if err != nil {
			logger.Warn("bad command", "error", err)
			continue
		}
		cmd, err := msg.GetRobotCommand()
		if err != nil {
			logger.Warn("bad command", "error", err)
			continue
		}
		s.record(cmd)

		select {
		case commands <- cmd:
		default:
			// Writer is behind; the command is recorded but not applied.
			logger.Warn("command queue full, dropping", "message_id", cmd.MessageID)
		}
	}
}

func (s *Server) encodeState(state *protocol.RobotState, cycle uint64) ([]byte, error) {
	if s.cfg.MalformedAt > 0 && cycle == s.cfg.MalformedAt {
		return []byte(`{"type":"robot_state","data":{"message_id":`), nil
	}
	if s.cfg.FaultAtCycle > 0 && cycle >= s.cfg.FaultAtCycle {
		state.RobotMode = protocol.ModeReflex
		state.Errors = append([]string(nil), s.cfg.FaultErrors...)
	}
	msg, err := protocol.NewStateMessage(state)
	if err != nil {
		return nil, err
	}
	return msg.Bytes()
}
