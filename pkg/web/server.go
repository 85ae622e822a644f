// Package web serves a live monitor for one robot session: the state
// stream over WebSockets, a status summary, recent events and metrics.
package web

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/hub"
	"github.com/teslashibe/go-franka/pkg/protocol"
)

// maxEvents bounds the event buffer.
const maxEvents = 500

// Status summarizes the monitored session for the dashboard
type Status struct {
	Connected     bool               `json:"connected"`
	ServerVersion uint16             `json:"server_version"`
	RobotMode     protocol.RobotMode `json:"robot_mode"`
	LastMessageID uint64             `json:"last_message_id"`
	StatesSeen    uint64             `json:"states_seen"`
	Errors        []string           `json:"errors,omitempty"`
}

// Event is a notable change in the robot's state
type Event struct {
	Time      string `json:"time"`
	Type      string `json:"type"` // mode, fault, recovered, session
	MessageID uint64 `json:"message_id,omitempty"`
	Message   string `json:"message"`
}

// Config holds monitor server configuration.
type Config struct {
	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Hub configures each of the three broadcast hubs.
	Hub hub.Config

	// Logger defaults to the "web" component logger.
	Logger *slog.Logger
}

// Server is the monitor server
type Server struct {
	app    *fiber.App
	logger *slog.Logger

	// State
	status   Status
	statusMu sync.RWMutex
	latest   atomic.Pointer[protocol.RobotState]

	// Event buffer (last maxEvents entries)
	events   []Event
	eventsMu sync.RWMutex

	// Hubs for websocket broadcast
	stateHub  *hub.Hub
	statusHub *hub.Hub
	eventHub  *hub.Hub
}

// NewServer creates a new monitor server
func NewServer(cfg Config) *Server {
	logger := log.Or(cfg.Logger, "web")
	hubCfg := func(name string) hub.Config {
		c := cfg.Hub
		c.Name = name
		if c.Logger == nil {
			c.Logger = logger
		}
		return c
	}

	s := &Server{
		logger:    logger,
		events:    make([]Event, 0, maxEvents),
		stateHub:  hub.New(hubCfg("state")),
		statusHub: hub.New(hubCfg("status")),
		eventHub:  hub.New(hubCfg("events")),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Franka Monitor",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/state", s.handleState)
	api.Get("/events", s.handleGetEvents)
	api.Get("/stats", s.handleStats)

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// WebSocket routes
	app.Use("/ws", hub.Upgrade)
	app.Get("/ws/state", hub.Handler(s.stateHub))
	app.Get("/ws/status", hub.Handler(s.statusHub))
	app.Get("/ws/events", hub.Handler(s.eventHub))

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the hubs. They stop when ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.stateHub.Run(ctx)
	go s.statusHub.Run(ctx)
	go s.eventHub.Run(ctx)
}

// Listen serves on addr until Shutdown. It blocks.
func (s *Server) Listen(addr string) error {
	s.logger.Info("monitor listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SessionStarted records a new robot session.
func (s *Server) SessionStarted(serverVersion uint16) {
	s.updateStatus(func(st *Status) {
		st.Connected = true
		st.ServerVersion = serverVersion
	})
	s.AddEvent(Event{Type: "session", Message: "connected"})
}

// SessionEnded records the end of the robot session.
func (s *Server) SessionEnded(err error) {
	s.updateStatus(func(st *Status) { st.Connected = false })
	msg := "disconnected"
	if err != nil {
		msg = err.Error()
	}
	s.AddEvent(Event{Type: "session", Message: msg})
}

// Observe records one robot state and fans it out. It always returns true
// so it can be passed to Robot.Read directly.
func (s *Server) Observe(state *protocol.RobotState) bool {
	s.latest.Store(state)
	if err := s.stateHub.BroadcastState(state); err != nil {
		s.logger.Warn("broadcast state", "error", err)
	}

	var prev Status
	s.updateStatus(func(st *Status) {
		prev = *st
		st.RobotMode = state.RobotMode
		st.LastMessageID = state.MessageID
		st.StatesSeen++
		st.Errors = state.Errors
	})

	switch {
	case state.HasFault() && !faulted(prev):
		s.AddEvent(Event{Type: "fault", MessageID: state.MessageID, Message: describe(state)})
	case !state.HasFault() && faulted(prev):
		s.AddEvent(Event{Type: "recovered", MessageID: state.MessageID, Message: string(state.RobotMode)})
	case prev.StatesSeen > 0 && prev.RobotMode != state.RobotMode:
		s.AddEvent(Event{Type: "mode", MessageID: state.MessageID,
			Message: string(prev.RobotMode) + " -> " + string(state.RobotMode)})
	}
	return true
}

// AddEvent appends an event and broadcasts it to clients
func (s *Server) AddEvent(e Event) {
	if e.Time == "" {
		e.Time = time.Now().Format("15:04:05.000")
	}

	s.eventsMu.Lock()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	s.eventsMu.Unlock()

	if err := s.eventHub.BroadcastJSON(e); err != nil {
		s.logger.Warn("broadcast event", "error", err)
	}
}

// updateStatus applies update and broadcasts the result. Status updates
// only go out when the status changes shape, not on every state.
func (s *Server) updateStatus(update func(*Status)) {
	s.statusMu.Lock()
	before := s.status
	update(&s.status)
	status := s.status // Copy for broadcast
	s.statusMu.Unlock()

	if before.Connected != status.Connected || before.RobotMode != status.RobotMode ||
		len(before.Errors) != len(status.Errors) {
		if err := s.statusHub.BroadcastJSON(status); err != nil {
			s.logger.Warn("broadcast status", "error", err)
		}
	}
}

func faulted(st Status) bool {
	return st.RobotMode == protocol.ModeReflex || len(st.Errors) > 0
}

func describe(state *protocol.RobotState) string {
	msg := string(state.RobotMode)
	for _, e := range state.Errors {
		msg += " " + e
	}
	return msg
}
