package web

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-franka/internal/log"
	"github.com/teslashibe/go-franka/pkg/protocol"
	"github.com/teslashibe/go-franka/pkg/robot"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	_, err := robot.NewMetrics(reg)
	require.NoError(t, err)
	return NewServer(Config{Gatherer: reg, Logger: log.Discard()})
}

func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal(body, out))
	}
	return resp.StatusCode
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/api/state", nil))

	assert.True(t, s.Observe(&protocol.RobotState{MessageID: 12, RobotMode: protocol.ModeIdle}))

	var got protocol.RobotState
	require.Equal(t, http.StatusOK, get(t, s, "/api/state", &got))
	assert.Equal(t, uint64(12), got.MessageID)
}

func TestStatusTracksSession(t *testing.T) {
	s := newTestServer(t)
	s.SessionStarted(protocol.Version)
	s.Observe(&protocol.RobotState{MessageID: 1, RobotMode: protocol.ModeIdle})
	s.Observe(&protocol.RobotState{MessageID: 2, RobotMode: protocol.ModeMove})

	var st Status
	require.Equal(t, http.StatusOK, get(t, s, "/api/status", &st))
	assert.True(t, st.Connected)
	assert.Equal(t, protocol.Version, st.ServerVersion)
	assert.Equal(t, protocol.ModeMove, st.RobotMode)
	assert.Equal(t, uint64(2), st.LastMessageID)
	assert.Equal(t, uint64(2), st.StatesSeen)

	s.SessionEnded(errors.New("franka: network: receive state: EOF"))
	require.Equal(t, http.StatusOK, get(t, s, "/api/status", &st))
	assert.False(t, st.Connected)
}

func TestEventsRecordTransitions(t *testing.T) {
	s := newTestServer(t)
	s.Observe(&protocol.RobotState{MessageID: 1, RobotMode: protocol.ModeIdle})
	s.Observe(&protocol.RobotState{MessageID: 2, RobotMode: protocol.ModeIdle})
	s.Observe(&protocol.RobotState{MessageID: 3, RobotMode: protocol.ModeMove})
	s.Observe(&protocol.RobotState{MessageID: 4, RobotMode: protocol.ModeReflex, Errors: []string{"cartesian_reflex"}})
	s.Observe(&protocol.RobotState{MessageID: 5, RobotMode: protocol.ModeReflex, Errors: []string{"cartesian_reflex"}})
	s.Observe(&protocol.RobotState{MessageID: 6, RobotMode: protocol.ModeIdle})

	var events []Event
	require.Equal(t, http.StatusOK, get(t, s, "/api/events", &events))
	require.Len(t, events, 3)

	assert.Equal(t, "mode", events[0].Type)
	assert.Equal(t, "idle -> move", events[0].Message)
	assert.Equal(t, "fault", events[1].Type)
	assert.Equal(t, uint64(4), events[1].MessageID)
	assert.Contains(t, events[1].Message, "cartesian_reflex")
	assert.Equal(t, "recovered", events[2].Type)
}

func TestEventBufferIsBounded(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < maxEvents+10; i++ {
		s.AddEvent(Event{Type: "session", Message: "x"})
	}

	s.eventsMu.RLock()
	defer s.eventsMu.RUnlock()
	assert.Len(t, s.events, maxEvents)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "franka_callback_duration_seconds")
}

func TestMetricsDisabled(t *testing.T) {
	s := NewServer(Config{Logger: log.Discard()})
	assert.Equal(t, http.StatusNotFound, get(t, s, "/metrics", nil))
}

func TestStatsEndpoint(t *testing.T) {
	s := newTestServer(t)

	var stats HubStats
	require.Equal(t, http.StatusOK, get(t, s, "/api/stats", &stats))
	assert.Zero(t, stats.State.Clients)
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUpgradeRequired, get(t, s, "/ws/state", nil))
}
