package robot

import (
	"errors"
	"io"
	"sync"

	"github.com/teslashibe/go-franka/internal/log"
	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
	"github.com/teslashibe/go-franka/pkg/realtime"
)

// fakeChannel replays scripted states and records every command.
// Once the script runs out, receive fails as if the peer hung up.
type fakeChannel struct {
	mu sync.Mutex

	states    []*protocol.RobotState
	sendErrAt int // 1-based send that fails, 0 for never
	version   uint16

	received int
	sent     []protocol.RobotCommand
	trace    []string
	broken   bool
	closed   int
}

func newFakeChannel(states ...*protocol.RobotState) *fakeChannel {
	return &fakeChannel{states: states, version: protocol.Version}
}

func (f *fakeChannel) ReceiveState() (*protocol.RobotState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return nil, errs.Network("receive state", errors.New("broken"))
	}
	if f.received >= len(f.states) {
		f.broken = true
		return nil, errs.Network("receive state", io.EOF)
	}
	s := f.states[f.received]
	f.received++
	f.trace = append(f.trace, "recv")
	return s, nil
}

func (f *fakeChannel) SendCommand(cmd *protocol.RobotCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken {
		return errs.Network("send command", errors.New("broken"))
	}
	if f.sendErrAt > 0 && len(f.sent)+1 == f.sendErrAt {
		f.broken = true
		return errs.Network("send command", io.ErrClosedPipe)
	}
	f.sent = append(f.sent, *cmd)
	f.trace = append(f.trace, "send")
	return nil
}

func (f *fakeChannel) ServerVersion() uint16 { return f.version }

func (f *fakeChannel) Broken() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.broken
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	f.broken = true
}

func (f *fakeChannel) commands() []protocol.RobotCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.RobotCommand(nil), f.sent...)
}

func (f *fakeChannel) receives() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.received
}

// script returns n healthy states with ids 1..n.
func script(n int) []*protocol.RobotState {
	out := make([]*protocol.RobotState, n)
	for i := range out {
		s := &protocol.RobotState{
			MessageID: uint64(i + 1),
			TimeMs:    uint64(i),
			RobotMode: protocol.ModeMove,
		}
		s.Q[0] = float64(i) * 0.1
		s.OTEE = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0.3, 0, 0.5 + float64(i)*0.01, 1}
		out[i] = s
	}
	return out
}

// fakeScheduler counts elevations and restores.
type fakeScheduler struct {
	err      error
	elevated int
	restored int
}

func (s *fakeScheduler) Elevate() (func() error, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.elevated++
	return func() error {
		s.restored++
		return nil
	}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Realtime = realtime.Ignore
	cfg.Scheduler = &fakeScheduler{}
	cfg.Logger = log.Discard()
	return cfg
}

func newTestRobot(ch Channel) *Robot {
	return New(ch, testConfig())
}
