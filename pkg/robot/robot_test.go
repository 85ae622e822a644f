package robot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/teslashibe/go-franka/pkg/errors"
	"github.com/teslashibe/go-franka/pkg/protocol"
	"github.com/teslashibe/go-franka/pkg/realtime"
)

func TestReadOnce_SingleReceiveNoSend(t *testing.T) {
	states := script(3)
	ch := newFakeChannel(states...)
	r := newTestRobot(ch)

	got, err := r.ReadOnce(context.Background())

	require.NoError(t, err)
	assert.Same(t, states[0], got)
	assert.Equal(t, 1, ch.receives())
	assert.Empty(t, ch.commands())
}

func TestRead_StopsWhenPredicateFalse(t *testing.T) {
	ch := newFakeChannel(script(10)...)
	r := newTestRobot(ch)

	var ids []uint64
	err := r.Read(context.Background(), func(s *RobotState) bool {
		ids = append(ids, s.MessageID)
		return len(ids) < 4
	})

	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4}, ids)
	assert.Empty(t, ch.commands())
	assert.Equal(t, StateIdle, r.LoopState())
}

func TestRead_Disconnect(t *testing.T) {
	ch := newFakeChannel(script(2)...)
	r := newTestRobot(ch)

	n := 0
	err := r.Read(context.Background(), func(*RobotState) bool {
		n++
		return true
	})

	assert.True(t, errs.IsNetwork(err), "got %v", err)
	assert.Equal(t, 2, n)
	assert.Empty(t, ch.commands())
}

func TestRead_ContextDone(t *testing.T) {
	ch := newFakeChannel(script(10)...)
	r := newTestRobot(ch)
	ctx, cancel := context.WithCancel(context.Background())

	n := 0
	err := r.Read(ctx, func(*RobotState) bool {
		n++
		if n == 2 {
			cancel()
		}
		return true
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, ch.receives())
}

func TestRead_DoesNotElevate(t *testing.T) {
	sched := &fakeScheduler{}
	cfg := testConfig()
	cfg.Scheduler = sched
	r := New(newFakeChannel(script(1)...), cfg)

	_, err := r.ReadOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sched.elevated)
}

func TestSecondLoopIsRejected(t *testing.T) {
	ch := newFakeChannel(script(10)...)
	r := newTestRobot(ch)

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	var loopErr error
	var seen []uint64

	wg.Add(1)
	go func() {
		defer wg.Done()
		loopErr = r.Control(context.Background(), func(s *RobotState) Torques {
			seen = append(seen, s.MessageID)
			if s.MessageID == 1 {
				close(entered)
				<-release
			}
			return Torques{MotionFinished: s.MessageID == 3}
		})
	}()

	<-entered
	assert.ErrorIs(t, r.Control(context.Background(), func(*RobotState) Torques { return Torques{} }), errs.ErrLoopActive)
	assert.ErrorIs(t, r.Read(context.Background(), func(*RobotState) bool { return true }), errs.ErrLoopActive)
	_, err := r.ReadOnce(context.Background())
	assert.ErrorIs(t, err, errs.ErrLoopActive)
	close(release)
	wg.Wait()

	require.NoError(t, loopErr)
	assert.Equal(t, []uint64{1, 2, 3}, seen)
	cmds := ch.commands()
	require.Len(t, cmds, 3)
	for i, cmd := range cmds {
		assert.Equal(t, uint64(i+1), cmd.MessageID)
	}

	// The session is free again.
	_, err = r.ReadOnce(context.Background())
	assert.NoError(t, err)
}

func TestRealtime_EnforceAbortsBeforeFirstCycle(t *testing.T) {
	ch := newFakeChannel(script(5)...)
	cfg := testConfig()
	cfg.Realtime = realtime.Enforce
	cfg.Scheduler = &fakeScheduler{err: errors.New("operation not permitted")}
	r := New(ch, cfg)

	called := false
	err := r.Control(context.Background(), func(*RobotState) Torques {
		called = true
		return Torques{}
	})

	assert.True(t, errs.IsRealtime(err), "got %v", err)
	assert.False(t, called)
	assert.Zero(t, ch.receives())
	assert.Empty(t, ch.commands())

	// The failed start does not hold the session.
	_, err = r.ReadOnce(context.Background())
	assert.NoError(t, err)
}

func TestRealtime_DeniedStartResetsLoopState(t *testing.T) {
	cfg := testConfig()
	cfg.Realtime = realtime.Enforce
	cfg.Scheduler = &fakeScheduler{err: errors.New("operation not permitted")}
	r := New(newFakeChannel(script(5)...), cfg)
	r.setState(StateFaulted)

	err := r.Control(context.Background(), func(*RobotState) Torques { return Torques{} })

	assert.True(t, errs.IsRealtime(err), "got %v", err)
	assert.Equal(t, StateIdle, r.LoopState())
}

func TestRealtime_IgnoreRunsAnyway(t *testing.T) {
	ch := newFakeChannel(script(5)...)
	cfg := testConfig()
	cfg.Realtime = realtime.Ignore
	cfg.Scheduler = &fakeScheduler{err: errors.New("operation not permitted")}
	r := New(ch, cfg)

	err := r.Control(context.Background(), func(*RobotState) Torques { return Torques{MotionFinished: true} })

	require.NoError(t, err)
	assert.Len(t, ch.commands(), 1)
}

func TestRealtime_RestoredOnEveryExit(t *testing.T) {
	tests := []struct {
		name   string
		states []*protocol.RobotState
		finish int
	}{
		{name: "finished", states: script(5), finish: 2},
		{name: "fault", states: faultAt(script(5), 1)},
		{name: "disconnect", states: script(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &fakeScheduler{}
			cfg := testConfig()
			cfg.Realtime = realtime.Enforce
			cfg.Scheduler = sched
			r := New(newFakeChannel(tt.states...), cfg)

			calls := 0
			_ = r.Control(context.Background(), func(*RobotState) Torques {
				calls++
				return Torques{MotionFinished: calls == tt.finish}
			})

			assert.Equal(t, 1, sched.elevated)
			assert.Equal(t, 1, sched.restored)
		})
	}
}

func TestClose(t *testing.T) {
	ch := newFakeChannel(script(1)...)
	r := newTestRobot(ch)

	r.Close()
	r.Close()

	assert.Equal(t, 1, ch.closed)
	assert.ErrorIs(t, r.Control(context.Background(), func(*RobotState) Torques { return Torques{} }), errs.ErrClosed)
	_, err := r.ReadOnce(context.Background())
	assert.ErrorIs(t, err, errs.ErrClosed)
}

func TestBrokenChannelIsNotReused(t *testing.T) {
	ch := newFakeChannel(script(1)...)
	r := newTestRobot(ch)

	err := r.Read(context.Background(), func(*RobotState) bool { return true })
	require.True(t, errs.IsNetwork(err))

	received := ch.receives()
	err = r.Control(context.Background(), func(*RobotState) Torques { return Torques{} })
	assert.True(t, errs.IsNetwork(err), "got %v", err)
	assert.Equal(t, received, ch.receives())
}

func TestNilCallbacks(t *testing.T) {
	r := newTestRobot(newFakeChannel(script(1)...))
	ctx := context.Background()

	assert.Error(t, r.Control(ctx, nil))
	assert.Error(t, r.ControlJointValues(ctx, nil, nil))
	assert.Error(t, r.ControlJointVelocities(ctx, nil, nil))
	assert.Error(t, r.ControlCartesianPose(ctx, nil, nil))
	assert.Error(t, r.ControlCartesianVelocities(ctx, nil, nil))
	assert.Error(t, r.Read(ctx, nil))
}

func TestServerVersion(t *testing.T) {
	ch := newFakeChannel()
	ch.version = 4
	r := newTestRobot(ch)

	assert.Equal(t, uint16(4), r.ServerVersion())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, realtime.Enforce, cfg.Realtime)
	assert.Equal(t, time.Millisecond, cfg.CycleBudget)

	cfg.CycleBudget = -time.Millisecond
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Network.ReceiveTimeout = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Realtime = realtime.Config(7)
	assert.Error(t, cfg.Validate())
}

func TestLoopStateString(t *testing.T) {
	assert.Equal(t, "network_lost", StateNetworkLost.String())
	assert.Equal(t, "LoopState(42)", LoopState(42).String())
}
