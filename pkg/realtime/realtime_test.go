package realtime

import (
	"errors"
	"io"
	"log/slog"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/teslashibe/go-franka/pkg/errors"
)

type fakeScheduler struct {
	err      error
	elevated int
	restored int
}

func (f *fakeScheduler) Elevate() (func() error, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.elevated++
	return func() error {
		f.restored++
		return nil
	}, nil
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		in      string
		want    Config
		wantErr bool
	}{
		{"enforce", Enforce, false},
		{"IGNORE", Ignore, false},
		{"", Enforce, false},
		{"sometimes", Enforce, true},
	}

	for _, tt := range tests {
		got, err := ParseConfig(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestConfigText(t *testing.T) {
	var c Config
	require.NoError(t, c.UnmarshalText([]byte("ignore")))
	assert.Equal(t, Ignore, c)

	out, err := Enforce.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "enforce", string(out))
}

func TestAcquireEnforceDenied(t *testing.T) {
	sched := &fakeScheduler{err: syscall.EPERM}

	g, err := Acquire(Enforce, sched, quiet())

	assert.Nil(t, g)
	require.Error(t, err)
	assert.True(t, errs.IsRealtime(err))
	assert.True(t, errors.Is(err, syscall.EPERM))
}

func TestAcquireIgnoreDenied(t *testing.T) {
	sched := &fakeScheduler{err: syscall.EPERM}

	g, err := Acquire(Ignore, sched, quiet())

	require.NoError(t, err)
	assert.False(t, g.Elevated())
	g.Release()
}

func TestAcquireNilScheduler(t *testing.T) {
	_, err := Acquire(Enforce, nil, quiet())
	assert.True(t, errs.IsRealtime(err))

	g, err := Acquire(Ignore, nil, quiet())
	require.NoError(t, err)
	assert.False(t, g.Elevated())
}

func TestReleaseRestoresOnce(t *testing.T) {
	sched := &fakeScheduler{}

	g, err := Acquire(Enforce, sched, quiet())
	require.NoError(t, err)
	assert.True(t, g.Elevated())

	g.Release()
	g.Release()

	assert.Equal(t, 1, sched.elevated)
	assert.Equal(t, 1, sched.restored)
}

func TestOSSchedulerPriorityClamp(t *testing.T) {
	assert.Equal(t, DefaultPriority, OSScheduler{}.priority())
	assert.Equal(t, MinPriority, OSScheduler{Priority: -5}.priority())
	assert.Equal(t, MaxPriority, OSScheduler{Priority: 500}.priority())
	assert.Equal(t, 42, OSScheduler{Priority: 42}.priority())
}

func TestOSSchedulerElevate(t *testing.T) {
	restore, err := NewOSScheduler().Elevate()
	if err != nil {
		t.Skipf("realtime scheduling not permitted here: %v", err)
	}
	assert.NoError(t, restore())
}
