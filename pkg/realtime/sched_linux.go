//go:build linux

package realtime

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// Elevate locks the goroutine to its OS thread and switches the thread to
// SCHED_FIFO. The restore func reinstates the previous attributes and unlocks
// the thread.
func (s OSScheduler) Elevate() (func() error, error) {
	runtime.LockOSThread()

	prev, err := unix.SchedGetAttr(0, 0)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("read scheduling attributes: %w", err)
	}

	attr := *prev
	attr.Size = unix.SizeofSchedAttr
	attr.Policy = unix.SCHED_FIFO
	attr.Priority = uint32(s.priority())
	attr.Nice = 0
	if err := unix.SchedSetAttr(0, &attr, 0); err != nil {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("set SCHED_FIFO priority %d: %w", attr.Priority, err)
	}

	return func() error {
		defer runtime.UnlockOSThread()
		if err := unix.SchedSetAttr(0, prev, 0); err != nil {
			return fmt.Errorf("restore scheduling attributes: %w", err)
		}
		return nil
	}, nil
}
