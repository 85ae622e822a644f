package realtime

// SCHED_FIFO priority bounds on Linux.
const (
	MinPriority     = 1
	MaxPriority     = 99
	DefaultPriority = 80
)

// OSScheduler elevates the calling thread through the operating system.
type OSScheduler struct {
	// Priority is the SCHED_FIFO priority, clamped to [MinPriority, MaxPriority].
	// Zero means DefaultPriority.
	Priority int
}

// NewOSScheduler returns an OSScheduler at DefaultPriority.
func NewOSScheduler() OSScheduler {
	return OSScheduler{Priority: DefaultPriority}
}

func (s OSScheduler) priority() int {
	switch {
	case s.Priority == 0:
		return DefaultPriority
	case s.Priority < MinPriority:
		return MinPriority
	case s.Priority > MaxPriority:
		return MaxPriority
	default:
		return s.Priority
	}
}

var _ Scheduler = OSScheduler{}
