//go:build !linux

package realtime

// Elevate always fails outside Linux.
func (s OSScheduler) Elevate() (func() error, error) {
	return nil, ErrUnsupported
}
