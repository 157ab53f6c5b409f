package platform

import (
	"time"

	"tasktray/internal/core/coordinator"
)

// IdleProvider returns the duration since last user input.
type IdleProvider interface {
	IdleDuration() (time.Duration, error)
}

// NewIdleProvider returns a platform-specific idle provider.
func NewIdleProvider() IdleProvider {
	return newIdleProvider()
}

type unsupportedIdleProvider struct{}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, coordinator.ErrIdleUnsupported
}
