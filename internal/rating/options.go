package rating

import (
	"github.com/okian/podium/internal/adapters/lock"
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithLocker sets the per-contest lock shared with the standings writers.
func WithLocker(l lock.Locker) Option {
	return func(e *Engine) {
		if l != nil {
			e.locker = l
		}
	}
}

// WithDefaultRating sets the rating assumed for users without a profile.
func WithDefaultRating(r int) Option {
	return func(e *Engine) {
		if r > 0 {
			e.defaultRating = r
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
