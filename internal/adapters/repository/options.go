package repository

import (
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultRating sets the rating given to profiles created implicitly.
func WithDefaultRating(rating int) Option {
	return func(s *Store) {
		if rating >= 0 {
			s.defaultRating = rating
		}
	}
}
