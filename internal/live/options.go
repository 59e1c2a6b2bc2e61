package live

import (
	"time"

	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Updater.
type Option func(*Updater)

// WithWindowCap bounds how many recent submissions one fetch asks for.
func WithWindowCap(n int) Option {
	return func(u *Updater) {
		if n > 0 {
			u.windowCap = n
		}
	}
}

// WithCooldown sets the courtesy wait before every judge fetch.
func WithCooldown(d time.Duration) Option {
	return func(u *Updater) {
		if d >= 0 {
			u.cooldown = d
		}
	}
}

// WithLocker sets the per-contest lock shared with other writers.
func WithLocker(l Locker) Option {
	return func(u *Updater) {
		if l != nil {
			u.locker = l
		}
	}
}

// WithLogger sets a custom logger for the updater.
func WithLogger(l logger.Logger) Option {
	return func(u *Updater) {
		if l != nil {
			u.logger = l
		}
	}
}

// SchedulerOption applies a configuration option to the Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the pause between cycles.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConcurrency caps how many contests one cycle updates at once.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSchedulerLogger sets a custom logger for the scheduler.
func WithSchedulerLogger(l logger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}
