// Package lock provides per-key mutual exclusion for contest writers: the
// scheduled updater, manual resyncs and rating application all take the
// same key for a contest before touching its participants.
package lock

import (
	"context"
	"errors"
	"strconv"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// ErrNotHeld is returned by an unlock whose lease had already expired or
// been taken over.
var ErrNotHeld = errors.New("lock not held")

// Unlock releases a held lock.
type Unlock func(ctx context.Context) error

// Locker hands out exclusive locks by key. Lock blocks until the key is free
// or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// ContestKey is the lock key guarding one contest's participants and rating.
func ContestKey(contestID int64) string {
	return "podium:contest:" + strconv.FormatInt(contestID, 10)
}
