package engine

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLockHeld reports that another sync process already holds the lock.
var ErrLockHeld = errors.New("another sync is already running")

// AcquireLock takes the exclusive cross-process sync lock. A scheduled run
// and a hook-triggered run racing each other must never interleave writes
// to the same link; whoever loses the TryLock simply skips the cycle.
// Callers must call the returned release function.
func AcquireLock(path string) (release func(), err error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire sync lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s held)", ErrLockHeld, path)
	}
	return func() { _ = lock.Unlock() }, nil
}
