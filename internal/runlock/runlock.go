// Package runlock enforces single-instance execution against a run
// directory: two concurrent invocations of the same run must not be
// allowed to write manifest/metrics/message files out from under each
// other.
package runlock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process already holds the
// lock for this run directory.
var ErrLocked = errors.New("run directory is locked by another process")

// Lock guards a single run directory.
type Lock struct {
	path string
	fl   *flock.Flock
}

// New constructs a Lock for the given run directory. The lock file is
// .run.lock directly inside runDir, next to the run's manifest and
// message files.
func New(runDir string) *Lock {
	path := filepath.Join(runDir, ".run.lock")
	return &Lock{path: path, fl: flock.New(path)}
}

// Acquire attempts a non-blocking exclusive lock, returning ErrLocked when
// another process already holds it.
func (l *Lock) Acquire() error {
	ok, err := l.fl.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock %s: %w", l.path, err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// Release unlocks the run directory. Safe to call on a Lock that was
// never successfully acquired.
func (l *Lock) Release() error {
	if !l.fl.Locked() {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release run lock %s: %w", l.path, err)
	}
	return nil
}
