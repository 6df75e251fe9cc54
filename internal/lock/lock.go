// Package lock provides the advisory run lock that keeps two conversions
// from writing the same output directory at once.
package lock

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
)

// FileName is the lock file created in the output directory.
const FileName = ".converter.lock"

// ErrAlreadyLocked is returned when another converter run holds the lock.
var ErrAlreadyLocked = errors.New("another converter run is using the output directory")

// Flocker abstracts the subset of flock.Flock used for advisory locking.
type Flocker interface {
	TryLock() (bool, error)
	Unlock() error
}

// Lock wraps a Flocker to provide fail-fast advisory locking.
type Lock struct {
	flocker Flocker
	path    string
}

// New creates a Lock from the given Flocker.
func New(f Flocker) *Lock {
	return &Lock{flocker: f}
}

// ForDir creates a Lock backed by FileName inside dir.
func ForDir(dir string) *Lock {
	path := filepath.Join(dir, FileName)
	return &Lock{flocker: flock.New(path), path: path}
}

// Path returns the lock file path, or "" for a Lock built with New.
func (l *Lock) Path() string {
	return l.path
}

// TryLock attempts a non-blocking lock acquisition. It returns
// ErrAlreadyLocked if the lock is held by another process, or wraps
// any underlying error from the Flocker.
func (l *Lock) TryLock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := l.flocker.TryLock()
	if err != nil {
		return errors.Wrap(err, "acquiring lock")
	}
	if !ok {
		return errors.WithHintf(ErrAlreadyLocked,
			"wait for the other run to finish, or remove %s if no run is active", l.path)
	}
	return nil
}

// Unlock releases the advisory lock.
func (l *Lock) Unlock() error {
	if err := l.flocker.Unlock(); err != nil {
		return errors.Wrap(err, "releasing lock")
	}
	return nil
}
