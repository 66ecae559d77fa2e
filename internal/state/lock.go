package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WithLock executes fn while holding an exclusive lock for the ledger path.
//
// The lock lives on a sibling ".lock" file so Save can use atomic rename
// without dropping the lock. gofrs/flock keeps this portable to Windows,
// where the registry half of a configure run also goes through the ledger.
func WithLock(path string, fn func() error) error {
	if fn == nil {
		return fmt.Errorf("state lock: fn is nil")
	}
	validated, err := validatePath(path)
	if err != nil {
		return err
	}
	lockPath := validated + ".lock"

	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("state lock: create dir: %w", err)
	}

	lock := flock.New(lockPath)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("state lock: %q: %w", lockPath, err)
	}
	defer func() { _ = lock.Unlock() }()

	return fn()
}

// WithLockedState loads the ledger under lock, calls fn, then saves it.
//
// If fn returns an error, the ledger is not saved.
func WithLockedState(path string, fn func(*State) error) error {
	return WithLock(path, func() error {
		s, err := Load(path)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return s.Save(path)
	})
}
