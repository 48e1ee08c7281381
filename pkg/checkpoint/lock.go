package checkpoint

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Lock when another process holds the lock.
var ErrLocked = errors.New("lock held by another process")

// Lock takes an exclusive, non-blocking file lock at path. The returned function releases it.
func Lock(path string) (func() error, error) {
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}
	return l.Unlock, nil
}
