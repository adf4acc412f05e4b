package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/recallhq/recall/internal/logging"
)

const lockFileName = ".recall.lock"

const (
	lockAttempts = 5
	lockBackoff  = 200 * time.Millisecond
)

// InProgressError means another import holds the lock. It is a normal
// condition, not a fault: callers report it and exit cleanly.
type InProgressError struct {
	Dir string
}

func (e *InProgressError) Error() string {
	return fmt.Sprintf("another import is in progress in %s; retry shortly", e.Dir)
}

// Lock is a held sentinel lock file.
type Lock struct {
	path string
}

// Acquire takes the import lock for dir, retrying with a short backoff.
// Failure after the bounded retries returns InProgressError.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	path := filepath.Join(dir, lockFileName)

	for attempt := 0; attempt < lockAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(lockBackoff)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
			_ = f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		logging.Debug("lock %s held, attempt %d/%d", path, attempt+1, lockAttempts)
	}
	return nil, &InProgressError{Dir: dir}
}

// Release removes the lock file. Safe to call once per acquired lock.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove lock file %s: %v", l.path, err)
	}
}
