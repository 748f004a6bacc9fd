// Package lock provides a cross-process writer lock using flock(2) to
// protect mutations of the fieldpath state directory (the report
// database and BTF overrides).
//
// Design principle: "Illegal states unrepresentable" - use a
// non-forgeable scope token that proves the lock is held. Mutating
// operations require this token (compiler enforced).
package lock

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"
)

// WriterScope represents the dynamic execution region in which the
// global writer lock is held.
//
// Possession of a WriterScope is proof that the caller holds exclusive
// write access to the state directory. WriterScope is a capability,
// not a mutex: it cannot be constructed, locked, or unlocked by
// callers. It is only obtained by executing code under lock.Run(...);
// the interface cannot be implemented outside this package due to the
// unexported marker method.
type WriterScope interface {
	// FD returns the raw lock file descriptor (for logging/diagnostics).
	FD() int

	// writerScopeMarker is unexported to prevent external implementations.
	writerScopeMarker()
}

// writerScope holds the exclusive flock and cannot be constructed
// outside this package.
type writerScope struct {
	f *os.File
}

func (*writerScope) writerScopeMarker() {}

func (s *writerScope) FD() int {
	return int(s.f.Fd())
}

// Run acquires the global writer lock, executes fn, then releases.
// The WriterScope proves to callees that the lock is held.
// Uses LOCK_EX|LOCK_NB with exponential backoff, respects ctx cancellation.
func Run(ctx context.Context, lockPath string, fn func(context.Context, WriterScope) error) error {
	f, err := acquireWriter(ctx, lockPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return fn(ctx, &writerScope{f: f})
}

// acquireWriter opens the lock file and acquires exclusive lock.
func acquireWriter(ctx context.Context, path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	backoff := 25 * time.Millisecond
	const maxBackoff = 500 * time.Millisecond

	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return f, nil
		}
		if err != syscall.EWOULDBLOCK {
			f.Close()
			return nil, fmt.Errorf("flock: %w", err)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < maxBackoff {
			backoff *= 2
		}
	}
}
