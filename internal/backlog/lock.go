package backlog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

const lockFileName = ".lock"

// ErrLockTimeout is returned when the writer lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for backlog writer lock")

// processLocks serialises writers inside one process, keyed by lock path.
var processLocks sync.Map

// WriterLock is a single-writer lock file guarding read-modify-write cycles
// on a backlog directory. The lock file holds the PID of the writer and a
// random token; locks left behind by dead processes are removed
// automatically.
type WriterLock struct {
	path     string
	timeout  time.Duration
	interval time.Duration
	// staleAfter is the age at which a lock without a readable PID is
	// considered abandoned.
	staleAfter time.Duration
}

// NewWriterLock creates a lock for the given backlog directory.
func NewWriterLock(dir string, timeout time.Duration) *WriterLock {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &WriterLock{
		path:       filepath.Join(dir, lockFileName),
		timeout:    timeout,
		interval:   10 * time.Millisecond,
		staleAfter: timeout,
	}
}

// Path returns the lock file path.
func (l *WriterLock) Path() string {
	return l.path
}

// Lock blocks until the lock is held, the timeout expires or ctx is done.
// The returned function releases the lock.
func (l *WriterLock) Lock(ctx context.Context) (func(), error) {
	muAny, _ := processLocks.LoadOrStore(l.path, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)

	acquired := make(chan struct{})
	go func() {
		mu.Lock()
		close(acquired)
	}()

	deadline := time.NewTimer(l.timeout)
	defer deadline.Stop()

	select {
	case <-acquired:
	case <-ctx.Done():
		go func() {
			<-acquired
			mu.Unlock()
		}()
		return nil, ctx.Err()
	case <-deadline.C:
		go func() {
			<-acquired
			mu.Unlock()
		}()
		return nil, ErrLockTimeout
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		token, err := l.tryAcquire()
		if err == nil {
			return func() {
				l.release(token)
				mu.Unlock()
			}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			mu.Unlock()
			return nil, err
		}

		select {
		case <-ctx.Done():
			mu.Unlock()
			return nil, ctx.Err()
		case <-deadline.C:
			mu.Unlock()
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}
}

// tryAcquire makes one attempt and returns the content written to the lock
// file. It returns an error wrapping os.ErrExist when the lock is held.
//
// The lock content is written to a temp file first and hard-linked into
// place, so the lock file never exists without a PID in it.
func (l *WriterLock) tryAcquire() (string, error) {
	token := fmt.Sprintf("%d\n%s\n", os.Getpid(), uuid.NewString())

	tmp, err := os.CreateTemp(filepath.Dir(l.path), lockFileName+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create lock temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.WriteString(token)
	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return "", fmt.Errorf("write lock file: %w", writeErr)
	}

	err = os.Link(tmpPath, l.path)
	if err == nil {
		return token, nil
	}
	if !os.IsExist(err) {
		return "", fmt.Errorf("link lock file: %w", err)
	}

	data, readErr := os.ReadFile(l.path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			// Released between our link and read.
			return "", fmt.Errorf("lock released during check: %w", os.ErrExist)
		}
		return "", fmt.Errorf("read lock file: %w", readErr)
	}

	pid, ok := lockPID(data)
	switch {
	case ok && pid != os.Getpid() && processExists(pid):
		return "", fmt.Errorf("backlog locked by PID %d: %w", pid, os.ErrExist)
	case !ok && !l.expired():
		// Unreadable content from another writer; wait until it ages out.
		return "", fmt.Errorf("backlog locked by unknown holder: %w", os.ErrExist)
	}

	// With the in-process mutex held, a lock carrying our own PID is a
	// leftover from an earlier process that had it.
	if err := l.breakStale(data); err != nil {
		return "", err
	}
	return "", fmt.Errorf("removed stale lock: %w", os.ErrExist)
}

// breakStale removes the lock file if it still holds observed. The file is
// moved aside first and put back if another writer replaced it meanwhile.
func (l *WriterLock) breakStale(observed []byte) error {
	aside := fmt.Sprintf("%s.stale.%s", l.path, uuid.NewString())
	if err := os.Rename(l.path, aside); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("move stale lock file: %w", err)
	}
	defer os.Remove(aside)

	data, err := os.ReadFile(aside)
	if err == nil && !bytes.Equal(data, observed) {
		// A fresh lock was taken after our check.
		if err := os.Link(aside, l.path); err != nil && !os.IsExist(err) {
			return fmt.Errorf("restore lock file: %w", err)
		}
	}
	return nil
}

// release removes the lock file only if it still holds token.
func (l *WriterLock) release(token string) {
	data, err := os.ReadFile(l.path)
	if err != nil || string(data) != token {
		return
	}
	os.Remove(l.path)
}

// expired reports whether the lock file is older than staleAfter.
func (l *WriterLock) expired() bool {
	info, err := os.Stat(l.path)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) > l.staleAfter
}

// lockPID parses the PID on the first line of a lock file.
func lockPID(data []byte) (int, bool) {
	first, _, _ := strings.Cut(string(data), "\n")
	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processExists checks if a process with the given PID is running.
// Signal 0 checks for existence without delivering anything.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
