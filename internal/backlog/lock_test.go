package backlog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

func TestWriterLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lock := NewWriterLock(dir, time.Second)

	unlock, err := lock.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}

	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if pid, ok := lockPID(data); !ok || pid != os.Getpid() {
		t.Errorf("lock file holds %q, want our PID first", data)
	}

	unlock()
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("lock file not removed after unlock")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("leftover files after unlock: %v", entries)
	}
}

func TestWriterLock_StaleLockRecovered(t *testing.T) {
	dir := t.TempDir()
	lock := NewWriterLock(dir, time.Second)

	// PIDs this large are never allocated on Linux.
	if err := os.WriteFile(lock.Path(), []byte("999999999"), 0644); err != nil {
		t.Fatal(err)
	}

	unlock, err := lock.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock failed on stale lock: %v", err)
	}
	unlock()
}

func TestWriterLock_UnreadableLock(t *testing.T) {
	tests := []struct {
		name    string
		content string
		age     time.Duration
		wantErr error
	}{
		{"fresh empty lock is held", "", 0, ErrLockTimeout},
		{"fresh garbage lock is held", "garbage", 0, ErrLockTimeout},
		{"old empty lock is abandoned", "", time.Hour, nil},
		{"old garbage lock is abandoned", "garbage", time.Hour, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := NewWriterLock(t.TempDir(), 200*time.Millisecond)
			lock.staleAfter = time.Minute
			if err := os.WriteFile(lock.Path(), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			old := time.Now().Add(-tt.age)
			if err := os.Chtimes(lock.Path(), old, old); err != nil {
				t.Fatal(err)
			}

			unlock, err := lock.Lock(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lock error = %v, want %v", err, tt.wantErr)
			}
			if err == nil {
				unlock()
				return
			}
			if data, _ := os.ReadFile(lock.Path()); string(data) != tt.content {
				t.Errorf("held lock was replaced with %q", data)
			}
		})
	}
}

func TestWriterLock_ReleaseKeepsForeignLock(t *testing.T) {
	lock := NewWriterLock(t.TempDir(), time.Second)
	unlock, err := lock.Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Another writer took over the file while we held it.
	foreign := "1\nsomeone-else\n"
	if err := os.WriteFile(lock.Path(), []byte(foreign), 0644); err != nil {
		t.Fatal(err)
	}
	unlock()

	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("foreign lock removed: %v", err)
	}
	if string(data) != foreign {
		t.Errorf("lock file = %q, want %q", data, foreign)
	}
}

func TestWriterLock_BreakStaleRestoresFreshLock(t *testing.T) {
	lock := NewWriterLock(t.TempDir(), time.Second)
	fresh := "1\nfresh\n"
	if err := os.WriteFile(lock.Path(), []byte(fresh), 0644); err != nil {
		t.Fatal(err)
	}

	// The caller judged different content stale; the fresh lock must survive.
	if err := lock.breakStale([]byte("999999999\nold\n")); err != nil {
		t.Fatalf("breakStale failed: %v", err)
	}
	data, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("fresh lock removed: %v", err)
	}
	if string(data) != fresh {
		t.Errorf("lock file = %q, want %q", data, fresh)
	}

	if err := lock.breakStale([]byte(fresh)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Error("matching stale lock not removed")
	}
}

func TestLockPID(t *testing.T) {
	tests := []struct {
		content string
		pid     int
		ok      bool
	}{
		{"123", 123, true},
		{"123\ntoken\n", 123, true},
		{" 42 \n", 42, true},
		{"", 0, false},
		{"garbage", 0, false},
		{"-5", 0, false},
	}
	for _, tt := range tests {
		pid, ok := lockPID([]byte(tt.content))
		if pid != tt.pid || ok != tt.ok {
			t.Errorf("lockPID(%q) = %d, %v; want %d, %v", tt.content, pid, ok, tt.pid, tt.ok)
		}
	}
}

func TestWriterLock_TimeoutWhileHeld(t *testing.T) {
	dir := t.TempDir()
	holder := NewWriterLock(dir, time.Second)
	unlock, err := holder.Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	waiter := NewWriterLock(dir, 50*time.Millisecond)
	_, err = waiter.Lock(context.Background())
	if !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Lock error = %v, want ErrLockTimeout", err)
	}
}

func TestWriterLock_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	holder := NewWriterLock(dir, time.Second)
	unlock, err := holder.Lock(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = NewWriterLock(dir, time.Second).Lock(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Lock error = %v, want context.Canceled", err)
	}
}

func TestFileStore_ConcurrentUpdatesNotLost(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t, FormatJSON)

	if _, err := s.Create(ctx, models.Task{Title: "Counter", Phase: models.PhaseDevelopment}); err != nil {
		t.Fatal(err)
	}

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			desc := fmt.Sprintf("writer %d", i)
			if _, err := s.Update(ctx, "Counter", models.TaskUpdate{Description: &desc}); err != nil {
				t.Errorf("Update %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	task, found, err := s.Get(ctx, "Counter")
	if err != nil || !found {
		t.Fatalf("Get = %v, %v", found, err)
	}
	if task.Version != writers+1 {
		t.Errorf("Version = %d, want %d (lost updates)", task.Version, writers+1)
	}
}
