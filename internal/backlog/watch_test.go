package backlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

func TestWatch_ReportsWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := filepath.Join(t.TempDir(), "backlog")
	changes, err := Watch(ctx, dir)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	s := NewFileStore(dir, FileStoreOptions{})
	if _, err := s.Create(ctx, models.Task{Title: "Watched Task", Phase: models.PhaseDevelopment}); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.ID == "Watched_Task" && c.Op == ChangeWritten {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for change")
		}
	}
}

func TestWatch_ClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	changes, err := Watch(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	cancel()

	select {
	case _, ok := <-changes:
		if ok {
			// Drain until closed.
			for range changes {
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
