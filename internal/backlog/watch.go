package backlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp describes what happened to a record.
type ChangeOp string

const (
	// ChangeWritten means the record was created or rewritten.
	ChangeWritten ChangeOp = "written"
	// ChangeRemoved means the record disappeared.
	ChangeRemoved ChangeOp = "removed"
)

// Change is a single record change seen by Watch.
type Change struct {
	ID   string
	Op   ChangeOp
	Path string
}

// Watch reports record changes in dir until ctx is cancelled.
// The directory is created if it does not exist yet. Lock and temp files
// are ignored; renames of temp files into place surface as ChangeWritten.
func Watch(ctx context.Context, dir string) (<-chan Change, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backlog directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	changes := make(chan Change, 16)
	go func() {
		defer close(changes)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				change, ok := toChange(event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Keep watching; the state machine re-reads the store every turn.
			}
		}
	}()

	return changes, nil
}

func toChange(event fsnotify.Event) (Change, bool) {
	name := filepath.Base(event.Name)
	if !isRecordFile(name) {
		return Change{}, false
	}

	id := strings.TrimSuffix(name, filepath.Ext(name))
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		return Change{ID: id, Op: ChangeWritten, Path: event.Name}, true
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{ID: id, Op: ChangeRemoved, Path: event.Name}, true
	default:
		return Change{}, false
	}
}
