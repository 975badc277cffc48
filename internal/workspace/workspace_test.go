package workspace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/config"
	"github.com/ShayCichocki/rdteam/internal/state"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

func TestLayout(t *testing.T) {
	l := New("/repo/.rdteam")

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"backlog", l.BacklogDir(), filepath.Join("/repo/.rdteam", "backlog")},
		{"sessions", l.SessionsDir(), filepath.Join("/repo/.rdteam", "sessions")},
		{"logs", l.LogsDir(), filepath.Join("/repo/.rdteam", "logs")},
		{"db", l.DBPath(), filepath.Join("/repo/.rdteam", "backlog.db")},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestResolve_Absolute(t *testing.T) {
	cfg := config.Default()
	cfg.Workspace.Dir = "/abs/ws"

	l, err := Resolve(cfg)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if l.Root != "/abs/ws" {
		t.Errorf("Root = %q, want /abs/ws", l.Root)
	}
}

func TestInit(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), ".rdteam"))
	if l.Exists() {
		t.Fatal("workspace exists before Init")
	}
	if err := l.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !l.Exists() {
		t.Error("workspace missing after Init")
	}
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		backend string
		check   func(t *testing.T, s backlog.Store)
	}{
		{"file", func(t *testing.T, s backlog.Store) {
			if _, ok := s.(*backlog.FileStore); !ok {
				t.Errorf("store = %T, want *backlog.FileStore", s)
			}
		}},
		{"sqlite", func(t *testing.T, s backlog.Store) {
			db, ok := s.(*state.DB)
			if !ok {
				t.Fatalf("store = %T, want *state.DB", s)
			}
			if db.Driver() != state.DriverModernc {
				t.Errorf("Driver() = %q, want %q", db.Driver(), state.DriverModernc)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.Backlog.Backend = tt.backend
			l := New(filepath.Join(t.TempDir(), ".rdteam"))

			s, err := OpenStore(cfg, l, nil)
			if err != nil {
				t.Fatalf("OpenStore failed: %v", err)
			}
			defer s.Close()
			tt.check(t, s)

			ctx := context.Background()
			if _, err := s.Create(ctx, models.Task{Title: "T", Phase: models.PhaseTesting}); err != nil {
				t.Fatalf("Create failed: %v", err)
			}
			tasks, err := s.ListByPhase(ctx, models.PhaseTesting)
			if err != nil || len(tasks) != 1 || tasks[0].Title != "T" {
				t.Errorf("ListByPhase = %+v, %v", tasks, err)
			}
		})
	}
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Backlog.Backend = "redis"
	if _, err := OpenStore(cfg, New(t.TempDir()), nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
