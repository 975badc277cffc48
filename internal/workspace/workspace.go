// Package workspace resolves the on-disk layout of a project workspace and
// opens its backlog.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/config"
	"github.com/ShayCichocki/rdteam/internal/state"
)

// Layout is the set of paths inside a workspace directory.
type Layout struct {
	// Root is the workspace directory, e.g. /repo/.rdteam.
	Root string
}

// New returns the layout for a workspace directory.
func New(root string) Layout {
	return Layout{Root: root}
}

// Resolve locates the workspace for cfg. A relative workspace.dir is taken
// relative to the directory holding the project config, or the working
// directory when there is none.
func Resolve(cfg *config.Config) (Layout, error) {
	dir := cfg.Workspace.Dir
	if filepath.IsAbs(dir) {
		return New(dir), nil
	}

	base := ""
	if projectConfig := config.GetProjectConfigPath(); projectConfig != "" {
		base = filepath.Dir(projectConfig)
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return Layout{}, fmt.Errorf("get working directory: %w", err)
		}
		base = wd
	}
	return New(filepath.Join(base, dir)), nil
}

// BacklogDir holds one record file per task.
func (l Layout) BacklogDir() string {
	return filepath.Join(l.Root, "backlog")
}

// SessionsDir holds session transcripts.
func (l Layout) SessionsDir() string {
	return filepath.Join(l.Root, "sessions")
}

// LogsDir holds log files.
func (l Layout) LogsDir() string {
	return filepath.Join(l.Root, "logs")
}

// DBPath is the SQLite backlog database.
func (l Layout) DBPath() string {
	return state.DBPath(l.Root)
}

// Init creates the workspace directories.
func (l Layout) Init() error {
	for _, dir := range []string{l.BacklogDir(), l.SessionsDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists reports whether the workspace directory is present.
func (l Layout) Exists() bool {
	info, err := os.Stat(l.Root)
	return err == nil && info.IsDir()
}

// OpenStore opens the backlog backend selected by cfg.
func OpenStore(cfg *config.Config, l Layout, logger *zap.Logger) (backlog.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backlog.Backend {
	case "", "file":
		return backlog.NewFileStore(l.BacklogDir(), backlog.FileStoreOptions{
			Format:      backlog.Format(cfg.Backlog.Format),
			CreatedBy:   cfg.Backlog.CreatedBy,
			LockTimeout: cfg.Backlog.LockTimeout,
			Logger:      logger.Named("backlog"),
		}), nil
	case "sqlite":
		db, err := state.Open(l.DBPath(), state.Options{
			Driver:    cfg.Backlog.Driver,
			CreatedBy: cfg.Backlog.CreatedBy,
			Logger:    logger.Named("backlog"),
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite backlog: %w", err)
		}
		logger.Debug("opened sqlite backlog",
			zap.String("path", db.Path()),
			zap.String("driver", db.Driver()),
		)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown backlog backend %q", cfg.Backlog.Backend)
	}
}
