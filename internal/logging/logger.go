// Package logging builds the zap loggers used across rdteam.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ShayCichocki/rdteam/internal/config"
)

// StderrTarget selects standard error instead of a log file.
const StderrTarget = "stderr"

// DefaultFile returns the log file used when none is configured.
func DefaultFile(workspaceDir string) string {
	return filepath.Join(workspaceDir, "logs", "rdteam.log")
}

// New builds a logger from config. Logs go to cfg.File, to DefaultFile
// when it is empty, or to stderr when it is "stderr". Parent directories
// are created. The returned function flushes and closes the output.
func New(cfg config.LoggingConfig, workspaceDir string) (*zap.Logger, func() error, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	var sink zapcore.WriteSyncer
	closeSink := func() error { return nil }

	switch path := cfg.File; path {
	case StderrTarget:
		sink = zapcore.Lock(os.Stderr)
	default:
		if path == "" {
			path = DefaultFile(workspaceDir)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		sink = zapcore.Lock(f)
		closeSink = f.Close
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), sink, level)
	logger := zap.New(core, zap.AddCaller())

	cleanup := func() error {
		logger.Sync()
		return closeSink()
	}
	return logger, cleanup, nil
}

// newEncoder creates JSON or console encoder.
func newEncoder(format string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if format == "console" {
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	return zapcore.NewJSONEncoder(encoderCfg)
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger {
	return zap.NewNop()
}
