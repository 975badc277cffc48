package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/internal/config"
	"github.com/ShayCichocki/rdteam/internal/logging"
	"github.com/ShayCichocki/rdteam/internal/orchestrator"
	"github.com/ShayCichocki/rdteam/internal/version"
	"github.com/ShayCichocki/rdteam/internal/workspace"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rdteam",
	Short: "Phase-driven project orchestrator",
	Long: `rdteam walks a software project through requirements gathering, planning,
architecture, development, testing and validation.

Tasks for every phase live in the project backlog (.rdteam/backlog). During
development and testing, tasks are handed to an executor agent that marks
them completed when done.

Start with:
  rdteam init
  rdteam session "I need a notes service with tagging"`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version.Get()
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config merged with .rdteam.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(modeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig honours --config, falling back to the layered lookup.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// app holds what most commands need: config, workspace, logger and store.
type app struct {
	cfg      *config.Config
	layout   workspace.Layout
	logger   *zap.Logger
	store    backlog.Store
	closeLog func() error
}

// openApp loads config, opens the logger and the backlog. The workspace must
// have been initialised.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	layout, err := workspace.Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if !layout.Exists() {
		return nil, fmt.Errorf("no workspace at %s; run 'rdteam init' first", layout.Root)
	}

	logger, closeLog, err := logging.New(cfg.Logging, layout.Root)
	if err != nil {
		return nil, err
	}

	store, err := workspace.OpenStore(cfg, layout, logger)
	if err != nil {
		closeLog()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		layout:   layout,
		logger:   logger,
		store:    store,
		closeLog: closeLog,
	}, nil
}

func (a *app) machine() *orchestrator.Machine {
	return orchestrator.New(a.store, orchestrator.WithLogger(a.logger.Named("orchestrator")))
}

// Close closes the store and flushes the logger.
func (a *app) Close() error {
	return errors.Join(a.store.Close(), a.closeLog())
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
