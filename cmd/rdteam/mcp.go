package main

import (
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/mcp"
	"github.com/ShayCichocki/rdteam/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the backlog over MCP on stdio",
	Long: `Run an MCP server on standard input and output exposing the backlog tools:

  backlog_create_task     create or replace a task
  backlog_update_task     update a task, e.g. mark it completed
  backlog_list_tasks      list tasks, optionally for one phase
  backlog_current_phase   report the phase implied by the backlog

Logs go to the configured log file, never to stdout.`,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "rdteam-backlog",
		Version: version.Get(),
		Logger:  a.logger.Named("mcp"),
	}, a.store)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
