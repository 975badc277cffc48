package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/backlog"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project phase and backlog",
	Long: `Display the current project phase and the tasks of every phase.

The phase is the furthest phase that has a task in the backlog.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	phase := a.machine().CurrentPhase(ctx, nil)

	tasks, err := a.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}

	fmt.Printf("Workspace: %s (%s backend)\n", a.layout.Root, a.cfg.Backlog.Backend)
	fmt.Printf("Phase:     %s\n", color.CyanString(string(phase)))
	fmt.Printf("Tasks:     %d\n", len(tasks))

	for _, p := range models.AllPhases() {
		group := backlog.FilterByPhase(tasks, p)
		if len(group) == 0 {
			continue
		}
		done := 0
		for _, t := range group {
			if t.IsCompleted() {
				done++
			}
		}
		fmt.Printf("\n%s (%d/%d completed)\n", color.New(color.Bold).Sprint(p), done, len(group))
		for _, t := range group {
			fmt.Printf("  %s %s\n", statusSymbol(t.Status), t.Title)
		}
	}
	return nil
}

// statusSymbol renders a task status as a coloured symbol.
func statusSymbol(s models.TaskStatus) string {
	switch s {
	case models.TaskStatusCompleted:
		return color.GreenString("✓")
	case models.TaskStatusInProgress:
		return color.YellowString("◐")
	default:
		return "○"
	}
}
