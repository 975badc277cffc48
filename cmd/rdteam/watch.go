package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/backlog"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow backlog changes as they happen",
	Long: `Print every task record written or removed in the backlog directory,
for example when the executor marks a task completed. Requires the file
backend. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.Backlog.Backend != "file" {
		return fmt.Errorf("watch requires the file backend (backlog.backend is %q)", a.cfg.Backlog.Backend)
	}

	ctx, cancel := signalContext()
	defer cancel()

	changes, err := backlog.Watch(ctx, a.layout.BacklogDir())
	if err != nil {
		return err
	}
	fmt.Printf("Watching %s (Ctrl-C to stop)\n", a.layout.BacklogDir())

	for change := range changes {
		stamp := time.Now().Format("15:04:05")
		if change.Op == backlog.ChangeRemoved {
			fmt.Printf("%s %s %s\n", stamp, color.RedString("removed"), change.ID)
			continue
		}
		task, found, err := a.store.Get(ctx, change.ID)
		if err != nil || !found {
			fmt.Printf("%s %s %s\n", stamp, color.YellowString("written"), change.ID)
			continue
		}
		fmt.Printf("%s %s %s [%s] %s\n", stamp, color.GreenString("written"), change.ID, task.Phase, statusSymbol(task.Status))
	}
	return nil
}
