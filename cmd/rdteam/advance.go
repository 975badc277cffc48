package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/orchestrator"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

var advanceFrom string

var advanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Move the project to the next phase",
	Long: `Create the seed task of the phase after the current one, which moves the
project into that phase. Use --from to advance from a specific phase.`,
	RunE: runAdvance,
}

func init() {
	advanceCmd.Flags().StringVar(&advanceFrom, "from", "", "Phase to advance from (default: current phase)")
}

func runAdvance(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	m := a.machine()

	from := m.CurrentPhase(ctx, nil)
	if advanceFrom != "" {
		if from, err = models.ParsePhase(advanceFrom); err != nil {
			return err
		}
	}

	next, err := m.Advance(ctx, from)
	if errors.Is(err, orchestrator.ErrNoNextPhase) {
		return fmt.Errorf("%s is the last phase", from)
	}
	if err != nil {
		return err
	}
	printStatus("✓", orchestrator.TransitionMessage(next), color.FgGreen)
	return nil
}
