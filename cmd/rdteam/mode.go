package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/config"
	"github.com/ShayCichocki/rdteam/internal/mode"
	"github.com/ShayCichocki/rdteam/internal/session"
	"github.com/ShayCichocki/rdteam/internal/workspace"
)

var modeCmd = &cobra.Command{
	Use:   "mode <transcript|session-id>",
	Short: "Show the executor mode implied by a transcript",
	Long: `Replay a transcript through the mode detector and print each transition
and the final mode (PLANNING_MODE, EXECUTION_MODE or COMPLETION_MODE).

The argument is a transcript file or a session id in the workspace.`,
	Args: cobra.ExactArgs(1),
	RunE: runMode,
}

func runMode(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		if err := session.ValidateID(args[0]); err != nil {
			return fmt.Errorf("%s is neither a transcript file nor a session id", args[0])
		}
		cfg, cerr := loadConfig()
		if cerr != nil {
			cfg = config.Default()
		}
		layout, lerr := workspace.Resolve(cfg)
		if lerr != nil {
			return lerr
		}
		path = session.TranscriptPath(layout.SessionsDir(), args[0])
	}

	history, err := session.LoadTranscript(path)
	if err != nil {
		return err
	}

	d := mode.NewDetector()
	for i, e := range history {
		if m, changed := d.Observe(e); changed {
			fmt.Printf("event %d (%s): %s\n", i+1, e.Source, color.CyanString(m.String()))
		}
	}

	// Replaying incrementally must agree with a fresh scan.
	final := mode.NewDetector().InitializeFromHistory(history)
	if final != d.Current() {
		return fmt.Errorf("mode replay disagrees: %s vs %s", d.Current(), final)
	}
	fmt.Printf("Mode: %s\n", color.New(color.Bold).Sprint(final))
	return nil
}
