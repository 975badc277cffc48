package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ShayCichocki/rdteam/internal/delegate"
	"github.com/ShayCichocki/rdteam/internal/executor"
	"github.com/ShayCichocki/rdteam/internal/llm"
	"github.com/ShayCichocki/rdteam/internal/prompt"
	"github.com/ShayCichocki/rdteam/internal/session"
	"github.com/ShayCichocki/rdteam/pkg/models"
)

var (
	sessionResume string
	sessionNoLLM  bool
)

var sessionCmd = &cobra.Command{
	Use:   "session [request...]",
	Short: "Start an interactive orchestrator session",
	Long: `Start an interactive session with the orchestrator.

The first message is the project request. The orchestrator asks for
requirements, advances through the phases as you confirm them, and hands
development and testing tasks to the executor agent in the background.

Type /done to finish the requirements and /exit to leave.

Examples:
  rdteam session "A CLI to track reading lists"
  rdteam session --resume 3f1c...   # continue an earlier session
  rdteam session --no-llm           # orchestrator only, no model calls`,
	RunE: runSession,
}

func init() {
	sessionCmd.Flags().StringVar(&sessionResume, "resume", "", "Resume the session with this id")
	sessionCmd.Flags().BoolVar(&sessionNoLLM, "no-llm", false, "Run without a language model (no executor, no general turns)")
}

func runSession(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	stopMetrics := startMetricsServer(a.cfg.Metrics.Addr, a.logger)
	defer stopMetrics()

	var history []models.Event
	var transcript *session.Transcript
	if sessionResume != "" {
		if err := session.ValidateID(sessionResume); err != nil {
			return err
		}
		history, err = session.LoadTranscript(session.TranscriptPath(a.layout.SessionsDir(), sessionResume))
		if err != nil {
			return err
		}
		transcript, err = session.OpenTranscript(a.layout.SessionsDir(), sessionResume)
	} else {
		transcript, err = session.NewTranscript(a.layout.SessionsDir())
	}
	if err != nil {
		return err
	}
	defer transcript.Close()

	var gateway llm.Gateway
	if !sessionNoLLM {
		gateway, err = llm.New(a.cfg)
		if err != nil {
			a.logger.Warn("language model unavailable", zap.Error(err))
			printStatus("⚠", "No language model: "+err.Error(), color.FgYellow)
		}
	}

	prompts := prompt.Must()
	var dispatcher *executor.AsyncDispatcher
	if gateway != nil {
		agent := executor.NewAgent(executor.Config{
			Gateway:  gateway,
			Store:    a.store,
			Prompts:  prompts,
			Logger:   a.logger,
			MaxTurns: a.cfg.Executor.MaxTurns,
		})
		dispatcher = executor.NewAsyncDispatcher(ctx, agent,
			executor.WithDispatcherLogger(a.logger.Named("dispatcher")),
			executor.WithOnDone(func(req delegate.Request, res *executor.Result, err error) {
				reportRun(a, req, res, err)
			}),
		)
	}

	cfg := session.Config{
		Machine:    a.machine(),
		Store:      a.store,
		Gateway:    gateway,
		Prompts:    prompts,
		Transcript: transcript,
		Logger:     a.logger.Named("session"),
		Out:        os.Stdout,
		History:    history,
	}
	if dispatcher != nil {
		cfg.Dispatcher = dispatcher
	}
	runner := session.NewRunner(cfg)

	fmt.Printf("Session %s (transcript: %s)\n", transcript.ID(), transcript.Path())
	if gateway != nil {
		fmt.Printf("Model: %s\n", gateway.Name())
	}
	fmt.Println()

	err = runner.Run(ctx, os.Stdin, strings.Join(args, " "))
	if dispatcher != nil {
		if active := dispatcher.Active(); len(active) > 0 {
			printStatus("•", "Stopping running tasks: "+strings.Join(active, ", "), color.FgYellow)
		}
		cancel()
		dispatcher.Wait()
	}
	if usage, ok := gateway.(llm.UsageReporter); ok {
		in, out := usage.Tracker().Total()
		fmt.Printf("Tokens: %d in, %d out over %d calls\n", in, out, usage.Tracker().Calls())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// reportRun prints the outcome of an executor run and saves its
// conversation as a transcript so 'rdteam mode' can inspect it.
func reportRun(a *app, req delegate.Request, res *executor.Result, err error) {
	if res != nil && len(res.History) > 0 {
		if tr, terr := session.NewTranscript(a.layout.SessionsDir()); terr == nil {
			for _, e := range res.History {
				tr.Append(e)
			}
			tr.Close()
			a.logger.Info("executor transcript saved", zap.String("task", req.TaskID), zap.String("path", tr.Path()))
		}
	}

	switch {
	case err != nil:
		fmt.Printf("\n%s Task '%s' stopped: %v\n", color.YellowString("⚠"), req.TaskTitle, err)
	case res != nil && res.Completed:
		fmt.Printf("\n%s Task '%s' completed: %s\n", color.GreenString("✓"), req.TaskTitle, res.Summary)
	}
}
