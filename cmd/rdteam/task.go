package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

var (
	taskTitle       string
	taskPhase       string
	taskDescription string
	taskAcceptance  string
	taskStatus      string
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create, update and list backlog tasks",
}

var taskCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a task (replaces a task with the same title)",
	Example: `  rdteam task create --title "Design Schema" --phase architecture
  rdteam task create --title "Build API" --phase development --description "REST endpoints"`,
	RunE: runTaskCreate,
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update fields of a task",
	Example: `  rdteam task update Build_API --status completed
  rdteam task update Build_API --phase testing`,
	Args: cobra.ExactArgs(1),
	RunE: runTaskUpdate,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in creation order",
	RunE:  runTaskList,
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskTitle, "title", "", "Task title (required)")
	taskCreateCmd.Flags().StringVar(&taskPhase, "phase", "", "Task phase (required)")
	taskCreateCmd.Flags().StringVar(&taskDescription, "description", "", "Task description")
	taskCreateCmd.Flags().StringVar(&taskAcceptance, "acceptance", "", "Acceptance criteria")
	taskCreateCmd.Flags().StringVar(&taskStatus, "status", string(models.TaskStatusNotStarted), "Initial status")
	taskCreateCmd.MarkFlagRequired("title")
	taskCreateCmd.MarkFlagRequired("phase")

	taskUpdateCmd.Flags().StringVar(&taskPhase, "phase", "", "New phase")
	taskUpdateCmd.Flags().StringVar(&taskDescription, "description", "", "New description")
	taskUpdateCmd.Flags().StringVar(&taskAcceptance, "acceptance", "", "New acceptance criteria")
	taskUpdateCmd.Flags().StringVar(&taskStatus, "status", "", "New status: not_started, in_progress or completed")

	taskListCmd.Flags().StringVar(&taskPhase, "phase", "", "Only list this phase")

	taskCmd.AddCommand(taskCreateCmd, taskUpdateCmd, taskListCmd)
}

func runTaskCreate(cmd *cobra.Command, args []string) error {
	phase, err := models.ParsePhase(taskPhase)
	if err != nil {
		return err
	}
	status, err := models.ParseTaskStatus(taskStatus)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.store.Create(context.Background(), models.Task{
		Title:              taskTitle,
		Description:        taskDescription,
		Phase:              phase,
		Status:             status,
		AcceptanceCriteria: taskAcceptance,
	})
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Created %s task %s", phase, id), color.FgGreen)
	return nil
}

func runTaskUpdate(cmd *cobra.Command, args []string) error {
	var update models.TaskUpdate
	flags := cmd.Flags()
	if flags.Changed("status") {
		status, err := models.ParseTaskStatus(taskStatus)
		if err != nil {
			return err
		}
		update.Status = &status
	}
	if flags.Changed("phase") {
		phase, err := models.ParsePhase(taskPhase)
		if err != nil {
			return err
		}
		update.Phase = &phase
	}
	if flags.Changed("description") {
		update.Description = &taskDescription
	}
	if flags.Changed("acceptance") {
		update.AcceptanceCriteria = &taskAcceptance
	}
	if update.Empty() {
		return fmt.Errorf("nothing to update: pass --status, --phase, --description or --acceptance")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.store.Update(context.Background(), args[0], update)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s not found", args[0])
	}
	printStatus("✓", "Updated task "+args[0], color.FgGreen)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	var tasks []models.Task
	if taskPhase != "" {
		phase, perr := models.ParsePhase(taskPhase)
		if perr != nil {
			return perr
		}
		tasks, err = a.store.ListByPhase(ctx, phase)
	} else {
		tasks, err = a.store.ListAll(ctx)
	}
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("%s %-32s %-24s %s\n", statusSymbol(t.Status), t.ID(), t.Phase, t.Status)
	}
	return nil
}
