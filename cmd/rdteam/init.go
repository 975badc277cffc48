package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/config"
	"github.com/ShayCichocki/rdteam/internal/workspace"
)

var (
	initForce   bool
	initBackend string
	initFormat  string
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize an rdteam project",
	Long: `Initialize a directory for use with rdteam.

This command:
  - Creates the .rdteam workspace (backlog, sessions, logs)
  - Writes a .rdteam.yaml project configuration
  - Adds workspace runtime files to .gitignore

The directory argument is optional and defaults to the current directory.

Examples:
  rdteam init                     # Initialize current directory
  rdteam init ./myproject         # Initialize specific directory
  rdteam init --backend sqlite    # Keep the backlog in SQLite
  rdteam init --format yaml       # Write task records as YAML`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .rdteam.yaml")
	initCmd.Flags().StringVar(&initBackend, "backend", "", "Backlog backend: file or sqlite")
	initCmd.Flags().StringVar(&initFormat, "format", "", "Task record format for the file backend: json or yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing rdteam in %s...\n\n", absPath)

	cfg := config.Default()
	if initBackend != "" {
		cfg.Backlog.Backend = initBackend
	}
	if initFormat != "" {
		cfg.Backlog.Format = initFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	layout := workspace.New(filepath.Join(absPath, cfg.Workspace.Dir))
	if err := layout.Init(); err != nil {
		return err
	}
	printStatus("✓", "Created "+cfg.Workspace.Dir+" directory structure", color.FgGreen)

	configFile := filepath.Join(absPath, config.ProjectConfigName)
	if _, err := os.Stat(configFile); err == nil && !initForce {
		printStatus("•", config.ProjectConfigName+" already exists (use --force to overwrite)", color.FgYellow)
	} else {
		if err := config.WriteProjectConfig(cfg, configFile); err != nil {
			return err
		}
		printStatus("✓", "Created "+config.ProjectConfigName, color.FgGreen)
	}

	added, err := updateGitignore(absPath, cfg.Workspace.Dir)
	if err != nil {
		printStatus("⚠", "Could not update .gitignore: "+err.Error(), color.FgYellow)
	} else if added {
		printStatus("✓", "Updated .gitignore with rdteam entries", color.FgGreen)
	}

	if config.RequiresAPIKey(cfg) {
		if _, err := config.GetAPIKey(cfg); err != nil {
			printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
		} else {
			printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
		}
	}

	fmt.Printf("\n%s rdteam initialization complete!\n\n", color.GreenString("✓"))
	fmt.Println("Next: rdteam session \"describe your project\"")
	return nil
}

// updateGitignore appends the workspace's runtime directories to
// .gitignore. The backlog itself stays tracked. It reports whether anything
// was added.
func updateGitignore(root, workspaceDir string) (bool, error) {
	path := filepath.Join(root, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	wanted := []string{
		workspaceDir + "/sessions/",
		workspaceDir + "/logs/",
		workspaceDir + "/backlog/.lock",
		workspaceDir + "/*.db*",
	}
	present := make(map[string]bool)
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, entry := range wanted {
		if !present[entry] {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	var sb strings.Builder
	if len(existing) > 0 && !strings.HasSuffix(string(existing), "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("\n# rdteam\n")
	for _, entry := range missing {
		sb.WriteString(entry)
		sb.WriteString("\n")
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()
	if _, err := f.WriteString(sb.String()); err != nil {
		return false, err
	}
	return true, nil
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
