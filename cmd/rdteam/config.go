package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rdteam/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
	Long: `View the effective rdteam configuration.

User configuration is read from ~/.config/rdteam/config.yaml (or
$XDG_CONFIG_HOME/rdteam/config.yaml). Project overrides live in .rdteam.yaml,
and RDTEAM_<SECTION>_<KEY> environment variables override both.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		displayAllConfig(cfg)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	key, _ := config.GetAPIKey(cfg)

	fmt.Printf("user config:          %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Printf("project config:       %s\n", p)
	} else {
		fmt.Printf("project config:       (none)\n")
	}
	fmt.Println()
	fmt.Printf("workspace.dir:        %s\n", cfg.Workspace.Dir)
	fmt.Printf("backlog.backend:      %s\n", cfg.Backlog.Backend)
	fmt.Printf("backlog.format:       %s\n", cfg.Backlog.Format)
	fmt.Printf("backlog.driver:       %s\n", cfg.Backlog.Driver)
	fmt.Printf("backlog.lock_timeout: %s\n", cfg.Backlog.LockTimeout)
	fmt.Printf("backlog.created_by:   %s\n", cfg.Backlog.CreatedBy)
	fmt.Printf("llm.provider:         %s\n", cfg.LLM.Provider)
	fmt.Printf("llm.model:            %s\n", cfg.LLM.Model)
	fmt.Printf("llm.max_tokens:       %d\n", cfg.LLM.MaxTokens)
	if cfg.LLM.Provider == "bedrock" {
		fmt.Printf("llm.aws_region:       %s\n", cfg.LLM.AWSRegion)
		fmt.Printf("llm.aws_profile:      %s\n", cfg.LLM.AWSProfile)
	}
	if cfg.LLM.Provider == "ollama" {
		fmt.Printf("llm.ollama_host:      %s\n", cfg.LLM.OllamaHost)
	}
	fmt.Printf("anthropic.api_key:    %s (source: %s)\n", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	fmt.Printf("executor.max_turns:   %d\n", cfg.Executor.MaxTurns)
	fmt.Printf("logging.level:        %s\n", cfg.Logging.Level)
	fmt.Printf("logging.format:       %s\n", cfg.Logging.Format)
	fmt.Printf("logging.file:         %s\n", cfg.Logging.File)
	fmt.Printf("metrics.addr:         %s\n", cfg.Metrics.Addr)
}
