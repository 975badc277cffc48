// Package config handles configuration loading and management for rdteam.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	yaml "go.yaml.in/yaml/v3"
)

// ProjectConfigName is the per-project config file, searched upwards from
// the working directory.
const ProjectConfigName = ".rdteam.yaml"

// Config holds all configuration for rdteam.
type Config struct {
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Backlog   BacklogConfig   `mapstructure:"backlog" yaml:"backlog"`
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Executor  ExecutorConfig  `mapstructure:"executor" yaml:"executor"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
}

// WorkspaceConfig locates the project workspace.
type WorkspaceConfig struct {
	// Dir is the workspace directory, relative to the project root.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// BacklogConfig selects and tunes the task store.
type BacklogConfig struct {
	// Backend is "file" (one record per task) or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Format is the record format of the file backend: "json" or "yaml".
	Format string `mapstructure:"format" yaml:"format"`
	// Driver is the SQL driver of the sqlite backend: "sqlite" or "sqlite3".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// LockTimeout bounds the wait for the file backend's writer lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
	// CreatedBy is the provenance tag stamped on new tasks.
	CreatedBy string `mapstructure:"created_by" yaml:"created_by"`
}

// LLMConfig selects the language model gateway.
type LLMConfig struct {
	// Provider is "anthropic", "bedrock" or "ollama".
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	MaxTokens  int    `mapstructure:"max_tokens" yaml:"max_tokens"`
	AWSRegion  string `mapstructure:"aws_region" yaml:"aws_region,omitempty"`
	AWSProfile string `mapstructure:"aws_profile" yaml:"aws_profile,omitempty"`
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host,omitempty"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// ExecutorConfig tunes the executor agent.
type ExecutorConfig struct {
	// MaxTurns bounds the model turns of one delegated task.
	MaxTurns int `mapstructure:"max_turns" yaml:"max_turns"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	// File is the log file. Empty means <workspace>/logs/rdteam.log;
	// "stderr" logs to standard error.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of /metrics. Empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, RDTEAM_<SECTION>_<KEY>)
// 2. Project config (.rdteam.yaml in current directory or parent)
// 3. User config (~/.config/rdteam/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific file over the defaults.
// Environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	bindEnv(v)
	return unmarshal(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("RDTEAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY", "RDTEAM_ANTHROPIC_API_KEY")
	v.BindEnv("llm.ollama_host", "OLLAMA_HOST", "RDTEAM_LLM_OLLAMA_HOST")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	checks := []struct {
		key     string
		value   string
		allowed []string
	}{
		{"backlog.backend", c.Backlog.Backend, []string{"file", "sqlite"}},
		{"backlog.format", c.Backlog.Format, []string{"json", "yaml"}},
		{"backlog.driver", c.Backlog.Driver, []string{"sqlite", "sqlite3"}},
		{"llm.provider", c.LLM.Provider, []string{"anthropic", "bedrock", "ollama"}},
		{"logging.format", c.Logging.Format, []string{"json", "console"}},
		{"logging.level", c.Logging.Level, []string{"debug", "info", "warn", "error"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return fmt.Errorf("invalid %s %q: want one of %s", ch.key, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if c.Executor.MaxTurns <= 0 {
		return fmt.Errorf("invalid executor.max_turns %d: must be positive", c.Executor.MaxTurns)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("invalid llm.max_tokens %d: must be positive", c.LLM.MaxTokens)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// WriteProjectConfig writes cfg as a project config file. Secrets are
// left out so the file can be committed.
func WriteProjectConfig(cfg *Config, path string) error {
	out := *cfg
	out.Anthropic.APIKey = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("encoding project config: %w", err)
	}

	header := []byte("# rdteam project configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("writing project config: %w", err)
	}
	return nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("workspace.dir", ".rdteam")

	v.SetDefault("backlog.backend", "file")
	v.SetDefault("backlog.format", "json")
	v.SetDefault("backlog.driver", "sqlite")
	v.SetDefault("backlog.lock_timeout", "2s")
	v.SetDefault("backlog.created_by", "rdteam")

	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "claude-sonnet-4-5")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.aws_region", "")
	v.SetDefault("llm.aws_profile", "")
	v.SetDefault("llm.ollama_host", "")

	v.SetDefault("anthropic.api_key", "")

	v.SetDefault("executor.max_turns", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	v.SetDefault("metrics.addr", "")
}

// getUserConfigDir returns the XDG config directory for rdteam.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rdteam")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "rdteam")
	}
	return filepath.Join(home, ".config", "rdteam")
}

// findProjectConfig searches for .rdteam.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ProjectConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Workspace: WorkspaceConfig{Dir: ".rdteam"},
		Backlog: BacklogConfig{
			Backend:     "file",
			Format:      "json",
			Driver:      "sqlite",
			LockTimeout: 2 * time.Second,
			CreatedBy:   "rdteam",
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
		},
		Executor: ExecutorConfig{MaxTurns: 20},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
