package config

import (
	"testing"
)

// clearKeyEnv unsets every API key variable for the test.
func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range apiKeyEnvVars {
		t.Setenv(name, "")
	}
}

func TestGetAPIKey(t *testing.T) {
	t.Run("from environment variable", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-key")

		key, err := GetAPIKey(&Config{})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-test-key" {
			t.Errorf("expected 'sk-ant-test-key', got %q", key)
		}
	})

	t.Run("from prefixed environment variable", func(t *testing.T) {
		clearKeyEnv(t)
		t.Setenv("RDTEAM_ANTHROPIC_API_KEY", "sk-ant-prefixed")

		key, err := GetAPIKey(nil)
		if err != nil || key != "sk-ant-prefixed" {
			t.Errorf("GetAPIKey() = %q, %v", key, err)
		}
	})

	t.Run("from config", func(t *testing.T) {
		clearKeyEnv(t)

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
		key, err := GetAPIKey(cfg)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if key != "sk-ant-config-key" {
			t.Errorf("expected 'sk-ant-config-key', got %q", key)
		}
	})

	t.Run("unresolved reference", func(t *testing.T) {
		clearKeyEnv(t)

		cfg := &Config{Anthropic: AnthropicConfig{APIKey: "${RDTEAM_TEST_UNSET_VAR}"}}
		if _, err := GetAPIKey(cfg); err != ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("no key configured", func(t *testing.T) {
		clearKeyEnv(t)

		if _, err := GetAPIKey(&Config{}); err != ErrNoAPIKey {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})
}

func TestRequiresAPIKey(t *testing.T) {
	tests := []struct {
		provider string
		want     bool
	}{
		{"", true},
		{"anthropic", true},
		{"bedrock", false},
		{"ollama", false},
	}
	for _, tt := range tests {
		cfg := &Config{LLM: LLMConfig{Provider: tt.provider}}
		if got := RequiresAPIKey(cfg); got != tt.want {
			t.Errorf("RequiresAPIKey(%q) = %v, want %v", tt.provider, got, tt.want)
		}
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{"valid", "sk-ant-REDACTED", false},
		{"empty", "", true},
		{"wrong prefix", "sk-openai-abcdefghijklmnop", true},
		{"too short", "sk-ant-abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.key)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAPIKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "(not set)"},
		{"short", "***"},
		{"sk-ant-REDACTED", "sk-ant-...mnop"},
	}
	for _, tt := range tests {
		if got := MaskAPIKey(tt.key); got != tt.want {
			t.Errorf("MaskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestGetAPIKeySource(t *testing.T) {
	clearKeyEnv(t)
	if got := GetAPIKeySource(&Config{}); got != KeySourceNone {
		t.Errorf("source = %q, want none", got)
	}

	cfg := &Config{Anthropic: AnthropicConfig{APIKey: "sk-ant-config-key"}}
	if got := GetAPIKeySource(cfg); got != KeySourceConfig {
		t.Errorf("source = %q, want config_file", got)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")
	if got := GetAPIKeySource(cfg); got != KeySourceEnv {
		t.Errorf("source = %q, want environment", got)
	}
}
