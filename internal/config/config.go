package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iishyfishyy/ask-sh/internal/llm"
)

const (
	ConfigDirName  = ".ask-sh"
	ConfigFileName = "config.json"
)

const (
	DefaultProvider       = llm.ProviderOpenAI
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-sonnet-latest"
)

// Environment variables read by Resolve
const (
	EnvProvider       = "ASK_SH_LLM_PROVIDER"
	EnvOpenAIKey      = "ASK_SH_OPENAI_API_KEY"
	EnvOpenAIModel    = "ASK_SH_OPENAI_MODEL"
	EnvOpenAIBaseURL  = "ASK_SH_OPENAI_BASE_URL"
	EnvAnthropicKey   = "ASK_SH_ANTHROPIC_API_KEY"
	EnvAnthropicModel = "ASK_SH_ANTHROPIC_MODEL"
	EnvDebug          = "ASK_SH_DEBUG"
	EnvNoPane         = "ASK_SH_NO_PANE"
	EnvNoSuggest      = "ASK_SH_NO_SUGGEST"
	EnvNoHistory      = "ASK_SH_NO_HISTORY"
)

// Config represents the on-disk configuration. Every field is optional.
type Config struct {
	Provider  string `json:"provider,omitempty"`
	Model     string `json:"model,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	NoPane    bool   `json:"no_pane,omitempty"`
	NoSuggest bool   `json:"no_suggest,omitempty"`
	History   *bool  `json:"history,omitempty"` // nil means enabled
}

// Settings is the effective configuration after file and environment layering.
// Command-line flags are applied on top by the caller.
type Settings struct {
	LLM       llm.Config
	Debug     bool
	NoPane    bool
	NoSuggest bool
	History   bool
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ConfigDirName), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, ConfigFileName), nil
}

// Load reads the configuration from disk. A missing file returns nil, nil.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	return &cfg, nil
}

// Save writes the configuration to disk. The file may hold an API key, so it
// is written owner-only and replaced atomically.
func Save(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, ConfigFileName)
	tmpPath := configPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace config file: %w", err)
	}

	return nil
}

// Exists checks if a configuration file exists
func Exists() (bool, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return false, err
	}

	_, err = os.Stat(configPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// Resolve layers defaults, the config file (cfg may be nil) and environment
// variables. It does no I/O of its own.
//
// File values for model, key and base URL only apply when the file names the
// same provider that wins, so switching provider through the environment
// never pairs an OpenAI model with the Anthropic API.
func Resolve(cfg *Config, getenv func(string) string) Settings {
	if cfg == nil {
		cfg = &Config{}
	}

	fileProvider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if fileProvider == "" {
		fileProvider = DefaultProvider
	}
	provider := fileProvider
	if v := strings.ToLower(strings.TrimSpace(getenv(EnvProvider))); v != "" {
		provider = v
	}

	var fromFile Config
	if provider == fileProvider {
		fromFile = *cfg
	}

	s := Settings{
		LLM: llm.Config{
			Provider: provider,
			Model:    fromFile.Model,
			APIKey:   fromFile.APIKey,
		},
		NoPane:    cfg.NoPane,
		NoSuggest: cfg.NoSuggest,
		History:   cfg.History == nil || *cfg.History,
	}

	switch provider {
	case llm.ProviderOpenAI:
		s.LLM.Model = firstNonEmpty(getenv(EnvOpenAIModel), s.LLM.Model, DefaultOpenAIModel)
		s.LLM.APIKey = firstNonEmpty(getenv(EnvOpenAIKey), s.LLM.APIKey)
		s.LLM.BaseURL = firstNonEmpty(getenv(EnvOpenAIBaseURL), fromFile.BaseURL)
	case llm.ProviderAnthropic:
		s.LLM.Model = firstNonEmpty(getenv(EnvAnthropicModel), s.LLM.Model, DefaultAnthropicModel)
		s.LLM.APIKey = firstNonEmpty(getenv(EnvAnthropicKey), s.LLM.APIKey)
	}

	s.Debug = envBool(getenv, EnvDebug, false)
	s.NoPane = envBool(getenv, EnvNoPane, s.NoPane)
	s.NoSuggest = envBool(getenv, EnvNoSuggest, s.NoSuggest)
	s.History = !envBool(getenv, EnvNoHistory, !s.History)
	s.LLM.Debug = s.Debug

	return s
}

// KeyEnvVar names the environment variable holding the key for provider
func KeyEnvVar(provider string) string {
	if provider == llm.ProviderAnthropic {
		return EnvAnthropicKey
	}
	return EnvOpenAIKey
}

// DefaultModel returns the model used when none is configured
func DefaultModel(provider string) string {
	if provider == llm.ProviderAnthropic {
		return DefaultAnthropicModel
	}
	return DefaultOpenAIModel
}

// envBool reads a boolean variable; unset or unparsable values keep def
func envBool(getenv func(string) string, key string, def bool) bool {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
