/*
Package config handles loading and saving tool-router configuration.

Configuration is stored in ~/.tool-router.yaml and uses camelCase keys.

Schema:

	model:
	  endpoint: http://localhost:11434
	  name: llama3.1
	  timeoutSeconds: 120
	  contextWindow: 32768
	pipeline:
	  strictMode: false
	  maxToolRounds: 5
	budget:
	  minMemoryTokens: 0
	history:
	  path: ~/.tool-router/history.json
	  maxRecent: 5
	  maxSummaries: 20
	learning:
	  enabled: true
	  dbPath: ~/.tool-router/operations.db
	  retentionDays: 30
	workspace: .
	logging:
	  level: info
	  json: false
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Environment overrides applied after the file is read.
const (
	EnvModel     = "TOOL_ROUTER_MODEL"
	EnvEndpoint  = "TOOL_ROUTER_ENDPOINT"
	EnvWorkspace = "TOOL_ROUTER_WORKSPACE"
	EnvLearning  = "TOOL_ROUTER_LEARNING"
)

// Config represents the root configuration structure.
type Config struct {
	Model     ModelConfig    `yaml:"model"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Budget    BudgetConfig   `yaml:"budget"`
	History   HistoryConfig  `yaml:"history"`
	Learning  LearningConfig `yaml:"learning"`
	Workspace string         `yaml:"workspace"`
	Logging   LoggingConfig  `yaml:"logging"`
}

// ModelConfig points at the chat backend.
type ModelConfig struct {
	// Endpoint is the base URL of an Ollama-compatible server.
	Endpoint string `yaml:"endpoint"`

	// Name is the model identifier sent with every request.
	Name string `yaml:"name"`

	// TimeoutSeconds bounds a single backend call.
	TimeoutSeconds int `yaml:"timeoutSeconds"`

	// ContextWindow is the model's context size in tokens.
	ContextWindow int `yaml:"contextWindow"`
}

// PipelineConfig tunes the decision pipeline.
type PipelineConfig struct {
	// StrictMode surfaces ambiguous intents as errors instead of auto-resolving them.
	StrictMode bool `yaml:"strictMode"`

	// MaxToolRounds caps model tool-call rounds per turn.
	MaxToolRounds int `yaml:"maxToolRounds"`
}

// BudgetConfig tunes the context-window allocator.
type BudgetConfig struct {
	// MinMemoryTokens is the conversation-memory floor in tokens (0 disables).
	MinMemoryTokens int `yaml:"minMemoryTokens"`
}

// HistoryConfig controls conversation persistence.
type HistoryConfig struct {
	Path         string `yaml:"path"`
	MaxRecent    int    `yaml:"maxRecent"`
	MaxSummaries int    `yaml:"maxSummaries"`
}

// LearningConfig controls the SQLite operation log.
type LearningConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"dbPath"`
	RetentionDays int    `yaml:"retentionDays"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// NewConfig creates a configuration populated with defaults.
func NewConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Model: ModelConfig{
			Endpoint:       "http://localhost:11434",
			Name:           "llama3.1",
			TimeoutSeconds: 120,
			ContextWindow:  32768,
		},
		Pipeline: PipelineConfig{
			MaxToolRounds: 5,
		},
		History: HistoryConfig{
			Path:         filepath.Join(dataDir, "history.json"),
			MaxRecent:    5,
			MaxSummaries: 20,
		},
		Learning: LearningConfig{
			Enabled:       true,
			DBPath:        filepath.Join(dataDir, "operations.db"),
			RetentionDays: 30,
		},
		Workspace: ".",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.tool-router.yaml
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tool-router.yaml"), nil
}

// defaultDataDir returns ~/.tool-router, or a relative fallback without a home.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tool-router"
	}
	return filepath.Join(home, ".tool-router")
}

// Load reads the configuration from the default path.
func Load() (*Config, error) {
	configPath, err := GetDefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadOrCreate reads the configuration at path, writing defaults when the
// file does not exist yet. An empty path means the default location.
func LoadOrCreate(path string) (*Config, error) {
	if path == "" {
		p, err := GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := LoadFrom(path)
	if err == nil {
		return cfg, nil
	}
	var notFound *ConfigNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	cfg = NewConfig()
	if err := Save(cfg, path); err != nil {
		// Unwritable home is not fatal; run on defaults.
		cfg.ApplyEnv()
		return cfg, nil
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvModel); v != "" {
		c.Model.Name = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Model.Endpoint = v
	}
	if v := os.Getenv(EnvWorkspace); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv(EnvLearning); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Learning.Enabled = b
		}
	}
}

// fillDefaults replaces zero values left by a partial file with defaults.
func (c *Config) fillDefaults() {
	d := NewConfig()
	if c.Model.Endpoint == "" {
		c.Model.Endpoint = d.Model.Endpoint
	}
	if c.Model.Name == "" {
		c.Model.Name = d.Model.Name
	}
	if c.Model.TimeoutSeconds == 0 {
		c.Model.TimeoutSeconds = d.Model.TimeoutSeconds
	}
	if c.Model.ContextWindow == 0 {
		c.Model.ContextWindow = d.Model.ContextWindow
	}
	if c.Pipeline.MaxToolRounds == 0 {
		c.Pipeline.MaxToolRounds = d.Pipeline.MaxToolRounds
	}
	if c.History.Path == "" {
		c.History.Path = d.History.Path
	}
	if c.History.MaxRecent == 0 {
		c.History.MaxRecent = d.History.MaxRecent
	}
	if c.History.MaxSummaries == 0 {
		c.History.MaxSummaries = d.History.MaxSummaries
	}
	if c.Learning.DBPath == "" {
		c.Learning.DBPath = d.Learning.DBPath
	}
	if c.Learning.RetentionDays == 0 {
		c.Learning.RetentionDays = d.Learning.RetentionDays
	}
	if c.Workspace == "" {
		c.Workspace = d.Workspace
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
}
