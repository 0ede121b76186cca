// Package config provides configuration loading, validation, and secrets
// management for the story workflow service. It handles JSON config files
// with environment variable substitution and per-stage model settings.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"
)

// Stage names used as keys in the per-stage settings map.
const (
	StageClassify  = "classify"
	StageGenerate  = "generate"
	StageValidate  = "validate"
	StageRetrieve  = "retrieve"
	StageSummarize = "summarize"
	StageFormat    = "format"
)

// Default revision budget for a story before the draft is force-approved.
const DefaultMaxIterations = 3

// DefaultHistoryWindow bounds how many conversation messages are rendered
// into LLM prompts.
const DefaultHistoryWindow = 10

// Project config constants.
const (
	ConfigFilename = "config.json"
	ProjectDir     = ".starlit"
)

// StageConfig holds the model settings for one pipeline stage.
type StageConfig struct {
	Model          string  `json:"model"`           // "provider/model-name"
	Temperature    float64 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// Timeout returns the stage timeout as a duration.
func (s StageConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// StorageConfig selects and parameterizes the state store backend.
type StorageConfig struct {
	Backend string `json:"backend"` // "memory", "file", or "sqlite"
	Path    string `json:"path"`    // directory for "file", database file for "sqlite"
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string `json:"addr"`
	ReadTimeout  int    `json:"read_timeout_sec"`
	WriteTimeout int    `json:"write_timeout_sec"`
}

// Config is the top-level service configuration.
type Config struct {
	MaxIterations int                    `json:"max_iterations"`
	StrictSafety  bool                   `json:"strict_safety"`
	HistoryWindow int                    `json:"history_window"`
	Stages        map[string]StageConfig `json:"stages"`
	Storage       StorageConfig          `json:"storage"`
	Server        ServerConfig           `json:"server"`
}

// Stage returns the settings for a named stage, falling back to the built-in
// defaults when the config omits it.
func (c *Config) Stage(name string) StageConfig {
	if c.Stages != nil {
		if sc, ok := c.Stages[name]; ok {
			return sc
		}
	}
	return defaultStages()[name]
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// LoadConfig loads and validates configuration from a JSON file with
// environment variable substitution.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Replace environment variable placeholders.
	dataStr := envVarRegex.ReplaceAllStringFunc(string(data), func(match string) string {
		envVar := match[2 : len(match)-1]
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})

	var config Config
	if err := json.Unmarshal([]byte(dataStr), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a fully populated configuration without reading any
// file. Useful for tests and for running without a config file at all.
func DefaultConfig() *Config {
	config := &Config{}
	applyDefaults(config)
	return config
}

func defaultStages() map[string]StageConfig {
	return map[string]StageConfig{
		StageClassify:  {Model: "google/gemini-2.5-flash", Temperature: 0.3, TimeoutSeconds: 30},
		StageGenerate:  {Model: "google/gemini-2.5-pro", Temperature: 0.8, TimeoutSeconds: 60},
		StageValidate:  {Model: "google/gemini-2.5-flash", Temperature: 0.2, TimeoutSeconds: 30},
		StageRetrieve:  {Model: "google/gemini-2.5-flash", Temperature: 0.5, TimeoutSeconds: 20},
		StageSummarize: {Model: "google/gemini-2.5-pro", Temperature: 0.3, TimeoutSeconds: 45},
		StageFormat:    {Model: "google/gemini-2.5-flash", Temperature: 0.1, TimeoutSeconds: 20},
	}
}

// applyDefaults sets default values for missing configuration.
func applyDefaults(config *Config) {
	if config.MaxIterations == 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.HistoryWindow == 0 {
		config.HistoryWindow = DefaultHistoryWindow
	}

	if config.Stages == nil {
		config.Stages = make(map[string]StageConfig)
	}
	for name, def := range defaultStages() {
		sc, ok := config.Stages[name]
		if !ok {
			config.Stages[name] = def
			continue
		}
		if sc.Model == "" {
			sc.Model = def.Model
		}
		if sc.Temperature == 0 {
			sc.Temperature = def.Temperature
		}
		if sc.TimeoutSeconds == 0 {
			sc.TimeoutSeconds = def.TimeoutSeconds
		}
		config.Stages[name] = sc
	}

	if config.Storage.Backend == "" {
		config.Storage.Backend = "memory"
	}
	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30
	}
	if config.Server.WriteTimeout == 0 {
		// Story generation can take over a minute end to end.
		config.Server.WriteTimeout = 300
	}
}

func validateConfig(config *Config) error {
	if config.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", config.MaxIterations)
	}
	if config.HistoryWindow < 1 {
		return fmt.Errorf("history_window must be at least 1, got %d", config.HistoryWindow)
	}

	for name, sc := range config.Stages {
		if sc.Model == "" {
			return fmt.Errorf("stage %s: model is required", name)
		}
		if sc.Temperature < 0 || sc.Temperature > 2 {
			return fmt.Errorf("stage %s: temperature %v out of range [0, 2]", name, sc.Temperature)
		}
		if sc.TimeoutSeconds < 1 {
			return fmt.Errorf("stage %s: timeout_seconds must be positive, got %d", name, sc.TimeoutSeconds)
		}
	}

	switch config.Storage.Backend {
	case "memory":
	case "file", "sqlite":
		if config.Storage.Path == "" {
			return fmt.Errorf("storage backend %s requires a path", config.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	return nil
}
