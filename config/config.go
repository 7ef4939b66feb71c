// Package config provides configuration loading for planloop.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PLANLOOP_SERVER_ADDR, PLANLOOP_MODEL_NAME, ...)
//  2. YAML config file
//  3. Hardcoded defaults
package config

import (
	"fmt"
	"time"
)

// Config is the full planloop configuration tree.
type Config struct {
	Model      ModelConfig      `koanf:"model"`
	Agent      AgentConfig      `koanf:"agent"`
	Planning   PlanningConfig   `koanf:"planning"`
	Evaluation EvaluationConfig `koanf:"evaluation"`
	Memory     MemoryConfig     `koanf:"memory"`
	Stream     StreamConfig     `koanf:"stream"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ModelConfig selects and tunes the LLM provider.
type ModelConfig struct {
	// Provider is "openai", "anthropic" or "mock".
	Provider string `koanf:"provider"`
	// Name is the provider-specific model identifier.
	Name string `koanf:"name"`
	// Temperature is the default sampling temperature.
	Temperature float64 `koanf:"temperature"`
	// MaxTokens caps completion length.
	MaxTokens int64 `koanf:"max_tokens"`
	// RetryAttempts bounds transient-failure retries per completion.
	RetryAttempts int `koanf:"retry_attempts"`
}

// AgentConfig tunes the orchestrator.
type AgentConfig struct {
	Name          string `koanf:"name"`
	MaxIterations int    `koanf:"max_iterations"`
	// ThinkingEnabled toggles failure analysis between execution and
	// replanning. Defaults to true.
	ThinkingEnabled bool `koanf:"thinking_enabled"`
}

// PlanningConfig tunes the planning engine.
type PlanningConfig struct {
	MaxSubtasks int `koanf:"max_subtasks"`
	MaxAttempts int `koanf:"max_attempts"`
	// AllowReplanning enables plan revision after subtask failures.
	// Defaults to true; when false MaxReplans is ignored.
	AllowReplanning bool `koanf:"allow_replanning"`
	MaxReplans      int  `koanf:"max_replans"`
}

// EvaluationConfig tunes the evaluation engine.
type EvaluationConfig struct {
	SuccessThreshold float64 `koanf:"success_threshold"`
}

// MemoryConfig bounds working memory.
type MemoryConfig struct {
	MaxMessages int `koanf:"max_messages"`
}

// StreamConfig tunes the event bus.
type StreamConfig struct {
	SubscriberBuffer int `koanf:"subscriber_buffer"`
	HistorySize      int `koanf:"history_size"`
}

// ServerConfig tunes the HTTP front end.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig tunes diagnostics output.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`
	// Format is "json" or "text".
	Format string `koanf:"format"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Agent.ThinkingEnabled = true
	cfg.Planning.AllowReplanning = true
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = "openai"
	}
	if cfg.Model.Temperature == 0 {
		cfg.Model.Temperature = 0.7
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = 4096
	}
	if cfg.Model.RetryAttempts == 0 {
		cfg.Model.RetryAttempts = 3
	}

	if cfg.Agent.Name == "" {
		cfg.Agent.Name = "planloop"
	}
	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = 10
	}

	if cfg.Planning.MaxSubtasks == 0 {
		cfg.Planning.MaxSubtasks = 20
	}
	if cfg.Planning.MaxAttempts == 0 {
		cfg.Planning.MaxAttempts = 3
	}
	if cfg.Planning.MaxReplans == 0 {
		cfg.Planning.MaxReplans = 2
	}

	if cfg.Evaluation.SuccessThreshold == 0 {
		cfg.Evaluation.SuccessThreshold = 0.7
	}

	if cfg.Memory.MaxMessages == 0 {
		cfg.Memory.MaxMessages = 100
	}

	if cfg.Stream.SubscriberBuffer == 0 {
		cfg.Stream.SubscriberBuffer = 64
	}
	if cfg.Stream.HistorySize == 0 {
		cfg.Stream.HistorySize = 256
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Evaluation.SuccessThreshold < 0 || c.Evaluation.SuccessThreshold > 1 {
		return fmt.Errorf("evaluation.success_threshold must be between 0 and 1, got %v", c.Evaluation.SuccessThreshold)
	}
	if c.Agent.MaxIterations < 1 {
		return fmt.Errorf("agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	}
	if c.Planning.MaxReplans < 0 {
		return fmt.Errorf("planning.max_replans must not be negative, got %d", c.Planning.MaxReplans)
	}
	if c.Planning.MaxSubtasks < 1 {
		return fmt.Errorf("planning.max_subtasks must be at least 1, got %d", c.Planning.MaxSubtasks)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}
