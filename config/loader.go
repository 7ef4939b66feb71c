package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "PLANLOOP_"

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load reads configuration from an optional YAML file, overrides it with
// PLANLOOP_* environment variables and fills in defaults. An empty path
// skips the file layer; a named file that does not exist is an error.
//
// Environment variables map section and field with the first underscore:
//
//	PLANLOOP_SERVER_ADDR                  -> server.addr
//	PLANLOOP_MODEL_NAME                   -> model.name
//	PLANLOOP_EVALUATION_SUCCESS_THRESHOLD -> evaluation.success_threshold
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		info, err := os.Stat(configPath)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
		}

		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Booleans default to true, so unset keys cannot be told apart from an
	// explicit false after unmarshalling.
	if !k.Exists("agent.thinking_enabled") {
		cfg.Agent.ThinkingEnabled = true
	}
	if !k.Exists("planning.allow_replanning") {
		cfg.Planning.AllowReplanning = true
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

// envTransform maps PLANLOOP_SECTION_FIELD_NAME to section.field_name. The
// first underscore after the prefix separates section from field; remaining
// underscores stay in the field name.
func envTransform(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}
