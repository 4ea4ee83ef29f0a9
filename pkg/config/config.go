// SPDX-License-Identifier: Apache-2.0

// Package config loads Telos runtime configuration from YAML files and
// TELOS_-prefixed environment variables, with sane defaults for local use.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Log        LogConfig        `koanf:"log"`
	Oracle     OracleConfig     `koanf:"oracle"`
	Loop       LoopConfig       `koanf:"loop"`
	Stagnation StagnationConfig `koanf:"stagnation"`
	Audit      AuditConfig      `koanf:"audit"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type OracleConfig struct {
	Provider    string  `koanf:"provider"` // ollama, mock
	Model       string  `koanf:"model"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
}

type LoopConfig struct {
	MaxIterations  int           `koanf:"max_iterations"`
	RetryAttempts  int           `koanf:"retry_attempts"`
	IterationDelay time.Duration `koanf:"iteration_delay"`
	Sequential     bool          `koanf:"sequential"`
	SystemPrompt   string        `koanf:"system_prompt"`
}

type StagnationConfig struct {
	WarnThreshold float64 `koanf:"warn_threshold"`
	StopThreshold float64 `koanf:"stop_threshold"`
	RepeatWindow  int     `koanf:"repeat_window"`
	RepeatLimit   int     `koanf:"repeat_limit"`
	DisableBurst  bool    `koanf:"disable_burst"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Exporter string `koanf:"exporter"` // stdout, otlp
	Endpoint string `koanf:"endpoint"`
}

// Load reads configuration from an optional YAML file, then overlays
// TELOS_-prefixed environment variables (TELOS_ORACLE_MODEL -> oracle.model).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("oracle.provider", "ollama")
	k.Set("oracle.model", "qwen2.5-coder:7b-instruct-q5_K_M")
	k.Set("oracle.base_url", "http://localhost:11434")

	k.Set("loop.max_iterations", 10)
	k.Set("loop.retry_attempts", 3)

	k.Set("stagnation.warn_threshold", 0.7)
	k.Set("stagnation.stop_threshold", 0.9)

	k.Set("audit.enabled", false)
	k.Set("audit.path", "telos_audit.db")

	k.Set("telemetry.enabled", false)
	k.Set("telemetry.exporter", "stdout")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("TELOS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TELOS_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
