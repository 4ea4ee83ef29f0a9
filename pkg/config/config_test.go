// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Oracle.Provider != "ollama" {
		t.Errorf("expected default provider ollama, got %s", cfg.Oracle.Provider)
	}
	if cfg.Loop.MaxIterations != 10 {
		t.Errorf("expected default max iterations 10, got %d", cfg.Loop.MaxIterations)
	}
	if cfg.Stagnation.StopThreshold != 0.9 {
		t.Errorf("expected default stop threshold 0.9, got %v", cfg.Stagnation.StopThreshold)
	}
	if cfg.Audit.Enabled {
		t.Errorf("audit should default to disabled")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	os.Setenv("TELOS_ORACLE_MODEL", "llama3.1")
	defer os.Unsetenv("TELOS_ORACLE_MODEL")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Oracle.Model != "llama3.1" {
		t.Errorf("expected model llama3.1 from env, got %s", cfg.Oracle.Model)
	}
}

func TestLoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
oracle:
  provider: "mock"
loop:
  max_iterations: 4
  retry_attempts: 2
  iteration_delay: 250ms
  sequential: true
stagnation:
  warn_threshold: 0.6
audit:
  enabled: true
  path: "/tmp/audit.db"
`
	path := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Oracle.Provider != "mock" {
		t.Errorf("expected provider mock, got %s", cfg.Oracle.Provider)
	}
	if cfg.Loop.MaxIterations != 4 || cfg.Loop.RetryAttempts != 2 {
		t.Errorf("loop config not loaded: %+v", cfg.Loop)
	}
	if !cfg.Loop.Sequential {
		t.Errorf("sequential flag not loaded")
	}
	if cfg.Loop.IterationDelay.Milliseconds() != 250 {
		t.Errorf("iteration delay not parsed: %v", cfg.Loop.IterationDelay)
	}
	if cfg.Stagnation.WarnThreshold != 0.6 {
		t.Errorf("warn threshold not loaded: %v", cfg.Stagnation.WarnThreshold)
	}
	// Defaults survive partial files.
	if cfg.Stagnation.StopThreshold != 0.9 {
		t.Errorf("stop threshold default lost: %v", cfg.Stagnation.StopThreshold)
	}
	if !cfg.Audit.Enabled || cfg.Audit.Path != "/tmp/audit.db" {
		t.Errorf("audit config not loaded: %+v", cfg.Audit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
