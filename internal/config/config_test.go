package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/noai-dev/noai/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Notifications.Probability != DefaultPollProbability {
		t.Errorf("Notifications.Probability = %v, want %v", cfg.Notifications.Probability, DefaultPollProbability)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Errorf("PollInterval() = %v, want 30s", cfg.PollInterval())
	}
	if cfg.Optimistic.Policy != "drop" {
		t.Errorf("Optimistic.Policy = %q, want %q", cfg.Optimistic.Policy, "drop")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(tmpDir)
	if errors.CodeOf(err) != errors.CodeConfigNotFound {
		t.Fatalf("Load(missing) code = %q, want %q", errors.CodeOf(err), errors.CodeConfigNotFound)
	}

	configJSON := `{
  "server": {"host": "0.0.0.0", "port": 9000},
  "notifications": {"pollInterval": "5s", "probability": 0.5},
  "optimistic": {"policy": "concurrent"}
}
`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.PollInterval() != 5*time.Second {
		t.Errorf("PollInterval() = %v, want 5s", cfg.PollInterval())
	}
	if cfg.Optimistic.Policy != "concurrent" {
		t.Errorf("Optimistic.Policy = %q, want concurrent", cfg.Optimistic.Policy)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
}

func TestLoad_ZeroProbability(t *testing.T) {
	tmpDir := t.TempDir()
	configJSON := `{"notifications": {"probability": 0}}`
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Notifications.Probability != 0 {
		t.Errorf("Notifications.Probability = %v, want 0", cfg.Notifications.Probability)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{nope"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(tmpDir)
	if errors.CodeOf(err) != errors.CodeConfigParse {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.CodeConfigParse)
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(t.TempDir())
	if err != nil {
		t.Fatalf("LoadOrDefault error: %v", err)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Backend.FailureRate = 0.25

	if err := cfg.SaveTo(filepath.Join(tmpDir, ConfigFileName)); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}
	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Backend.FailureRate != 0.25 {
		t.Errorf("Backend.FailureRate = %v, want 0.25", loaded.Backend.FailureRate)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"probability above one", func(c *Config) { c.Notifications.Probability = 1.5 }, "Probability"},
		{"negative probability", func(c *Config) { c.Notifications.Probability = -0.1 }, "Probability"},
		{"failure rate", func(c *Config) { c.Backend.FailureRate = 2 }, "FailureRate"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "Port"},
		{"policy", func(c *Config) { c.Optimistic.Policy = "queue" }, "Policy"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "Level"},
		{"s3 without bucket", func(c *Config) { c.Media.Provider = "s3"; c.Media.Region = "us-east-1" }, "Bucket"},
		{"bad duration", func(c *Config) { c.Notifications.PollInterval = "soon" }, "pollInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if errors.CodeOf(err) != errors.CodeConfigInvalid {
				t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.CodeConfigInvalid)
			}
			var ne *errors.NoaiError
			if errors.As(err, &ne) && !strings.Contains(ne.Detail, tt.field) {
				t.Errorf("Detail = %q, want mention of %q", ne.Detail, tt.field)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NOAI_PORT", "9191")
	t.Setenv("NOAI_POLL_PROBABILITY", "0.75")
	t.Setenv("NOAI_OPTIMISTIC_POLICY", "concurrent")
	t.Setenv("NOAI_METRICS", "false")

	cfg := New()
	if err := cfg.ApplyEnv(t.TempDir()); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Notifications.Probability != 0.75 {
		t.Errorf("Probability = %v, want 0.75", cfg.Notifications.Probability)
	}
	if cfg.Optimistic.Policy != "concurrent" {
		t.Errorf("Policy = %q, want concurrent", cfg.Optimistic.Policy)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false")
	}
}

func TestApplyEnv_BadNumber(t *testing.T) {
	t.Setenv("NOAI_PORT", "eighty")
	err := New().ApplyEnv(t.TempDir())
	if errors.CodeOf(err) != errors.CodeConfigInvalid {
		t.Errorf("code = %q, want %q", errors.CodeOf(err), errors.CodeConfigInvalid)
	}
}

func TestApplyEnv_DotEnvFile(t *testing.T) {
	const key = "NOAI_LOG_FORMAT"
	if _, set := os.LookupEnv(key); set {
		t.Skipf("%s already set in environment", key)
	}
	t.Cleanup(func() { os.Unsetenv(key) })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, EnvFileName), []byte(key+"=json\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := New()
	if err := cfg.ApplyEnv(dir); err != nil {
		t.Fatalf("ApplyEnv error: %v", err)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}
