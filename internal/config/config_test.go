package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deploymenttheory/go-service-composer/internal/common/errors"
	"github.com/deploymenttheory/go-service-composer/internal/common/fsutil"
	"github.com/deploymenttheory/go-service-composer/internal/qos"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service-composer.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: false\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Engine.MaxIterations != 500000 {
		t.Errorf("expected default max_iterations 500000, got %d", cfg.Engine.MaxIterations)
	}
	if cfg.Engine.Timeout != 60*time.Second {
		t.Errorf("expected default timeout 60s, got %v", cfg.Engine.Timeout)
	}
	if cfg.Engine.MinViableCandidates != 3 || cfg.Engine.GraphNodeLimit != 40 {
		t.Errorf("unexpected engine defaults %+v", cfg.Engine)
	}
	if cfg.Utility.Weights != qos.DefaultWeights() {
		t.Errorf("expected default weights, got %+v", cfg.Utility.Weights)
	}
	if cfg.Annotation.Trust != 10 || cfg.Annotation.Cooperativeness != 5 {
		t.Errorf("unexpected annotation defaults %+v", cfg.Annotation)
	}
	if cfg.Heuristic.Goal != 0.5 {
		t.Errorf("expected heuristic goal weight 0.5, got %v", cfg.Heuristic.Goal)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
log_format: json
engine:
  max_iterations: 1000
  timeout: 5s
utility:
  weights:
    documentation: 0.2
pool:
  services_file: pools/services.yaml.xz
`)
	t.Setenv("SERVICE_COMPOSER_ENGINE_GREEDY_MAX_STEPS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogFormat != "json" || cfg.Engine.MaxIterations != 1000 || cfg.Engine.Timeout != 5*time.Second {
		t.Errorf("file overrides not applied: %+v", cfg)
	}
	if cfg.Engine.GreedyMaxSteps != 7 {
		t.Errorf("expected env override 7, got %d", cfg.Engine.GreedyMaxSteps)
	}
	if cfg.Utility.Weights.Documentation != 0.2 || cfg.Utility.Weights.Availability != 0.15 {
		t.Errorf("expected partial weight override, got %+v", cfg.Utility.Weights)
	}

	want := filepath.Join(filepath.Dir(path), "pools", "services.yaml.xz")
	if cfg.Pool.ServicesFile != want {
		t.Errorf("expected services file resolved to %s, got %s", want, cfg.Pool.ServicesFile)
	}

	limits := cfg.Limits()
	if limits.MaxIterations != 1000 || limits.MaxGreedySteps != 7 {
		t.Errorf("unexpected limits %+v", limits)
	}
	if m := cfg.UtilityModel(); m.Weights.Documentation != 0.2 || m.QualityShare != 0.4 {
		t.Errorf("unexpected utility model %+v", m)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeConfig(t, "engine:\n  max_iterations: 0\nlog_format: xml\n"))
	if !errors.Is(err, errors.ErrConfigInvalid) {
		t.Errorf("expected ErrConfigInvalid, got %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, errors.ErrConfigParseError) {
		t.Errorf("expected ErrConfigParseError, got %v", err)
	}
}

func TestLoadLogFileLocation(t *testing.T) {
	t.Setenv("SERVICE_COMPOSER_ENV", "")
	t.Setenv("SERVICE_COMPOSER_DEV", "")
	t.Setenv("DEV", "")
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cfg, err := Load(writeConfig(t, "log_file: composer.log\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logDir, err := fsutil.AppDir(fsutil.LogDir, AppName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(logDir, "composer.log"); cfg.LogFile != want {
		t.Errorf("expected bare log file in %s, got %s", want, cfg.LogFile)
	}

	path := writeConfig(t, "log_file: logs/composer.log\n")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(filepath.Dir(path), "logs", "composer.log"); cfg.LogFile != want {
		t.Errorf("expected log file relative to the config file, got %s", cfg.LogFile)
	}
}
