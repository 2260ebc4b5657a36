package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

// chdir moves into a fresh directory so no stray .env or config file is
// picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataPath != "data/students_data.csv" || cfg.ModelsDir != "models" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Seed != 42 || cfg.LogLevel != "INFO" || cfg.DBPath != "" {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	chdir(t)
	t.Setenv("ATRISK_MODELS", "/tmp/m")
	t.Setenv("ATRISK_SEED", "7")
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ModelsDir != "/tmp/m" || cfg.Seed != 7 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	chdir(t)
	t.Setenv("ATRISK_DATA", "env.csv")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("data", "", "")
	fs.String("log-level", "", "")
	if err := fs.Parse([]string{"--data", "flag.csv"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataPath != "flag.csv" {
		t.Errorf("data = %q, want flag.csv", cfg.DataPath)
	}
	if cfg.LogLevel != "INFO" {
		t.Errorf("unset flag overrode default: %q", cfg.LogLevel)
	}
}

func TestLoad_DotEnvAndConfigFile(t *testing.T) {
	dir := chdir(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ATRISK_LOG_LEVEL=DEBUG\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "atrisk.yaml"), []byte("models: from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ATRISK_LOG_LEVEL") })

	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Errorf("log level = %q, want DEBUG from .env", cfg.LogLevel)
	}
	if cfg.ModelsDir != "from-file" {
		t.Errorf("models = %q, want from-file", cfg.ModelsDir)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{DataPath: "d", ModelsDir: "m", LogLevel: "verbose"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad log level")
	}
}
