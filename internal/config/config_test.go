// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	configPath := writeConfig(t, "ledger.yaml", `
database:
  path: "./payments.db"

logging:
  level: "debug"
  format: "json"
  file: "/var/log/ledger.log"
  max_size_mb: 10
  max_backups: 7

export:
  batch_size: 250
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "./payments.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./payments.db")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.Logging.File != "/var/log/ledger.log" {
		t.Errorf("Logging.File = %q, want %q", cfg.Logging.File, "/var/log/ledger.log")
	}
	if cfg.Logging.MaxSizeMB != 10 {
		t.Errorf("Logging.MaxSizeMB = %d, want 10", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 7 {
		t.Errorf("Logging.MaxBackups = %d, want 7", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultMaxAgeDays {
		t.Errorf("Logging.MaxAgeDays = %d, want default %d", cfg.Logging.MaxAgeDays, DefaultMaxAgeDays)
	}
	if cfg.Export.BatchSize != 250 {
		t.Errorf("Export.BatchSize = %d, want 250", cfg.Export.BatchSize)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	configPath := writeConfig(t, "ledger.toml", `
[database]
path = "/data/payments.db"

[logging]
level = "warn"

[export]
batch_size = 20
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/data/payments.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/payments.db")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, DefaultLogFormat)
	}
	if cfg.Export.BatchSize != 20 {
		t.Errorf("Export.BatchSize = %d, want 20", cfg.Export.BatchSize)
	}
}

func TestLoad_Defaults(t *testing.T) {
	configPath := writeConfig(t, "ledger.yml", `
database:
  path: "./payments.db"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.Database.Path = "./payments.db"
	if *cfg != *want {
		t.Errorf("Load() = %+v, want %+v", *cfg, *want)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("LEDGER_TEST_DB", "/tmp/from-env.db")
	t.Setenv("LEDGER_TEST_LEVEL", "error")

	configPath := writeConfig(t, "ledger.yaml", `
database:
  path: "${LEDGER_TEST_DB}"
logging:
  level: "${LEDGER_TEST_LEVEL}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Path != "/tmp/from-env.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/from-env.db")
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "error")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("LEDGER_TEST_UNSET_DB")

	configPath := writeConfig(t, "ledger.toml", `
[database]
path = "${LEDGER_TEST_UNSET_DB}"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for empty database path, got nil")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error = %q, want mention of database.path", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/ledger.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidSyntax(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "ledger.yaml", "database:\n  path \"missing colon\"\n"},
		{"toml", "ledger.toml", "[database\npath = 1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Error("Load() expected parse error, got nil")
			}
		})
	}
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := Parse("database: {path: x}", "ini")
	if err == nil {
		t.Fatal("Parse() expected error for unknown format, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative rotation", func(c *Config) { c.Logging.MaxBackups = -1 }, "rotation"},
		{"negative batch", func(c *Config) { c.Export.BatchSize = -5 }, "export.batch_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Database.Path = "ledger.db"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("LEDGER_A", "alpha")
	t.Setenv("LEDGER_B", "beta")

	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"${LEDGER_A}", "alpha"},
		{"${LEDGER_A}/${LEDGER_B}.db", "alpha/beta.db"},
		{"${LEDGER_MISSING_VAR}x", "x"},
		{"$LEDGER_A", "$LEDGER_A"},
	}

	for _, tt := range tests {
		if got := expandEnvVars(tt.input); got != tt.want {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestRead_SkipsValidation(t *testing.T) {
	configPath := writeConfig(t, "ledger.yaml", "logging:\n  level: debug\n")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Load() expected error for missing database path, got nil")
	}

	cfg, err := Read(configPath)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Export.BatchSize != DefaultBatchSize {
		t.Errorf("Export.BatchSize = %d, want default %d", cfg.Export.BatchSize, DefaultBatchSize)
	}

	cfg.Database.Path = "override.db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after override error = %v", err)
	}
}
