package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func loadWithArgs(t *testing.T, args ...string) (Config, error) {
	t.Helper()

	var cfg Config
	var loadErr error
	cmd := &cobra.Command{
		Use:           "mailarc",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, loadErr = LoadConfig(cmd)
			return loadErr
		},
	}
	if err := RegisterFlags(cmd); err != nil {
		t.Fatal(err)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cfg, err
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadWithArgs(t, "--input", "/tmp/export.txt", "--save-path", "/tmp/people")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Delimiter != DefaultDelimiter {
		t.Errorf("Delimiter = %#x, want form feed", cfg.Delimiter)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Categories["Delete"] != "To delete" {
		t.Errorf("Categories = %v, want historical defaults", cfg.Categories)
	}
	if cfg.KeyChoices["f"] != "Friend" {
		t.Errorf("KeyChoices = %v, want historical defaults", cfg.KeyChoices)
	}
}

func TestLoadConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "save_path: /archive/people\n" +
		"categories:\n  Work: Work\n" +
		"key_choices:\n  w: Work\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadWithArgs(t, "--input", "/tmp/export.txt", "--config", cfgPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.SavePath != "/archive/people" {
		t.Errorf("SavePath = %q, want the config file value", cfg.SavePath)
	}
	if cfg.Categories["Work"] != "Work" {
		t.Errorf("Categories = %v", cfg.Categories)
	}
	if cfg.KeyChoices["w"] != "Work" {
		t.Errorf("KeyChoices = %v", cfg.KeyChoices)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing input",
			args:    []string{"--save-path", "/tmp/people"},
			wantErr: "--input is required",
		},
		{
			name:    "multi byte delimiter",
			args:    []string{"--input", "/tmp/e.txt", "--save-path", "/tmp/p", "--delimiter", "ab"},
			wantErr: "exactly one byte",
		},
		{
			name:    "bad log level",
			args:    []string{"--input", "/tmp/e.txt", "--save-path", "/tmp/p", "--log-level", "loud"},
			wantErr: "invalid --log-level",
		},
		{
			name:    "missing explicit config file",
			args:    []string{"--input", "/tmp/e.txt", "--config", "/nonexistent/config.yaml"},
			wantErr: "read config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadWithArgs(t, tt.args...)
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfigWarningAlias(t *testing.T) {
	cfg, err := loadWithArgs(t, "--input", "/tmp/e.txt", "--save-path", "/tmp/p", "--log-level", "warning")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}
