package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mercator-hq/epsilon/pkg/cli"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		contains []string
	}{
		{
			name: "valid",
			body: `
accountant:
  total_budget: 5
dataset:
  values: [1, 2, 3]
`,
			contains: []string{"is valid", "budget:    5", "mechanism: laplace", "ledger:    memory"},
		},
		{
			name: "debug mode without password",
			body: `
accountant:
  total_budget: 5
  debug_mode: true
dataset:
  values: [1, 2, 3]
`,
			wantErr:  true,
			contains: []string{"is invalid", "accountant.debug_pw"},
		},
		{
			name: "negative budget",
			body: `
accountant:
  total_budget: -1
`,
			wantErr:  true,
			contains: []string{"accountant.total_budget"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := validateConfig(&buf, writeConfig(t, tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil {
				var cfgErr *cli.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Expected *cli.ConfigError, got %T", err)
				}
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("Expected output to contain %q, got %q", want, buf.String())
				}
			}
		})
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := validateConfig(&buf, filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file, got nil")
	}
}
