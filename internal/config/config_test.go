package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != Default().API.BaseURL {
		t.Fatalf("expected default base_url, got %q", cfg.API.BaseURL)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
api:
  base_url: "https://central.example.com"
services:
  fetch_interval: 60s
  sync_interval: 2s
gates:
  - name: A
    code: "01"
    db_path: AttractionA.db
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "https://central.example.com" {
		t.Fatalf("yaml base_url not applied: %q", cfg.API.BaseURL)
	}
	if cfg.Services.FetchInterval.String() != "1m0s" {
		t.Fatalf("yaml fetch_interval not applied: %v", cfg.Services.FetchInterval)
	}
}

func TestEnvOverrideWinsOverYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
api:
  base_url: "https://central.example.com"
`
	if err := os.WriteFile(path, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TICKETGATE_API_BASE_URL", "https://env.example.com")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com" {
		t.Fatalf("env override not applied: %q", cfg.API.BaseURL)
	}
}

func TestValidateRejectsDuplicateGateCodes(t *testing.T) {
	cfg := Default()
	cfg.Gates = []Gate{
		{Name: "A", Code: "01", DBPath: "a.db"},
		{Name: "B", Code: "01", DBPath: "b.db"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for duplicate gate codes")
	}
}

func TestCodeForGateResolvesAlias(t *testing.T) {
	cfg := Default()
	cfg.GateAliases["Main Entrance"] = "A"
	code, ok := cfg.CodeForGate("Main Entrance")
	if !ok || code != "01" {
		t.Fatalf("expected alias to resolve to gate A's code, got %q ok=%v", code, ok)
	}
}
