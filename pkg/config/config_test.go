package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Pointing HOME at a temp dir keeps these tests away from the real
// ~/.config.
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("VIKUNJA_API", "")
	t.Setenv("VIKABOT_CREDENTIALS_FILE", "")
	return home
}

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	home := isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBase != "http://localhost:3456/api/v1" {
		t.Errorf("Unexpected default API base: %q", cfg.APIBase)
	}
	if !strings.HasPrefix(cfg.CredentialsFile, home) {
		t.Errorf("Expected credentials file under %s, got %q", home, cfg.CredentialsFile)
	}
	if cfg.RequestTimeoutSeconds != 10 {
		t.Errorf("Expected default timeout 10s, got %d", cfg.RequestTimeoutSeconds)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	home := isolateHome(t)

	dir := filepath.Join(home, ".config", "vikabot")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	content := "api_base: https://tasks.example.com/api/v1\nrequest_timeout_seconds: 5\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBase != "https://tasks.example.com/api/v1" {
		t.Errorf("Expected API base from file, got %q", cfg.APIBase)
	}
	if cfg.RequestTimeoutSeconds != 5 {
		t.Errorf("Expected timeout from file, got %d", cfg.RequestTimeoutSeconds)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	isolateHome(t)
	t.Setenv("VIKUNJA_API", "https://override.example.com/api/v1")
	t.Setenv("VIKABOT_CREDENTIALS_FILE", "/tmp/alt-creds.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIBase != "https://override.example.com/api/v1" {
		t.Errorf("Expected env override, got %q", cfg.APIBase)
	}
	if cfg.CredentialsFile != "/tmp/alt-creds.json" {
		t.Errorf("Expected env override, got %q", cfg.CredentialsFile)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolateHome(t)

	want := &Config{
		APIBase:               "https://tasks.example.com/api/v1",
		CredentialsFile:       "/tmp/creds.json",
		RequestTimeoutSeconds: 15,
	}
	if err := Save(want); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.APIBase != want.APIBase || got.CredentialsFile != want.CredentialsFile || got.RequestTimeoutSeconds != want.RequestTimeoutSeconds {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}
