package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// unsetenv clears key for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetenv(t, "FEIRA_PORT", "FEIRA_DB_PATH", "FEIRA_LOG_LEVEL", "FEIRA_SYNC_TIMEOUT", "FEIRA_CORS_ORIGINS", "FEIRA_SHEETS_URL")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "feira.db" || cfg.LogLevel != "info" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.SyncTimeout != 0 {
		t.Errorf("sync timeout = %v, want 0", cfg.SyncTimeout)
	}
	if cfg.CORSOrigins != nil {
		t.Errorf("cors = %v, want nil", cfg.CORSOrigins)
	}
}

func TestLoadEnvFile(t *testing.T) {
	unsetenv(t, "FEIRA_PORT", "FEIRA_SYNC_TIMEOUT", "FEIRA_CORS_ORIGINS")
	t.Setenv("FEIRA_DB_PATH", "/from/env.db")

	path := filepath.Join(t.TempDir(), ".env")
	body := "FEIRA_PORT=9090\nFEIRA_DB_PATH=/from/file.db\nFEIRA_SYNC_TIMEOUT=15s\nFEIRA_CORS_ORIGINS=http://a.test, http://b.test\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Port)
	}
	// Variables already set are not overridden by the file.
	if cfg.DBPath != "/from/env.db" {
		t.Errorf("db path = %q, want /from/env.db", cfg.DBPath)
	}
	if cfg.SyncTimeout != 15*time.Second {
		t.Errorf("sync timeout = %v", cfg.SyncTimeout)
	}
	if diff := cmp.Diff([]string{"http://a.test", "http://b.test"}, cfg.CORSOrigins); diff != "" {
		t.Errorf("cors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBadTimeout(t *testing.T) {
	t.Setenv("FEIRA_SYNC_TIMEOUT", "soon")
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected parse error")
	}
}
