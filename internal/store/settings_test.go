package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/feira/internal/database"
)

func setupSettingsTestDB(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSettingsStore(db)
}

func TestSettingsSeedData(t *testing.T) {
	ss := setupSettingsTestDB(t)

	settings, err := ss.GetBackupSettings()
	if err != nil {
		t.Fatalf("get backup settings: %v", err)
	}

	expected := map[string]string{
		"backup_enabled":        "false",
		"backup_schedule_hour":  "3",
		"backup_retention_days": "30",
	}
	for key, want := range expected {
		got, ok := settings[key]
		if !ok {
			t.Errorf("missing backup setting %q", key)
			continue
		}
		if got != want {
			t.Errorf("setting %q = %q, want %q", key, got, want)
		}
	}
	if _, ok := settings[KeyBackupSalt]; ok {
		t.Error("salt should not be seeded")
	}
}

func TestSettingsGetNotFound(t *testing.T) {
	ss := setupSettingsTestDB(t)

	_, err := ss.Get("nonexistent_key")
	if !errors.Is(err, ErrSettingNotFound) {
		t.Fatalf("err = %v, want ErrSettingNotFound", err)
	}
}

func TestSettingsSet(t *testing.T) {
	ss := setupSettingsTestDB(t)

	// Update existing
	if err := ss.Set("backup_schedule_hour", "5"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, err := ss.Get("backup_schedule_hour")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "5" {
		t.Errorf("backup_schedule_hour = %q, want %q", val, "5")
	}

	// Insert new
	if err := ss.Set("custom", "x"); err != nil {
		t.Fatalf("set new: %v", err)
	}
	val, err = ss.Get("custom")
	if err != nil {
		t.Fatalf("get new: %v", err)
	}
	if val != "x" {
		t.Errorf("custom = %q, want x", val)
	}
}

func TestSheetsURL(t *testing.T) {
	ss := setupSettingsTestDB(t)

	url, err := ss.SheetsURL()
	if err != nil {
		t.Fatalf("sheets url: %v", err)
	}
	if url != "" {
		t.Errorf("url = %q, want empty", url)
	}

	want := "https://script.google.com/macros/s/abc/exec"
	if err := ss.SetSheetsURL(want); err != nil {
		t.Fatalf("set sheets url: %v", err)
	}
	url, _ = ss.SheetsURL()
	if url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}
