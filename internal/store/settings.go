package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrSettingNotFound is returned by Get for unknown keys.
var ErrSettingNotFound = errors.New("setting not found")

const (
	KeySheetsURL           = "sheets_url"
	KeyBackupEnabled       = "backup_enabled"
	KeyBackupScheduleHour  = "backup_schedule_hour"
	KeyBackupRetentionDays = "backup_retention_days"
	KeyBackupSalt          = "backup_passphrase_salt"
)

var backupKeys = []string{
	KeyBackupEnabled,
	KeyBackupScheduleHour,
	KeyBackupRetentionDays,
	KeyBackupSalt,
}

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %q", ErrSettingNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *SettingsStore) Set(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

// SheetsURL returns the stored sync endpoint, or "" when none is set.
func (s *SettingsStore) SheetsURL() (string, error) {
	v, err := s.Get(KeySheetsURL)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	return v, err
}

func (s *SettingsStore) SetSheetsURL(url string) error {
	return s.Set(KeySheetsURL, url)
}

func (s *SettingsStore) GetBackupSettings() (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range backupKeys {
		var value string
		err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get backup setting %q: %w", key, err)
		}
		settings[key] = value
	}
	return settings, nil
}
