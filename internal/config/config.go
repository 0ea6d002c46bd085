// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBPath      string
	LogLevel    string
	LogFile     string
	SheetsURL   string
	SyncTimeout time.Duration
	InboxDir    string
	CORSOrigins []string

	S3Endpoint       string
	S3Bucket         string
	S3Region         string
	S3AccessKey      string
	S3SecretKey      string
	BackupPassphrase string
}

// Load reads the configuration. Files are tried in order; missing ones are
// skipped and variables already set in the environment win.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:             getenv("FEIRA_PORT", "8080"),
		DBPath:           getenv("FEIRA_DB_PATH", "feira.db"),
		LogLevel:         getenv("FEIRA_LOG_LEVEL", "info"),
		LogFile:          os.Getenv("FEIRA_LOG_FILE"),
		SheetsURL:        strings.TrimSpace(os.Getenv("FEIRA_SHEETS_URL")),
		InboxDir:         os.Getenv("FEIRA_INBOX_DIR"),
		CORSOrigins:      splitList(os.Getenv("FEIRA_CORS_ORIGINS")),
		S3Endpoint:       os.Getenv("FEIRA_S3_ENDPOINT"),
		S3Bucket:         os.Getenv("FEIRA_S3_BUCKET"),
		S3Region:         getenv("FEIRA_S3_REGION", "us-east-1"),
		S3AccessKey:      os.Getenv("FEIRA_S3_ACCESS_KEY"),
		S3SecretKey:      os.Getenv("FEIRA_S3_SECRET_KEY"),
		BackupPassphrase: os.Getenv("FEIRA_BACKUP_PASSPHRASE"),
	}

	if v := os.Getenv("FEIRA_SYNC_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse FEIRA_SYNC_TIMEOUT: %w", err)
		}
		cfg.SyncTimeout = d
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
