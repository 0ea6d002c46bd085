// Package backup uploads encrypted snapshots of every list to S3-compatible
// storage and restores them through the importer.
package backup

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/feira/internal/export"
	"github.com/dukerupert/feira/internal/ident"
	"github.com/dukerupert/feira/internal/importer"
	"github.com/dukerupert/feira/internal/model"
	"github.com/dukerupert/feira/internal/shopping"
	"github.com/dukerupert/feira/internal/store"
)

var (
	ErrNotConfigured = errors.New("backup not configured: S3 credentials missing")
	ErrNoPassphrase  = errors.New("backup passphrase not set")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Collection is the list collection being backed up.
type Collection interface {
	Lists() []model.ShoppingList
	ImportBackup(lists []model.ShoppingList) (shopping.ImportResult, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

// Config holds backup manager configuration.
type Config struct {
	S3 S3Config
	// Passphrase is used for scheduled backups. It can also be supplied
	// later with CacheKey.
	Passphrase string
	// Prefix is prepended to every object key.
	Prefix string
}

// State represents the backup manager state.
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

// Status holds the current backup manager status.
type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

// Manager manages encrypted backups to S3-compatible storage.
type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time

	lists         Collection
	gen           ident.Generator
	backupStore   *store.BackupStore
	settingsStore *store.SettingsStore
	client        s3Client

	passphrase string

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a new backup manager.
func NewManager(cfg Config, lists Collection, gen ident.Generator, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger, callback StatusCallback) *Manager {
	if cfg.Prefix == "" {
		cfg.Prefix = "feira"
	}
	m := &Manager{
		cfg:           cfg,
		lists:         lists,
		gen:           gen,
		backupStore:   bs,
		settingsStore: ss,
		callback:      callback,
		logger:        logger.With("component", "backup"),
		now:           time.Now,
		passphrase:    cfg.Passphrase,
		status:        Status{State: StateDisabled},
	}

	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}

	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// UpdateS3Config hot-reloads the S3 configuration.
func (m *Manager) UpdateS3Config(s3cfg S3Config) {
	m.mu.Lock()
	m.cfg.S3 = s3cfg
	if s3cfg.complete() {
		m.client = newS3Client(s3cfg)
		m.status.State = StateIdle
	} else {
		m.client = nil
		m.status.State = StateDisabled
	}
	status := m.status
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(status)
	}
}

// Start begins the scheduled backup loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.status.State == StateDisabled {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup manager.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current backup status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// CacheKey keeps passphrase in memory for scheduled backups.
func (m *Manager) CacheKey(passphrase string) {
	m.mu.Lock()
	m.passphrase = passphrase
	m.mu.Unlock()
}

// HasCachedKey reports whether scheduled backups have a passphrase.
func (m *Manager) HasCachedKey() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.passphrase != ""
}

func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.now().UTC()

	settings, err := m.settingsStore.GetBackupSettings()
	if err != nil {
		m.logger.Error("read backup settings", "error", err)
		return
	}
	if settings[store.KeyBackupEnabled] != "true" {
		return
	}

	hour, _ := strconv.Atoi(settings[store.KeyBackupScheduleHour])
	if now.Hour() != hour || now.Minute() != 0 {
		return
	}

	if !m.HasCachedKey() {
		m.logger.Warn("skipping scheduled backup, no passphrase cached")
		return
	}

	if _, err := m.RunNow(ctx, ""); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}

	retentionDays, _ := strconv.Atoi(settings[store.KeyBackupRetentionDays])
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if err := m.Cleanup(ctx, retentionDays); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// salt returns the stored salt, creating one on first use.
func (m *Manager) salt() ([]byte, error) {
	saltHex, err := m.settingsStore.Get(store.KeyBackupSalt)
	if err != nil && !errors.Is(err, store.ErrSettingNotFound) {
		return nil, err
	}
	if saltHex != "" {
		salt, err := hex.DecodeString(saltHex)
		if err != nil {
			return nil, fmt.Errorf("decode salt: %w", err)
		}
		return salt, nil
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := m.settingsStore.Set(store.KeyBackupSalt, hex.EncodeToString(salt)); err != nil {
		return nil, fmt.Errorf("store salt: %w", err)
	}
	return salt, nil
}

// RunNow takes a backup immediately. An empty passphrase falls back to the
// cached one.
func (m *Manager) RunNow(ctx context.Context, passphrase string) (*model.Backup, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	prefix := m.cfg.Prefix
	if passphrase == "" {
		passphrase = m.passphrase
	}
	m.mu.RUnlock()

	if client == nil {
		return nil, ErrNotConfigured
	}
	if passphrase == "" {
		return nil, ErrNoPassphrase
	}

	salt, err := m.salt()
	if err != nil {
		return nil, fmt.Errorf("backup salt: %w", err)
	}

	m.setStatus(Status{State: StateRunning, InProgress: true})

	lists := m.lists.Lists()
	timestamp := m.now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("backup-%s.json.enc", timestamp)
	s3Key := fmt.Sprintf("%s/%s", prefix, filename)

	record, err := m.backupStore.Create(filename, s3Key, len(lists))
	if err != nil {
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("create backup record: %w", err)
	}
	m.backupStore.UpdateStatus(record.ID, model.BackupStatusUploading, "")

	fail := func(step string, err error) (*model.Backup, error) {
		m.backupStore.UpdateStatus(record.ID, model.BackupStatusFailed, err.Error())
		m.setStatus(Status{State: StateError, Error: err.Error()})
		return nil, fmt.Errorf("%s: %w", step, err)
	}

	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, lists); err != nil {
		return fail("snapshot lists", err)
	}

	sealed, err := Encrypt(buf.Bytes(), passphrase, salt)
	if err != nil {
		return fail("encrypt", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(s3Key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail("upload to s3", err)
	}

	size := int64(len(sealed))
	m.backupStore.UpdateCompleted(record.ID, size)

	now := m.now().UTC()
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", s3Key, "lists", len(lists), "bytes", size)

	record.Status = model.BackupStatusCompleted
	record.SizeBytes = size
	record.CompletedAt = &now
	return record, nil
}

// Restore downloads a backup, decrypts it and merges its lists into the
// collection. Lists already present are kept; the fixed list gains only
// items it does not have yet.
func (m *Manager) Restore(ctx context.Context, backupID int64, passphrase string) (shopping.ImportResult, error) {
	m.mu.RLock()
	if passphrase == "" {
		passphrase = m.passphrase
	}
	m.mu.RUnlock()
	if passphrase == "" {
		return shopping.ImportResult{}, ErrNoPassphrase
	}

	rc, _, err := m.Download(ctx, backupID)
	if err != nil {
		return shopping.ImportResult{}, err
	}
	defer rc.Close()

	sealed, err := io.ReadAll(rc)
	if err != nil {
		return shopping.ImportResult{}, fmt.Errorf("read backup: %w", err)
	}
	plain, err := Decrypt(sealed, passphrase)
	if err != nil {
		return shopping.ImportResult{}, err
	}

	p, err := importer.Decode(plain, m.gen)
	if err != nil {
		return shopping.ImportResult{}, fmt.Errorf("decode backup: %w", err)
	}
	res, err := m.lists.ImportBackup(p.Lists)
	if err != nil {
		return shopping.ImportResult{}, fmt.Errorf("import backup: %w", err)
	}
	m.logger.Info("backup restored", "backup_id", backupID, "lists", res.Lists, "merged_items", res.MergedItems)
	return res, nil
}

// Download streams an encrypted backup from S3.
func (m *Manager) Download(ctx context.Context, backupID int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil, 0, ErrNotConfigured
	}

	record, err := m.backupStore.GetByID(backupID)
	if err != nil {
		return nil, 0, err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}

	return result.Body, record.SizeBytes, nil
}

// List returns the most recent backup records.
func (m *Manager) List(limit int) ([]model.Backup, error) {
	return m.backupStore.List(limit)
}

// Usage describes what is currently stored off-site.
type Usage struct {
	Latest     *model.Backup `json:"latest,omitempty"`
	TotalBytes int64         `json:"total_bytes"`
}

// Usage returns the newest completed backup and the combined size of all
// completed ones.
func (m *Manager) Usage() (Usage, error) {
	var u Usage
	latest, err := m.backupStore.LatestCompleted()
	switch {
	case errors.Is(err, store.ErrBackupNotFound):
	case err != nil:
		return Usage{}, err
	default:
		u.Latest = latest
	}
	if u.TotalBytes, err = m.backupStore.TotalSize(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context, retentionDays int) error {
	m.mu.RLock()
	client := m.client
	bucket := m.cfg.S3.Bucket
	m.mu.RUnlock()

	if client == nil {
		return nil
	}

	before := m.now().UTC().AddDate(0, 0, -retentionDays)
	keys, err := m.backupStore.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object failed", "key", key, "error", err)
		}
	}

	return nil
}
