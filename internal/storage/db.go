package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/Alexander-D-Karpov/redditmusic/internal/config"
	"github.com/Alexander-D-Karpov/redditmusic/internal/logging"
	"github.com/Alexander-D-Karpov/redditmusic/pkg/types"
)

// Setting keys. Each value is stored as JSON.
const (
	keySubreddits = "selected_subreddits"
	keySort       = "sort_method"
	keyPeriod     = "top_period"
	keyVolume     = "volume"
)

var ErrClosed = errors.New("database is closed")

type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	debug  bool
	log    *logrus.Entry
}

func NewDatabase(cfg *config.Config) (*Database, error) {
	return Open(cfg.Storage.DatabasePath, cfg.Storage.EnableWAL, cfg.Debug)
}

// Open opens or creates the database at path and applies migrations.
func Open(path string, enableWAL, debug bool) (*Database, error) {
	log := logging.For("STORAGE")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := openDatabase(log, path, enableWAL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	storage := &Database{
		db:    db,
		debug: debug,
		log:   log,
	}

	if err := storage.runMigrations(); err != nil {
		if closeErr := storage.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close database after migration error")
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return storage, nil
}

func openDatabase(log *logrus.Entry, dbPath string, enableWAL bool) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.WithField("path", dbPath).Info("Creating new database")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA temp_store=memory",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}

	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				log.WithError(closeErr).Warn("Failed to close database after pragma error")
			}
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Failed to close database after ping error")
		}
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func (d *Database) debugLog(operation string, err error, duration time.Duration) {
	if !d.debug || err == nil {
		return
	}

	d.log.WithError(err).WithField("took", duration).Debugf("%s failed", operation)
}

func (d *Database) checkClosed() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrClosed
	}
	return nil
}

// LoadSettings reads the persisted settings. The bool is false when nothing
// has been saved yet; in that case the returned settings are nil.
func (d *Database) LoadSettings(ctx context.Context) (*types.Settings, bool, error) {
	start := time.Now()

	if err := d.checkClosed(); err != nil {
		return nil, false, err
	}

	rows, err := d.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		d.debugLog("LoadSettings", err, time.Since(start))
		return nil, false, fmt.Errorf("query settings: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			d.log.WithError(closeErr).Warn("Failed to close rows")
		}
	}()

	var settings types.Settings
	found := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			d.debugLog("LoadSettings", err, time.Since(start))
			return nil, false, fmt.Errorf("scan setting: %w", err)
		}

		var target any
		switch key {
		case keySubreddits:
			target = &settings.SelectedSubreddits
		case keySort:
			target = &settings.SortMethod
		case keyPeriod:
			target = &settings.TopPeriod
		case keyVolume:
			target = new(int)
		default:
			continue
		}

		if err := json.Unmarshal([]byte(value), target); err != nil {
			d.log.WithError(err).WithField("key", key).Warn("Ignoring unreadable setting")
			continue
		}
		if volume, ok := target.(*int); ok {
			settings.Volume = volume
		}
		found = true
	}

	if err := rows.Err(); err != nil {
		d.debugLog("LoadSettings", err, time.Since(start))
		return nil, false, fmt.Errorf("rows error: %w", err)
	}

	if !found {
		return nil, false, nil
	}
	return &settings, true, nil
}

// SaveSettings replaces every stored setting in one transaction.
func (d *Database) SaveSettings(ctx context.Context, settings types.Settings) error {
	start := time.Now()

	if err := d.checkClosed(); err != nil {
		return err
	}

	subreddits := settings.SelectedSubreddits
	if subreddits == nil {
		subreddits = []string{}
	}

	values := map[string]any{
		keySubreddits: subreddits,
		keySort:       settings.SortMethod,
		keyPeriod:     settings.TopPeriod,
	}
	if settings.Volume != nil {
		values[keyVolume] = *settings.Volume
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			d.log.WithError(err).Warn("Failed to rollback settings transaction")
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`)
	if err != nil {
		return fmt.Errorf("prepare settings statement: %w", err)
	}
	defer stmt.Close()

	for key, value := range values {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode setting %s: %w", key, err)
		}
		if _, err := stmt.ExecContext(ctx, key, string(encoded)); err != nil {
			d.debugLog("SaveSettings", err, time.Since(start))
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		d.debugLog("SaveSettings", err, time.Since(start))
		return fmt.Errorf("commit settings: %w", err)
	}

	return nil
}

// UpdatedAt returns when settings were last written, or the zero time.
func (d *Database) UpdatedAt(ctx context.Context) (time.Time, error) {
	if err := d.checkClosed(); err != nil {
		return time.Time{}, err
	}

	var raw sql.NullString
	err := d.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM settings`).Scan(&raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("query updated_at: %w", err)
	}
	if !raw.Valid {
		return time.Time{}, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw.String); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse updated_at %q", raw.String)
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true

	if d.db != nil {
		if _, err := d.db.Exec("PRAGMA optimize"); err != nil {
			d.log.WithError(err).Warn("Failed to optimize database")
		}
		return d.db.Close()
	}

	return nil
}

var _ types.SettingsStore = (*Database)(nil)
