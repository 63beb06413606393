// Package store persists drafts, post history and usage counters in SQLite,
// or in a remote libSQL database when given a libsql:// or wss:// URL.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // remote libSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // local SQLite driver

	"linkedin_post_generator/apperr"
	"linkedin_post_generator/generator"
	"linkedin_post_generator/logger"
)

// timeLayout is fixed-width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const (
	busyTimeoutMillis = 5000
	usageTotalKey     = "total"
)

// Store is safe for concurrent use. Writes are serialized by one mutex;
// reads go straight to the pool.
type Store struct {
	db  *sql.DB
	log *zap.Logger

	writeMu sync.Mutex

	usageMu sync.Mutex
	usage   UsageStats
}

var _ generator.Recorder = (*Store)(nil)

// Open connects to path, applies migrations and loads usage counters.
func Open(ctx context.Context, path string, log *zap.Logger) (*Store, error) {
	driver, dsn, err := dataSource(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, log: logger.OrNop(log)}
	if err := s.loadUsage(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info("store opened", zap.String("driver", driver), zap.Int("schema_version", SchemaVersion))
	return s, nil
}

// dataSource picks the driver from the URL scheme, like the pack's URL
// shortener does, and adds SQLite pragmas for local files.
func dataSource(path string) (driver, dsn string, err error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", "", fmt.Errorf("store path is empty")
	}
	if strings.HasPrefix(path, "libsql://") || strings.HasPrefix(path, "wss://") {
		return "libsql", path, nil
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", "", fmt.Errorf("create store directory: %w", err)
		}
	}
	pragmas := fmt.Sprintf("_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", busyTimeoutMillis)
	return "sqlite", "file:" + path + "?" + pragmas, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// withWriteTx runs fn in a transaction while holding the writer lock.
func (s *Store) withWriteTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError(op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		if _, ok := apperr.As(err); ok {
			return err
		}
		return storageError(op, err)
	}
	if err := tx.Commit(); err != nil {
		return storageError(op, err)
	}
	return nil
}

func storageError(op string, err error) error {
	return apperr.Wrap(err, apperr.CodeStorage, op+" failed")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

func joinHashtags(tags []string) string {
	return strings.Join(tags, " ")
}

func splitHashtags(s string) []string {
	return strings.Fields(s)
}
