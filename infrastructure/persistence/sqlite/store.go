// Package sqlite is the embedded relational store: one database file holds
// worlds, timelines, the archive, the share ledger, package blobs and merge
// records.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"cosmos-backend/application/ports"
)

// Config configures the database file.
type Config struct {
	Path         string
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// Store is a ports.Store backed by SQLite.
type Store struct {
	repositories
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ ports.Store = (*Store)(nil)

// Open creates or opens the database file and applies pending migrations.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{
		repositories: repositories{q: db},
		db:           db,
		path:         cfg.Path,
		logger:       logger,
	}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("SQLite store opened", zap.String("path", cfg.Path))
	return store, nil
}

// dsn enables WAL and foreign keys on every pooled connection. Write
// transactions take the database lock at BEGIN so contention surfaces as a
// retryable busy error instead of a failed upgrade mid-transaction.
func dsn(cfg Config) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + cfg.Path + "?" + q.Encode()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// NewUnitOfWork creates a unit of work bound to this database.
func (s *Store) NewUnitOfWork() ports.UnitOfWork {
	return &unitOfWork{db: s.db}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repositories hands out repositories bound to one querier.
type repositories struct {
	q querier
}

func (r repositories) Worlds() ports.WorldRepository       { return &worldRepository{q: r.q} }
func (r repositories) Timelines() ports.TimelineRepository { return &timelineRepository{q: r.q} }
func (r repositories) Archive() ports.ArchiveRepository    { return &archiveRepository{q: r.q} }
func (r repositories) Shares() ports.ShareLedger           { return &shareLedger{q: r.q} }
func (r repositories) Blobs() ports.PackageBlobStore       { return &blobStore{q: r.q} }
func (r repositories) Merges() ports.MergeRepository       { return &mergeRepository{q: r.q} }

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
