// Package store provides the SQLite-backed project/session cache. It is the
// only component allowed to change user metadata (visibility, groups, the
// default project and merges).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

// DefaultCostPerMinuteUSD is used by MonthlySummary when Config leaves the
// rate unset.
const DefaultCostPerMinuteUSD = 0.10

var (
	// ErrProjectNotFound is returned by mutations addressing an unknown project.
	ErrProjectNotFound = errors.New("project not found")
	// ErrGroupNotFound is returned when assigning or reordering an unknown group.
	ErrGroupNotFound = errors.New("group not found")
	// ErrMergeTargetNotFound is returned by Merge when the target is not cached.
	ErrMergeTargetNotFound = errors.New("merge target not found")
	// ErrMergeTargetIsMerged is returned by Merge when the target is itself
	// merged into another project.
	ErrMergeTargetIsMerged = errors.New("merge target is already merged into another project")
)

// Config configures OpenConfig.
type Config struct {
	Path             string
	CostPerMinuteUSD float64        // zero means DefaultCostPerMinuteUSD
	Location         *time.Location // calendar for monthly analytics; nil means time.Local
	Logger           *slog.Logger
}

// Cache is an open handle on the cache database. Create it once per process
// with Open and release it with Close.
type Cache struct {
	db            *sql.DB
	costPerMinute float64
	loc           *time.Location
	log           *slog.Logger
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	return OpenConfig(Config{Path: dbPath})
}

// OpenConfig opens or creates the cache database and applies pending migrations.
func OpenConfig(cfg Config) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	dsn := cfg.Path + "?_pragma=journal_mode(wal)&_pragma=synchronous(normal)" +
		"&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	c := &Cache{
		db:            db,
		costPerMinute: cfg.CostPerMinuteUSD,
		loc:           cfg.Location,
		log:           cfg.Logger,
	}
	if c.costPerMinute == 0 {
		c.costPerMinute = DefaultCostPerMinuteUSD
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrating cache db: %w", err)
	}
	return c, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (c *Cache) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type queryer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func toMs(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromMs(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
