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

	"github.com/labstack/echo/v4"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding every visitor's collections.
type Store struct {
	db     *sql.DB
	logger echo.Logger

	// held across the read and write of an append
	writeMu sync.Mutex
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string, logger echo.Logger) (*Store, error) {
	if logger == nil {
		logger = discardLogger()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Writers wait up to 5s on a locked database instead of failing with
	// SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, logger: logger}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS collections (
    owner TEXT NOT NULL,
    name TEXT NOT NULL,
    body TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (owner, name)
);
`)
	return err
}

// Scope returns the collections belonging to owner.
func (s *Store) Scope(owner string) *Scoped {
	return &Scoped{store: s, owner: owner}
}

func (s *Store) readBody(ctx context.Context, owner, name string) ([]byte, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM collections WHERE owner = ? AND name = ?`, owner, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (s *Store) writeBody(ctx context.Context, owner, name string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO collections (owner, name, body, updated_at) VALUES (?, ?, ?, ?)`,
		owner, name, string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}

// Scoped is one visitor's view of the store. It implements Collections.
type Scoped struct {
	store *Store
	owner string
}

// Owner returns the visitor id the scope is bound to.
func (c *Scoped) Owner() string { return c.owner }

// Get returns the entries stored under key. Malformed content is logged and
// reported as an empty collection.
func (c *Scoped) Get(ctx context.Context, key string) ([]json.RawMessage, error) {
	body, err := c.store.readBody(ctx, c.owner, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}
	entries, err := decodeArray(body)
	if err != nil {
		c.store.logger.Warnf("storage: %s for %s is not a JSON array, treating as empty: %v", key, c.owner, err)
		return []json.RawMessage{}, nil
	}
	return entries, nil
}

// Append adds item to the collection under key and rewrites it.
func (c *Scoped) Append(ctx context.Context, key string, item any) error {
	c.store.writeMu.Lock()
	defer c.store.writeMu.Unlock()

	body, err := c.store.readBody(ctx, c.owner, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	out, corrupt, err := appendEntry(body, item)
	if err != nil {
		return err
	}
	if corrupt {
		c.store.logger.Warnf("storage: replacing malformed %s for %s", key, c.owner)
	}
	if err := c.store.writeBody(ctx, c.owner, key, out); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
