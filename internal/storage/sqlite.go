package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

// DBFileName is the database file created in the data directory.
const DBFileName = "shelf.db"

// DB is the SQLite store behind the persistent area. It also persists the
// cookie jar between runs. Several processes may open the same file; each
// sees the others' writes on its next read.
type DB struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// OpenDB opens (creating if needed) the database at path. An empty path
// opens a private in-memory database.
func OpenDB(path string) (*DB, error) {
	dsn := ":memory:"
	if path != "" {
		dsn = "file:" + (&url.URL{Path: path}).EscapedPath() +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes
	// writers within the process.
	db.SetMaxOpenConns(1)

	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close closes the database. Idempotent. Areas obtained from the DB fail
// with types.ErrAreaClosed afterwards.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Items returns the persistent key-value area.
func (d *DB) Items() *SQLiteArea {
	return &SQLiteArea{d: d}
}

// conn returns the underlying handle, or ErrAreaClosed after Close.
// The caller must hold d.mu.
func (d *DB) conn() (*sql.DB, error) {
	if d.closed {
		return nil, types.ErrAreaClosed
	}
	return d.db, nil
}

// SaveCookies replaces the persisted cookies with cookies.
func (d *DB) SaveCookies(cookies []StoredCookie) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	db, err := d.conn()
	if err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cookies`); err != nil {
		return fmt.Errorf("delete cookies: %w", err)
	}
	for _, c := range cookies {
		var expires sql.NullString
		if !c.Expires.IsZero() {
			expires = sql.NullString{String: c.Expires.UTC().Format(time.RFC3339), Valid: true}
		}
		_, err := tx.Exec(`INSERT INTO cookies
			(name, path, domain, value, expires, secure, http_only, same_site, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.Name, c.Path, c.Domain, c.Value, expires,
			boolToInt(c.Secure), boolToInt(c.HTTPOnly), string(c.SameSite),
			c.CreatedAt.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("insert cookie %q: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// LoadCookies returns the persisted cookies in creation order.
func (d *DB) LoadCookies() ([]StoredCookie, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	db, err := d.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT name, path, domain, value, expires, secure, http_only, same_site, created_at
		FROM cookies ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query cookies: %w", err)
	}
	defer rows.Close()

	var cookies []StoredCookie
	for rows.Next() {
		var (
			c                 StoredCookie
			expires           sql.NullString
			secure, httpOnly  int
			sameSite, created string
		)
		if err := rows.Scan(&c.Name, &c.Path, &c.Domain, &c.Value, &expires,
			&secure, &httpOnly, &sameSite, &created); err != nil {
			return nil, fmt.Errorf("scan cookie: %w", err)
		}
		if expires.Valid {
			if t, err := time.Parse(time.RFC3339, expires.String); err == nil {
				c.Expires = t
			}
		}
		c.Secure = secure != 0
		c.HTTPOnly = httpOnly != 0
		c.SameSite = types.SameSite(sameSite)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			c.CreatedAt = t
		}
		cookies = append(cookies, c)
	}
	return cookies, rows.Err()
}

// SQLiteArea is the types.Area view of the items table.
type SQLiteArea struct {
	d *DB
}

// GetItem returns the value stored for key.
func (a *SQLiteArea) GetItem(key string) (string, bool, error) {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	db, err := a.d.conn()
	if err != nil {
		return "", false, err
	}

	var value string
	err = db.QueryRow(`SELECT value FROM items WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get item %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem stores value under key.
func (a *SQLiteArea) SetItem(key, value string) error {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	db, err := a.d.conn()
	if err != nil {
		return err
	}

	_, err = db.Exec(`INSERT INTO items (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set item %q: %w", key, err)
	}
	return nil
}

// RemoveItem deletes key.
func (a *SQLiteArea) RemoveItem(key string) error {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	db, err := a.d.conn()
	if err != nil {
		return err
	}

	if _, err := db.Exec(`DELETE FROM items WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove item %q: %w", key, err)
	}
	return nil
}

// Clear removes every key.
func (a *SQLiteArea) Clear() error {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	db, err := a.d.conn()
	if err != nil {
		return err
	}

	if _, err := db.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (a *SQLiteArea) Keys() ([]string, error) {
	a.d.mu.RLock()
	defer a.d.mu.RUnlock()
	db, err := a.d.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(`SELECT key FROM items ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ types.Area = (*SQLiteArea)(nil)
