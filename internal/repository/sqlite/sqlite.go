// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// The original data model is document-shaped: comments live inside photos.
// Here that embedding becomes owned child tables:
//
//	users ─┬─< photos ─┬─< comments ─< comment_mentions
//	       │           └─< favorites
//	       └─< comments (author)
//
// Every child row is deleted with its parent (ON DELETE CASCADE), which gives
// account deletion its cascade for free. comment_mentions.user_id is NOT a
// foreign key: a mention only has to be a well-formed id when it is written.
//
// ORDERING:
// photos and comments carry an INTEGER PRIMARY KEY AUTOINCREMENT "seq" column.
// It records insertion order, which is the order the photo index is computed
// from, and it never reuses values after a delete.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// The sqlite package's init() registers the pure-Go driver under the name
	// "sqlite" with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements UserRepository,
// PhotoRepository and FavoriteRepository.
type DB struct {
	conn *sql.DB
}

// New opens the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/photoshare.db"  → file-based database (persistent)
//   - ":memory:"            → in-memory database (tests)
//
// SINGLE CONNECTION:
// PRAGMAs are per-connection in SQLite, and every ":memory:" connection is
// its own empty database. The pool is therefore capped at one connection.
// A consequence every method below respects: rows must be closed before the
// next query is issued, and code inside a transaction uses only the *sql.Tx.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite. The cascades above need them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrate creates all tables. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			login_name    TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			github_id     INTEGER UNIQUE,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			location      TEXT NOT NULL DEFAULT '',
			description   TEXT NOT NULL DEFAULT '',
			occupation    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS photos (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			id        TEXT NOT NULL UNIQUE,
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			file_name TEXT NOT NULL,
			date_time DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_photos_user_seq ON photos(user_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("creating photos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			id        TEXT NOT NULL UNIQUE,
			photo_id  TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			comment   TEXT NOT NULL,
			date_time DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_photo ON comments(photo_id, seq);
		CREATE INDEX IF NOT EXISTS idx_comments_user ON comments(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comments table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comment_mentions (
			comment_id TEXT NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			position   INTEGER NOT NULL,
			PRIMARY KEY (comment_id, user_id)
		);
		CREATE INDEX IF NOT EXISTS idx_comment_mentions_user ON comment_mentions(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating comment_mentions table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorites (
			user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			photo_id  TEXT NOT NULL REFERENCES photos(id) ON DELETE CASCADE,
			date_time DATETIME NOT NULL,
			PRIMARY KEY (user_id, photo_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating favorites table: %w", err)
	}

	return nil
}

// placeholders returns "?, ?, ?" with n question marks, for IN (...) clauses.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY
// constraint. The modernc driver surfaces these as text, so the message is
// matched.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}
