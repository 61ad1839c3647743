// Package db owns the sqlite file backing durable task storage.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// pragmas are set on every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

type DB struct {
	conn *sql.DB
	path string
}

// Open opens the task database at path, creating its directory first.
// The schema is not applied until Migrate is called.
func Open(path string) (*DB, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// sqlite has one writer; a single connection keeps writes from racing into SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	return &DB{conn: conn, path: path}, nil
}

func dsn(path string) string {
	q := url.Values{"_pragma": pragmas}
	return "file:" + path + "?" + q.Encode()
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, rest), nil
}

// Migrate applies the embedded schema. It is safe to call on every start.
func (d *DB) Migrate(ctx context.Context) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return tx.Commit()
}

func (d *DB) Path() string { return d.path }

func (d *DB) Conn() *sql.DB { return d.conn }

func (d *DB) Close() error { return d.conn.Close() }
