// Package db opens the sqlite store that holds projects, transcripts,
// EDL versions and exports.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection pragmas. They go into the DSN so every pooled connection gets
// them, not just the first one.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

type migration struct {
	name string
	sql  string
}

// New opens (creating if needed) the database at dbPath, brings the schema
// up to date and fails any export a previous process left half written.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer keeps EDL version allocation serialized.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	ctx := context.Background()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	d := &DB{conn: conn, logger: logger}
	applied, err := d.migrate(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}

	failed, err := d.failInterruptedExports(ctx)
	if err != nil && logger != nil {
		logger.Warn("failed to mark interrupted exports", "error", err)
	}
	if logger != nil {
		logger.Info("database ready", "path", dbPath, "migrations_applied", applied, "interrupted_exports", failed)
	}
	return d, nil
}

func dsn(file string) string {
	q := make([]string, len(pragmas))
	for i, p := range pragmas {
		q[i] = "_pragma=" + p
	}
	return file + "?" + strings.Join(q, "&")
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Applied lists recorded migrations in the order they ran.
func (d *DB) Applied(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT name FROM _migrations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func loadMigrations() ([]migration, error) {
	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, n := range names {
		body, err := migrationsFS.ReadFile(n)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", n, err)
		}
		out = append(out, migration{name: path.Base(n), sql: string(body)})
	}
	return out, nil
}

// migrate runs each pending migration in its own transaction together with
// its _migrations row, so a failed file leaves no partial schema behind.
func (d *DB) migrate(ctx context.Context) (int, error) {
	migrations, err := loadMigrations()
	if err != nil {
		return 0, err
	}
	if _, err := d.conn.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`); err != nil {
		return 0, fmt.Errorf("create migrations table: %w", err)
	}

	done, err := d.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	seen := make(map[string]bool, len(done))
	for _, n := range done {
		seen[n] = true
	}

	count := 0
	for _, m := range migrations {
		if seen[m.name] {
			continue
		}
		if err := d.apply(ctx, m); err != nil {
			return count, err
		}
		count++
		if d.logger != nil {
			d.logger.Debug("applied migration", "name", m.name)
		}
	}
	return count, nil
}

func (d *DB) apply(ctx context.Context, m migration) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations (name) VALUES (?)`, m.name); err != nil {
		return fmt.Errorf("record migration %s: %w", m.name, err)
	}
	return tx.Commit()
}

// failInterruptedExports marks exports still "processing" at startup as
// failed; nothing can be writing them anymore.
func (d *DB) failInterruptedExports(ctx context.Context) (int64, error) {
	res, err := d.conn.ExecContext(ctx, `
		UPDATE exports
		SET status = 'failed', error = 'interrupted by restart', updated_at = datetime('now')
		WHERE status = 'processing'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
