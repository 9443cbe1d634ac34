// Package sqlstore keeps theme templates in a SQLite database, so themes
// edited through an admin backend can be rendered without touching disk.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ersinkoc/Shopologic-sub016/pkg/tmpl"
)

const schema = `
CREATE TABLE IF NOT EXISTS theme_templates (
	name TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);`

// Store is a tmpl.Loader backed by the theme_templates table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens the database at dataSource and creates the schema.
func Open(dataSource string, logger *slog.Logger) (*Store, error) {
	db, err := openDB(dataSource)
	if err != nil {
		return nil, fmt.Errorf("opening template database: %w", err)
	}
	s := New(db, logger)
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened database. Call Migrate before use.
func New(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the template table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating template schema: %w", err)
	}
	return nil
}

// Put inserts or replaces the source of name.
func (s *Store) Put(ctx context.Context, name, source string) error {
	return put(ctx, s.db, name, source, s.now())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func put(ctx context.Context, db execer, name, source string, at time.Time) error {
	if name == "" {
		return errors.New("template name is empty")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO theme_templates (name, source, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET source = excluded.source, updated_at = excluded.updated_at`,
		name, source, at.UnixNano())
	if err != nil {
		return fmt.Errorf("storing template %s: %w", name, err)
	}
	return nil
}

// Delete removes name. Deleting an unknown name reports not found.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM theme_templates WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting template %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tmpl.NotFoundError{Name: name}
	}
	return nil
}

// Names returns every stored template name in ascending order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM theme_templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) get(ctx context.Context, name string) (string, time.Time, error) {
	var (
		source  string
		updated int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT source, updated_at FROM theme_templates WHERE name = ?", name).
		Scan(&source, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return "", time.Time{}, tmpl.NotFoundError{Name: name}
	}
	if err != nil {
		return "", time.Time{}, fmt.Errorf("loading template %s: %w", name, err)
	}
	return source, time.Unix(0, updated), nil
}

func (s *Store) Source(name string) (string, error) {
	src, _, err := s.get(context.Background(), name)
	return src, err
}

func (s *Store) LastModified(name string) (time.Time, error) {
	_, at, err := s.get(context.Background(), name)
	return at, err
}

// ImportDir stores every file below dir whose name ends in ext, named by
// its slash-separated path relative to dir. The import runs in a single
// transaction and returns the number of templates stored.
func (s *Store) ImportDir(ctx context.Context, dir, ext string) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	at := s.now()
	count := 0
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if err := put(ctx, tx, name, string(b), at); err != nil {
			return err
		}
		s.logger.Debug("template imported", "name", name, "bytes", len(b))
		count++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("importing %s: %w", dir, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return count, nil
}
