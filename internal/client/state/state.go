// Package state opens videoctl's local SQLite database and vends the
// repositories stored in it.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/videofeed/internal/client/migrations"
	"github.com/dmitrijs2005/videofeed/internal/client/repositories/tokens"
	"github.com/dmitrijs2005/videofeed/internal/client/repositories/uploads"
)

// ErrNoState is returned by OpenExisting when the database file is absent.
var ErrNoState = errors.New("no local state")

type State struct {
	db      *sql.DB
	Tokens  tokens.Repository
	Uploads uploads.Repository
}

var gooseSetDialect = goose.SetDialect

var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := gooseSetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Open opens (creating when needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*State, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state db: %w", err)
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate state db: %w", err)
	}

	return &State{
		db:      db,
		Tokens:  tokens.NewSQLiteRepository(db),
		Uploads: uploads.NewSQLiteRepository(db),
	}, nil
}

// OpenExisting is Open for read paths: it returns ErrNoState instead of
// creating a missing database.
func OpenExisting(ctx context.Context, path string) (*State, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, err
	}
	return Open(ctx, path)
}

func (s *State) Close() error {
	return s.db.Close()
}
