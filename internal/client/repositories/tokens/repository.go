// Package tokens stores bearer tokens saved by `videoctl login --save`,
// one per server URL.
package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/dbx"
)

type Repository interface {
	// Get returns "" when nothing is saved for server.
	Get(ctx context.Context, server string) (string, error)
	Save(ctx context.Context, server, token string) error
	Delete(ctx context.Context, server string) (int64, error)
}

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Get(ctx context.Context, server string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM tokens WHERE server = ?`, server).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get token for %s: %w", server, err)
	}
	return token, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, server, token string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (server, token, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(server) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at
	`, server, token, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save token for %s: %w", server, err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, server string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE server = ?`, server)
	if err != nil {
		return 0, fmt.Errorf("failed to delete token for %s: %w", server, err)
	}
	return res.RowsAffected()
}
