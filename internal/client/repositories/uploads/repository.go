// Package uploads keeps a local history of files uploaded by videoctl.
package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/dbx"
)

// Upload is one finished upload.
type Upload struct {
	ID         int64
	Server     string
	VideoID    int64
	FileName   string
	Source     string
	Caption    string
	Size       int64
	UploadedAt time.Time
}

type Repository interface {
	Record(ctx context.Context, u *Upload) error
	// List returns the most recent uploads first; limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Upload, error)
}

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts u and sets its ID. A zero UploadedAt is stamped with now.
func (r *SQLiteRepository) Record(ctx context.Context, u *Upload) error {
	if u.UploadedAt.IsZero() {
		u.UploadedAt = time.Now()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO uploads (server, video_id, file_name, source, caption, size, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Server, u.VideoID, u.FileName, u.Source, u.Caption, u.Size, u.UploadedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to record upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read upload id: %w", err)
	}
	u.ID = id
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]*Upload, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, server, video_id, file_name, source, caption, size, uploaded_at
		FROM uploads ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	result := make([]*Upload, 0)
	for rows.Next() {
		var (
			u  Upload
			ts int64
		)
		if err := rows.Scan(&u.ID, &u.Server, &u.VideoID, &u.FileName, &u.Source, &u.Caption, &u.Size, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan upload row: %w", err)
		}
		u.UploadedAt = time.Unix(ts, 0)
		result = append(result, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate upload rows: %w", err)
	}
	return result, nil
}
