// Package videos provides the PostgreSQL-backed store for video rows.
package videos

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/dbx"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
)

// PostgresRepository implements video storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(s rowScanner) (*models.Video, error) {
	var (
		item   models.Video
		job    sql.NullString
		status sql.NullString
	)
	if err := s.Scan(&item.ID, &item.Caption, &item.URL, &item.CreatedAt, &job, &status); err != nil {
		return nil, err
	}
	if job.Valid {
		item.Job = &job.String
	}
	if status.Valid {
		item.Status = &status.String
	}
	return &item, nil
}

// List returns every video, newest first. Ties on created_at are broken by id
// so the order is stable.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.Video, error) {
	query := `SELECT id, caption, url, created_at, job, status FROM videos
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select videos: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Video, 0)
	for rows.Next() {
		item, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns common.ErrorNotFound when no row has the given id.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	query := `SELECT id, caption, url, created_at, job, status FROM videos
		WHERE id=$1`

	item, err := scanVideo(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select video: %w", err)
	}
	return item, nil
}

// Insert stores a new video; id and created_at are assigned by the database.
func (r *PostgresRepository) Insert(ctx context.Context, caption, url string) (*models.Video, error) {
	query := `INSERT INTO videos (caption, url) VALUES ($1, $2)
		RETURNING id, created_at`

	item := &models.Video{Caption: caption, URL: url}
	if err := r.db.QueryRowContext(ctx, query, caption, url).Scan(&item.ID, &item.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert video: %w", err)
	}
	return item, nil
}

// Update changes only the columns set in upd and returns the rows affected.
// url and created_at are never part of the statement.
func (r *PostgresRepository) Update(ctx context.Context, id int64, upd models.FieldUpdate) (int64, error) {
	var (
		sets []string
		args []any
	)
	bind := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if upd.Caption != nil {
		bind("caption", *upd.Caption)
	}
	switch {
	case upd.ClearJob:
		sets = append(sets, "job=NULL")
	case upd.Job != nil:
		bind("job", *upd.Job)
	}
	switch {
	case upd.ClearStatus:
		sets = append(sets, "status=NULL")
	case upd.Status != nil:
		bind("status", *upd.Status)
	}

	if len(sets) == 0 {
		return 0, fmt.Errorf("empty update for video %d", id)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE videos SET %s WHERE id=$%d`, strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Delete removes the row and returns the rows affected (0 or 1).
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (int64, error) {
	query := `DELETE FROM videos WHERE id=$1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
