package videos

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var videoColumns = []string{"id", "caption", "url", "created_at", "job", "status"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock, db
}

func strPtr(s string) *string { return &s }

func TestList_OrderedNewestFirst(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	t1 := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	t0 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, caption, url, created_at, job, status FROM videos\s+ORDER BY created_at DESC, id DESC`).
		WillReturnRows(sqlmock.NewRows(videoColumns).
			AddRow(int64(2), "second", "https://cdn/b.mp4", t1, "jobs/1", models.StatusTranscoding).
			AddRow(int64(1), "first", "https://cdn/a.mp4", t0, nil, nil))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, int64(2), got[0].ID)
	assert.Equal(t, "jobs/1", *got[0].Job)
	assert.Equal(t, models.StatusTranscoding, *got[0].Status)
	assert.Equal(t, int64(1), got[1].ID)
	assert.Nil(t, got[1].Job)
	assert.Nil(t, got[1].Status)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList_EmptyIsNotNil(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, caption, url, created_at, job, status FROM videos`).
		WillReturnRows(sqlmock.NewRows(videoColumns))

	got, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestList_QueryErr(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`SELECT id, caption, url, created_at, job, status FROM videos`).
		WillReturnError(errors.New("db down"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.Regexp(t, `failed to select videos: .*db down`, err.Error())
}

func TestList_RowsErr(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	rows := sqlmock.NewRows(videoColumns).
		AddRow(int64(2), "b", "u2", time.Now(), nil, nil).
		AddRow(int64(1), "a", "u1", time.Now(), nil, nil).
		RowError(1, errors.New("row-err"))
	mock.ExpectQuery(`SELECT id, caption, url, created_at, job, status FROM videos`).WillReturnRows(rows)

	_, err := repo.List(context.Background())
	require.EqualError(t, err, "row-err")
}

func TestGetByID_OK(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)SELECT id, caption, url, created_at, job, status FROM videos\s+WHERE id=\$1`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(videoColumns).AddRow(int64(7), "hi", "https://cdn/x.mp4", created, nil, nil))

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, &models.Video{ID: 7, Caption: "hi", URL: "https://cdn/x.mp4", CreatedAt: created}, got)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM videos\s+WHERE id=\$1`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(videoColumns))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_QueryErr(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`FROM videos\s+WHERE id=\$1`).
		WithArgs(int64(1)).
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
	assert.Regexp(t, `failed to select video: .*db err`, err.Error())
}

func TestInsert_ReturnsAssignedFields(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	created := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT INTO videos \(caption, url\) VALUES \(\$1, \$2\)\s+RETURNING id, created_at`).
		WithArgs("hi", "https://cdn/k.mp4").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), created))

	got, err := repo.Insert(context.Background(), "hi", "https://cdn/k.mp4")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	assert.Equal(t, "hi", got.Caption)
	assert.Equal(t, "https://cdn/k.mp4", got.URL)
	assert.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsert_Err(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO videos`).
		WithArgs("hi", "u").
		WillReturnError(errors.New("unique violation"))

	_, err := repo.Insert(context.Background(), "hi", "u")
	require.Error(t, err)
	assert.Regexp(t, `failed to insert video: .*unique violation`, err.Error())
}

func TestUpdate_CaptionOnly(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^` + regexp.QuoteMeta(`UPDATE videos SET caption=$1 WHERE id=$2`) + `$`).
		WithArgs("new caption", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Update(context.Background(), 3, models.FieldUpdate{Caption: strPtr("new caption")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_FieldMap(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^` + regexp.QuoteMeta(`UPDATE videos SET caption=$1, job=$2, status=NULL WHERE id=$3`) + `$`).
		WithArgs("c", "jobs/9", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Update(context.Background(), 9, models.FieldUpdate{
		Caption:     strPtr("c"),
		Job:         strPtr("jobs/9"),
		ClearStatus: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUpdate_StatusOnlyNeverTouchesURL(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`^` + regexp.QuoteMeta(`UPDATE videos SET status=$1 WHERE id=$2`) + `$`).
		WithArgs(models.StatusTranscoding, int64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.Update(context.Background(), 4, models.FieldUpdate{Status: strPtr(models.StatusTranscoding)})
	require.NoError(t, err)
}

func TestUpdate_Empty(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	_, err := repo.Update(context.Background(), 1, models.FieldUpdate{})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate_ZeroRows(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE videos SET caption=\$1 WHERE id=\$2`).
		WithArgs("x", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.Update(context.Background(), 404, models.FieldUpdate{Caption: strPtr("x")})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUpdate_Errors(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(`UPDATE videos`).WillReturnError(errors.New("db err"))
	_, err := repo.Update(context.Background(), 1, models.FieldUpdate{Caption: strPtr("x")})
	assert.Regexp(t, `failed to update video: .*db err`, err.Error())

	mock.ExpectExec(`UPDATE videos`).WillReturnResult(sqlmock.NewErrorResult(errors.New("rows-err")))
	_, err = repo.Update(context.Background(), 1, models.FieldUpdate{Caption: strPtr("x")})
	assert.Regexp(t, `failed to get rows affected: .*rows-err`, err.Error())
}

func TestDelete(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM videos WHERE id=$1`)).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Delete(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM videos WHERE id=$1`)).
		WithArgs(int64(6)).
		WillReturnError(errors.New("db err"))

	_, err = repo.Delete(context.Background(), 6)
	assert.Regexp(t, `failed to delete video: .*db err`, err.Error())
}
