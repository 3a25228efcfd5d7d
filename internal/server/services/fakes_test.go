package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/dbx"
	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/videos"
	"github.com/dmitrijs2005/videofeed/internal/server/transcode"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeVideosRepo struct {
	calls []string

	listOut []*models.Video
	listErr error

	getOut *models.Video
	getErr error

	insertOut *models.Video
	insertErr error
	inserted  []string

	updateRows int64
	updateErr  error
	updates    []models.FieldUpdate

	deleteRows int64
	deleteErr  error
}

func (f *fakeVideosRepo) List(ctx context.Context) ([]*models.Video, error) {
	f.calls = append(f.calls, "list")
	return f.listOut, f.listErr
}

func (f *fakeVideosRepo) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	f.calls = append(f.calls, "get")
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getOut == nil {
		return nil, common.ErrorNotFound
	}
	v := *f.getOut
	return &v, nil
}

func (f *fakeVideosRepo) Insert(ctx context.Context, caption, url string) (*models.Video, error) {
	f.calls = append(f.calls, "insert")
	f.inserted = append(f.inserted, caption+"|"+url)
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if f.insertOut != nil {
		return f.insertOut, nil
	}
	return &models.Video{ID: 1, Caption: caption, URL: url, CreatedAt: time.Now()}, nil
}

func (f *fakeVideosRepo) Update(ctx context.Context, id int64, upd models.FieldUpdate) (int64, error) {
	f.calls = append(f.calls, "update")
	f.updates = append(f.updates, upd)
	return f.updateRows, f.updateErr
}

func (f *fakeVideosRepo) Delete(ctx context.Context, id int64) (int64, error) {
	f.calls = append(f.calls, "delete")
	return f.deleteRows, f.deleteErr
}

type fakeRepoMgr struct {
	repomanager.RepositoryManager
	repo *fakeVideosRepo
}

func (m *fakeRepoMgr) Videos(db dbx.DBTX) videos.Repository { return m.repo }

type fakeStore struct {
	calls []string

	presignURL string
	presignErr error
	gotKey     string
	gotType    string
	gotCache   string
	gotTTL     time.Duration

	deleteErr error
	deleted   []string
}

func (f *fakeStore) PresignPut(ctx context.Context, key, contentType, cacheControl string, ttl time.Duration) (string, error) {
	f.calls = append(f.calls, "presign")
	f.gotKey, f.gotType, f.gotCache, f.gotTTL = key, contentType, cacheControl, ttl
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return f.presignURL, nil
}

func (f *fakeStore) PublicURL(key string) string { return "https://cdn.example.com/" + key }

func (f *fakeStore) KeyFromURL(u string) string {
	const base = "https://cdn.example.com/"
	if len(u) > len(base) && u[:len(base)] == base {
		return u[len(base):]
	}
	return u
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.calls = append(f.calls, "delete")
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func (f *fakeStore) URI(key string) string { return "s3://bucket/" + key }

type fakeTranscoder struct {
	got    transcode.Job
	handle string
	err    error
}

func (f *fakeTranscoder) Submit(ctx context.Context, job transcode.Job) (string, error) {
	f.got = job
	return f.handle, f.err
}

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		S3KeyPrefix:                 "uploads/",
		SignedURLValidityDuration:   10 * time.Minute,
		CacheControl:                config.DefaultCacheControl,
		TranscodeOutputPrefix:       "transcoded/",
		TranscoderTemplate:          "hd",
	}
}

func newVideoService(t *testing.T, repo *fakeVideosRepo, store *fakeStore, tc transcode.Client) (*VideoService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	return NewVideoService(db, &fakeRepoMgr{repo: repo}, store, tc, testConfig(), logging.Nop()), mock
}

var errBoom = errors.New("boom")
