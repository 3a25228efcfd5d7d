// Package services contains the server-side business logic: the video
// catalogue with its upload coordinator, and admin authentication.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/videofeed/internal/common"
	"github.com/dmitrijs2005/videofeed/internal/dbx"
	"github.com/dmitrijs2005/videofeed/internal/logging"
	"github.com/dmitrijs2005/videofeed/internal/server/config"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/videofeed/internal/server/storage"
	"github.com/dmitrijs2005/videofeed/internal/server/transcode"
	"github.com/google/uuid"
)

const (
	MsgCaptionRequired      = "Caption is required"
	MsgUnsupportedExtension = "Unsupported file extension"
	msgNotUpdatable         = "Field is not updatable: "
)

var newObjectID = uuid.NewString

type VideoService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	store        storage.BlobStore
	transcoder   transcode.Client
	logger       logging.Logger
	keyPrefix    string
	signedURLTTL time.Duration
	cacheControl string
	outputPrefix string
	template     string
}

// NewVideoService wires the video catalogue. transcoder may be nil, in which
// case StartTranscode reports common.ErrorUnavailable.
func NewVideoService(db *sql.DB, m repomanager.RepositoryManager, store storage.BlobStore,
	transcoder transcode.Client, cfg *config.Config, logger logging.Logger) *VideoService {
	return &VideoService{
		db:           db,
		repomanager:  m,
		store:        store,
		transcoder:   transcoder,
		logger:       logger.With("module", "videos"),
		keyPrefix:    cfg.S3KeyPrefix,
		signedURLTTL: cfg.SignedURLValidityDuration,
		cacheControl: cfg.CacheControl,
		outputPrefix: cfg.TranscodeOutputPrefix,
		template:     cfg.TranscoderTemplate,
	}
}

// List returns every video, newest first.
func (s *VideoService) List(ctx context.Context) ([]*models.Video, error) {
	return s.repomanager.Videos(s.db).List(ctx)
}

// CreateUploadIntent mints a signed PUT URL for a new object and records the
// video row pointing at its public URL. The row is inserted only after the
// URL was signed, so a signing failure leaves the table untouched.
func (s *VideoService) CreateUploadIntent(ctx context.Context, caption, fileExtension string) (*models.UploadIntent, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return nil, common.NewValidationError(MsgCaptionRequired)
	}

	ext, ok := storage.NormalizeExtension(fileExtension)
	if !ok {
		return nil, common.NewValidationError(MsgUnsupportedExtension)
	}
	contentType := storage.ContentTypeFor(ext)
	key := s.keyPrefix + newObjectID() + "." + ext

	signedURL, err := s.store.PresignPut(ctx, key, contentType, s.cacheControl, s.signedURLTTL)
	if err != nil {
		return nil, err
	}

	v, err := s.repomanager.Videos(s.db).Insert(ctx, caption, s.store.PublicURL(key))
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "upload intent created", "id", v.ID, "key", key)

	return &models.UploadIntent{
		SignedURL:    signedURL,
		FileName:     key,
		VideoID:      v.ID,
		ContentType:  contentType,
		CacheControl: s.cacheControl,
	}, nil
}

// ParseFieldMap validates a JSON object of column changes. caption must be a
// non-blank string; job and status accept a string or null. Any other key is
// rejected.
func ParseFieldMap(fields map[string]json.RawMessage) (models.FieldUpdate, error) {
	var upd models.FieldUpdate

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := fields[k]
		switch k {
		case "caption":
			var c string
			if err := json.Unmarshal(raw, &c); err != nil || strings.TrimSpace(c) == "" {
				return upd, common.NewValidationError(MsgCaptionRequired)
			}
			c = strings.TrimSpace(c)
			upd.Caption = &c
		case "job":
			v, isNull, err := nullableString(raw)
			if err != nil {
				return upd, common.NewValidationError("Field job must be a string or null")
			}
			upd.Job, upd.ClearJob = v, isNull
		case "status":
			v, isNull, err := nullableString(raw)
			if err != nil {
				return upd, common.NewValidationError("Field status must be a string or null")
			}
			upd.Status, upd.ClearStatus = v, isNull
		default:
			return upd, common.NewValidationError(msgNotUpdatable + k)
		}
	}

	if upd.Empty() {
		return upd, common.NewValidationError(MsgCaptionRequired)
	}
	return upd, nil
}

func nullableString(raw json.RawMessage) (*string, bool, error) {
	if strings.TrimSpace(string(raw)) == "null" {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	return &s, false, nil
}

// Update applies upd to video id inside one transaction. It returns the
// number of rows changed, or common.ErrorNotFound if the video does not
// exist.
func (s *VideoService) Update(ctx context.Context, id int64, upd models.FieldUpdate) (int64, error) {
	if upd.Empty() {
		return 0, common.NewValidationError(MsgCaptionRequired)
	}

	var rows int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Videos(tx)
		if _, err := repo.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := repo.Update(ctx, id, upd)
		if err != nil {
			return err
		}
		rows = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rows, nil
}

// UpdateCaption replaces the caption of video id.
func (s *VideoService) UpdateCaption(ctx context.Context, id int64, caption string) (int64, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" {
		return 0, common.NewValidationError(MsgCaptionRequired)
	}
	return s.Update(ctx, id, models.FieldUpdate{Caption: &caption})
}

// Delete removes video id and then, best effort, its stored object. Failing
// to remove the object is logged and otherwise ignored.
func (s *VideoService) Delete(ctx context.Context, id int64) (int64, error) {
	repo := s.repomanager.Videos(s.db)

	v, err := repo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}

	n, err := repo.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, common.ErrorNotFound
	}

	key := s.store.KeyFromURL(v.URL)
	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "failed to delete video object", "id", id, "key", key, "error", err)
	}

	s.logger.Info(ctx, "video deleted", "id", id)
	return n, nil
}

// StartTranscode submits the stored object of video id to the transcoder
// and records the returned job handle with status "transcoding".
func (s *VideoService) StartTranscode(ctx context.Context, id int64) (*models.Video, error) {
	if s.transcoder == nil {
		return nil, fmt.Errorf("%w: transcoder is not configured", common.ErrorUnavailable)
	}

	repo := s.repomanager.Videos(s.db)
	v, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := s.store.KeyFromURL(v.URL)
	stem := strings.TrimSuffix(path.Base(key), path.Ext(key))

	handle, err := s.transcoder.Submit(ctx, transcode.Job{
		InputURI:  s.store.URI(key),
		OutputURI: s.store.URI(s.outputPrefix + stem + "/"),
		Template:  s.template,
	})
	if err != nil {
		if !errors.Is(err, common.ErrorUnavailable) {
			err = fmt.Errorf("%w: %v", common.ErrorUnavailable, err)
		}
		return nil, err
	}

	status := models.StatusTranscoding
	if _, err := repo.Update(ctx, id, models.FieldUpdate{Job: &handle, Status: &status}); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "transcode submitted", "id", id, "job", handle)

	v.Job = &handle
	v.Status = &status
	return v, nil
}
