package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/videofeed/internal/dbx"
	"github.com/dmitrijs2005/videofeed/internal/server/repositories/videos"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Videos(db dbx.DBTX) videos.Repository
}
