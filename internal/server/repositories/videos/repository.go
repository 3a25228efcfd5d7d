package videos

import (
	"context"

	"github.com/dmitrijs2005/videofeed/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]*models.Video, error)
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	Insert(ctx context.Context, caption, url string) (*models.Video, error)
	Update(ctx context.Context, id int64, upd models.FieldUpdate) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
}
