package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// VideoRepository exposes data access for published videos.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	ListByOwner(ctx context.Context, ownerID string, includeUnpublished bool) ([]models.Video, error)
	Update(ctx context.Context, id string, patch models.VideoPatch) (models.Video, error)
	TogglePublished(ctx context.Context, id string) (models.Video, error)
	Delete(ctx context.Context, id string) error
}
