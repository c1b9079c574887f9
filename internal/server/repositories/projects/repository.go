package projects

import (
	"context"

	"github.com/voltio/takeoff-server/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, project *models.Project) (*models.Project, error)
	Update(ctx context.Context, project *models.Project) (*models.Project, error)
	Delete(ctx context.Context, id, userID string) error
	GetForUser(ctx context.Context, id, userID string) (*models.Project, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Project, error)
}
