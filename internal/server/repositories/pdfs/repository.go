package pdfs

import (
	"context"

	"github.com/voltio/takeoff-server/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, pdf *models.Pdf) (*models.Pdf, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.Pdf, error)
	ListFileURLs(ctx context.Context, projectID string) ([]string, error)
	GetForUser(ctx context.Context, id, userID string) (*models.Pdf, error)
}
