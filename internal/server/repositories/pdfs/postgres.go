// Package pdfs provides the PostgreSQL-backed repository for pdf metadata.
// The binaries themselves live in the blob store; rows here only carry the
// locator and descriptive fields.
package pdfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/dbx"
	"github.com/voltio/takeoff-server/internal/server/models"
)

// PostgresRepository implements pdf storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a pdf row and fills in the generated id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, pdf *models.Pdf) (*models.Pdf, error) {

	query :=
		`INSERT INTO pdfs (project_id, name, file_url, file_size, content_type, level)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		pdf.ProjectID, pdf.Name, pdf.FileURL, pdf.FileSize, pdf.ContentType, pdf.Level).Scan(&pdf.ID, &pdf.CreatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return pdf, nil
}

// ListByProject returns all pdf rows attached to the given project.
func (r *PostgresRepository) ListByProject(ctx context.Context, projectID string) ([]*models.Pdf, error) {

	query :=
		`SELECT id, project_id, name, file_url, file_size, content_type, level, created_at FROM pdfs
		 WHERE project_id = $1
		 ORDER BY created_at
		 `

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pdfs: %w", err)
	}
	defer rows.Close()

	result := []*models.Pdf{}
	for rows.Next() {
		var item models.Pdf
		if err := rows.Scan(&item.ID, &item.ProjectID, &item.Name, &item.FileURL, &item.FileSize, &item.ContentType, &item.Level, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ListFileURLs returns just the blob locators of a project's pdfs, used by
// the delete workflow to recover the objects to remove after commit.
func (r *PostgresRepository) ListFileURLs(ctx context.Context, projectID string) ([]string, error) {

	query := `SELECT file_url FROM pdfs WHERE project_id = $1`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to select pdf urls: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		result = append(result, url)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetForUser returns the pdf with the given id if its project is owned by
// userID, otherwise common.ErrNotFound. Ownership is resolved through the
// parent project so a pdf id alone never grants access.
func (r *PostgresRepository) GetForUser(ctx context.Context, id, userID string) (*models.Pdf, error) {

	query :=
		`SELECT pdf.id, pdf.project_id, pdf.name, pdf.file_url, pdf.file_size, pdf.content_type, pdf.level, pdf.created_at
		 FROM pdfs pdf
		 JOIN projects p ON p.id = pdf.project_id
		 WHERE pdf.id = $1 AND p.user_id = $2
		 `

	pdf := &models.Pdf{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&pdf.ID, &pdf.ProjectID, &pdf.Name, &pdf.FileURL, &pdf.FileSize, &pdf.ContentType, &pdf.Level, &pdf.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return pdf, nil
}
