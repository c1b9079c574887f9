// Package projects provides the PostgreSQL-backed repository for projects.
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/dbx"
	"github.com/voltio/takeoff-server/internal/server/models"
)

// PostgresRepository implements project storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a project row and fills in the generated id and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, project *models.Project) (*models.Project, error) {

	query :=
		`INSERT INTO projects (user_id, name, data)
         VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		project.UserID, project.Name, project.Data).Scan(&project.ID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

// Update rewrites name and data of the project identified by both id and
// owner. A zero-row result means "absent or not owned" and maps to
// common.ErrNotFound in either case, so existence is never leaked.
func (r *PostgresRepository) Update(ctx context.Context, project *models.Project) (*models.Project, error) {

	query :=
		`UPDATE projects SET name = $1, data = $2, updated_at = now()
		 WHERE id = $3 AND user_id = $4
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		project.Name, project.Data, project.ID, project.UserID).Scan(&project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

// Delete removes the project identified by both id and owner; FK cascade
// removes its pdf rows. Zero rows affected maps to common.ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {

	query := `DELETE FROM projects WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// GetForUser returns the project with the given id if it is owned by userID,
// otherwise common.ErrNotFound.
func (r *PostgresRepository) GetForUser(ctx context.Context, id, userID string) (*models.Project, error) {

	query :=
		`SELECT id, user_id, name, data, created_at, updated_at FROM projects
		 WHERE id = $1 AND user_id = $2
		 `

	project := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&project.ID, &project.UserID, &project.Name, &project.Data, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return project, nil
}

// ListByUser returns all projects owned by userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Project, error) {

	query :=
		`SELECT id, user_id, name, data, created_at, updated_at FROM projects
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}
	defer rows.Close()

	var result []*models.Project
	for rows.Next() {
		var item models.Project
		if err := rows.Scan(&item.ID, &item.UserID, &item.Name, &item.Data, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
