package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/dbx"
	"github.com/voltio/takeoff-server/internal/logging"
	"github.com/voltio/takeoff-server/internal/server/blobstore"
	"github.com/voltio/takeoff-server/internal/server/models"
	"github.com/voltio/takeoff-server/internal/server/repositories/repomanager"
)

// FilePayload is one uploaded file handed to the project workflow.
type FilePayload struct {
	Name        string
	ContentType string
	Size        int64
	Data        []byte
}

// ProjectService orchestrates the project lifecycle across the relational
// store and the blob store. Relational writes are transactional; blob-store
// side effects cannot join those transactions, so the workflow sequences
// them to keep the inconsistency window as small as possible (see Create
// and Delete).
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	logger      logging.Logger
}

// NewProjectService constructs a ProjectService.
func NewProjectService(db *sql.DB, m repomanager.RepositoryManager, blobs blobstore.Store, logger logging.Logger) *ProjectService {
	return &ProjectService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		logger:      logger.With("module", "project_service"),
	}
}

// Create inserts the project row and one pdf row per uploaded file inside a
// single transaction; each file is uploaded to the blob store just before
// its row is inserted. If anything fails the transaction rolls back and no
// partial project is ever visible. Blobs uploaded before the failure are
// not removed; an orphaned object is an accepted leak, a partial project
// row set is not.
func (s *ProjectService) Create(ctx context.Context, userID, name string, data json.RawMessage, files []*FilePayload) (*models.Project, error) {
	if name == "" {
		return nil, common.ErrValidation
	}
	if len(data) == 0 {
		data = models.DefaultProjectData()
	} else if !json.Valid(data) {
		return nil, common.ErrValidation
	}

	project := &models.Project{UserID: userID, Name: name, Data: data, Pdfs: []*models.Pdf{}}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		projectRepo := s.repomanager.Projects(tx)
		pdfRepo := s.repomanager.Pdfs(tx)

		if _, err := projectRepo.Create(ctx, project); err != nil {
			return err
		}

		for _, f := range files {
			fileURL, err := s.blobs.Upload(ctx, f.Name, f.ContentType, f.Data)
			if err != nil {
				return fmt.Errorf("upload %q: %w", f.Name, err)
			}

			pdf := &models.Pdf{
				ProjectID:   project.ID,
				Name:        f.Name,
				FileURL:     fileURL,
				FileSize:    f.Size,
				ContentType: f.ContentType,
			}
			if _, err := pdfRepo.Create(ctx, pdf); err != nil {
				return err
			}
			project.Pdfs = append(project.Pdfs, pdf)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error creating project: %w", err)
	}

	return project, nil
}

// Update rewrites the project's name and data in a single conditional
// statement filtered by id and owner. Absent and not-owned are both
// common.ErrNotFound.
func (s *ProjectService) Update(ctx context.Context, userID, id, name string, data json.RawMessage) (*models.Project, error) {
	if name == "" {
		return nil, common.ErrValidation
	}
	if len(data) == 0 || !json.Valid(data) {
		return nil, common.ErrValidation
	}

	project := &models.Project{ID: id, UserID: userID, Name: name, Data: data}

	projectRepo := s.repomanager.Projects(s.db)
	if _, err := projectRepo.Update(ctx, project); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error updating project: %w", err)
	}

	pdfs, err := s.repomanager.Pdfs(s.db).ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error loading pdfs: %w", err)
	}
	project.Pdfs = pdfs

	return project, nil
}

// Delete removes the project row (cascading to its pdf rows) inside a
// transaction, recovering the blob locators first. Blob deletion happens
// only after commit: a failed blob delete must never resurrect rows. Each
// blob deletion is best effort; failures are logged and swallowed.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	var fileURLs []string

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		urls, err := s.repomanager.Pdfs(tx).ListFileURLs(ctx, id)
		if err != nil {
			return err
		}
		fileURLs = urls

		return s.repomanager.Projects(tx).Delete(ctx, id, userID)
	})
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrNotFound
		}
		return fmt.Errorf("error deleting project: %w", err)
	}

	for _, u := range fileURLs {
		if err := s.blobs.Delete(ctx, u); err != nil {
			s.logger.Warn(ctx, "orphaned blob: delete failed", "file_url", u, "error", err.Error())
		}
	}

	return nil
}

// AddPdfs attaches more files to an existing project after verifying
// ownership. Each upload+insert pair is independent: a failure partway
// leaves the earlier pdfs attached.
func (s *ProjectService) AddPdfs(ctx context.Context, userID, projectID string, files []*FilePayload) (*models.Project, error) {
	projectRepo := s.repomanager.Projects(s.db)
	pdfRepo := s.repomanager.Pdfs(s.db)

	project, err := projectRepo.GetForUser(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error loading project: %w", err)
	}

	for _, f := range files {
		fileURL, err := s.blobs.Upload(ctx, f.Name, f.ContentType, f.Data)
		if err != nil {
			return nil, fmt.Errorf("upload %q: %w", f.Name, err)
		}

		pdf := &models.Pdf{
			ProjectID:   project.ID,
			Name:        f.Name,
			FileURL:     fileURL,
			FileSize:    f.Size,
			ContentType: f.ContentType,
		}
		if _, err := pdfRepo.Create(ctx, pdf); err != nil {
			return nil, fmt.Errorf("error creating pdf: %w", err)
		}
	}

	pdfs, err := pdfRepo.ListByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("error loading pdfs: %w", err)
	}
	project.Pdfs = pdfs

	return project, nil
}

// List returns every project owned by userID, newest first, each with its
// pdfs. The result and every nested pdf list are non-nil.
func (s *ProjectService) List(ctx context.Context, userID string) ([]*models.Project, error) {
	projectRepo := s.repomanager.Projects(s.db)
	pdfRepo := s.repomanager.Pdfs(s.db)

	projects, err := projectRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}

	result := []*models.Project{}
	for _, p := range projects {
		pdfs, err := pdfRepo.ListByProject(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("error loading pdfs: %w", err)
		}
		p.Pdfs = pdfs
		result = append(result, p)
	}

	return result, nil
}

// GetPdfData returns the metadata and raw bytes of one pdf, provided its
// project is owned by userID.
func (s *ProjectService) GetPdfData(ctx context.Context, userID, pdfID string) (*models.Pdf, []byte, error) {
	pdf, err := s.repomanager.Pdfs(s.db).GetForUser(ctx, pdfID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, common.ErrNotFound
		}
		return nil, nil, fmt.Errorf("error loading pdf: %w", err)
	}

	data, err := s.blobs.Download(ctx, pdf.FileURL)
	if err != nil {
		return nil, nil, fmt.Errorf("error downloading pdf: %w", err)
	}

	return pdf, data, nil
}
