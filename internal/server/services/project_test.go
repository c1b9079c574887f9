package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/logging"
	"github.com/voltio/takeoff-server/internal/server/repositories/repomanager"
)

// fakeBlobStore records the names uploaded and the urls deleted. Uploads can
// be made to fail from the Nth call on, deletes for specific urls.
type fakeBlobStore struct {
	uploaded    []string
	deleted     []string
	failUploadN int
	failDelete  map[string]bool
	objects     map[string][]byte
}

func (f *fakeBlobStore) Upload(_ context.Context, name, _ string, _ []byte) (string, error) {
	if f.failUploadN > 0 && len(f.uploaded)+1 >= f.failUploadN {
		return "", errors.New("storage unavailable")
	}
	f.uploaded = append(f.uploaded, name)
	return "http://minio/takeoff-pdfs/pdfs/" + name, nil
}

func (f *fakeBlobStore) Download(_ context.Context, fileURL string) ([]byte, error) {
	data, ok := f.objects[fileURL]
	if !ok {
		return nil, fmt.Errorf("no such object: %s", fileURL)
	}
	return data, nil
}

func (f *fakeBlobStore) Delete(_ context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	if f.failDelete[fileURL] {
		return errors.New("storage unavailable")
	}
	return nil
}

func newProjectServiceWithMock(t *testing.T, blobs *fakeBlobStore) (*ProjectService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("error creating mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewProjectService(db, repomanager.NewPostgresRepositoryManager(), blobs, logger)
	return svc, mock
}

func TestProjectServiceCreateWithFiles(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("p1", now, now))
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("INSERT INTO pdfs").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(fmt.Sprintf("pdf%d", i+1), now))
	}
	mock.ExpectCommit()

	files := []*FilePayload{
		{Name: "floor-1.pdf", ContentType: "application/pdf", Size: 10, Data: []byte("a")},
		{Name: "floor-2.pdf", ContentType: "application/pdf", Size: 20, Data: []byte("b")},
		{Name: "floor-3.pdf", ContentType: "application/pdf", Size: 30, Data: []byte("c")},
	}

	project, err := svc.Create(context.Background(), "u1", "Office", nil, files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.ID != "p1" {
		t.Errorf("unexpected project id: %s", project.ID)
	}
	if len(project.Pdfs) != 3 {
		t.Fatalf("expected 3 pdfs, got %d", len(project.Pdfs))
	}
	if len(blobs.uploaded) != 3 {
		t.Errorf("expected 3 uploads, got %d", len(blobs.uploaded))
	}
	if project.Pdfs[0].FileURL == "" {
		t.Error("pdf missing file url")
	}
	if project.Pdfs[0].ContentType != "application/pdf" {
		t.Errorf("unexpected content type: %q", project.Pdfs[0].ContentType)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProjectServiceCreateDefaultsData(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("p1", now, now))
	mock.ExpectCommit()

	project, err := svc.Create(context.Background(), "u1", "Office", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(project.Data) == 0 {
		t.Error("expected default data to be filled in")
	}
	if project.Pdfs == nil {
		t.Error("pdfs must be non-nil")
	}
}

func TestProjectServiceCreateValidation(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, _ := newProjectServiceWithMock(t, blobs)

	if _, err := svc.Create(context.Background(), "u1", "", nil, nil); !errors.Is(err, common.ErrValidation) {
		t.Errorf("expected ErrValidation for empty name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), "u1", "Office", []byte("{not json"), nil); !errors.Is(err, common.ErrValidation) {
		t.Errorf("expected ErrValidation for malformed data, got %v", err)
	}
}

func TestProjectServiceCreateRollsBackOnUploadFailure(t *testing.T) {
	blobs := &fakeBlobStore{failUploadN: 2}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("p1", now, now))
	mock.ExpectQuery("INSERT INTO pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("pdf1", now))
	mock.ExpectRollback()

	files := []*FilePayload{
		{Name: "floor-1.pdf", Data: []byte("a")},
		{Name: "floor-2.pdf", Data: []byte("b")},
	}

	_, err := svc.Create(context.Background(), "u1", "Office", nil, files)
	if err == nil {
		t.Fatal("expected an error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProjectServiceDelete(t *testing.T) {
	blobs := &fakeBlobStore{failDelete: map[string]bool{"http://minio/b/pdfs/one.pdf": true}}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT file_url FROM pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"file_url"}).
			AddRow("http://minio/b/pdfs/one.pdf").
			AddRow("http://minio/b/pdfs/two.pdf"))
	mock.ExpectExec("DELETE FROM projects").
		WithArgs("p1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := svc.Delete(context.Background(), "u1", "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// both blob deletes attempted even though the first one failed
	if len(blobs.deleted) != 2 {
		t.Errorf("expected 2 delete attempts, got %d", len(blobs.deleted))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProjectServiceDeleteNotFound(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT file_url FROM pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"file_url"}))
	mock.ExpectExec("DELETE FROM projects").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.Delete(context.Background(), "u1", "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(blobs.deleted) != 0 {
		t.Errorf("expected no blob deletes, got %d", len(blobs.deleted))
	}
}

func TestProjectServiceUpdateNotFound(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectQuery("UPDATE projects SET").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	_, err := svc.Update(context.Background(), "u1", "missing", "Office", []byte(`{}`))
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestProjectServiceUpdate(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectQuery("UPDATE projects SET").
		WithArgs("Renamed", []byte(`{"scale":2}`), "p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery("SELECT id, project_id, name, file_url, file_size, content_type, level, created_at FROM pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "file_url", "file_size", "content_type", "level", "created_at"}))

	project, err := svc.Update(context.Background(), "u1", "p1", "Renamed", []byte(`{"scale":2}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if project.Name != "Renamed" {
		t.Errorf("unexpected name: %s", project.Name)
	}
	if project.Pdfs == nil {
		t.Error("pdfs must be non-nil")
	}
}

func TestProjectServiceListEmpty(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectQuery("SELECT id, user_id, name, data, created_at, updated_at FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "data", "created_at", "updated_at"}))

	projects, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if projects == nil {
		t.Fatal("result must be non-nil")
	}
	if len(projects) != 0 {
		t.Errorf("expected empty result, got %d", len(projects))
	}
}

func TestProjectServiceList(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, name, data, created_at, updated_at FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "data", "created_at", "updated_at"}).
			AddRow("p1", "u1", "Office", []byte(`{}`), now, now))
	mock.ExpectQuery("SELECT id, project_id, name, file_url, file_size, content_type, level, created_at FROM pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "file_url", "file_size", "content_type", "level", "created_at"}).
			AddRow("pdf1", "p1", "floor-1.pdf", "http://minio/b/pdfs/one.pdf", int64(10), "application/pdf", "", now))

	projects, err := svc.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("expected 1 project, got %d", len(projects))
	}
	if len(projects[0].Pdfs) != 1 {
		t.Errorf("expected 1 pdf, got %d", len(projects[0].Pdfs))
	}
}

func TestProjectServiceAddPdfs(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, name, data, created_at, updated_at FROM projects").
		WithArgs("p1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "data", "created_at", "updated_at"}).
			AddRow("p1", "u1", "Office", []byte(`{}`), now, now))
	mock.ExpectQuery("INSERT INTO pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("pdf1", now))
	mock.ExpectQuery("SELECT id, project_id, name, file_url, file_size, content_type, level, created_at FROM pdfs").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "file_url", "file_size", "content_type", "level", "created_at"}).
			AddRow("pdf1", "p1", "floor-2.pdf", "http://minio/b/pdfs/two.pdf", int64(20), "application/pdf", "", now))

	project, err := svc.AddPdfs(context.Background(), "u1", "p1", []*FilePayload{
		{Name: "floor-2.pdf", Size: 20, Data: []byte("b")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(project.Pdfs) != 1 {
		t.Fatalf("expected 1 pdf, got %d", len(project.Pdfs))
	}
	if len(blobs.uploaded) != 1 {
		t.Errorf("expected 1 upload, got %d", len(blobs.uploaded))
	}
}

func TestProjectServiceAddPdfsNotOwned(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectQuery("SELECT id, user_id, name, data, created_at, updated_at FROM projects").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "data", "created_at", "updated_at"}))

	_, err := svc.AddPdfs(context.Background(), "intruder", "p1", nil)
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if len(blobs.uploaded) != 0 {
		t.Errorf("expected no uploads, got %d", len(blobs.uploaded))
	}
}

func TestProjectServiceGetPdfData(t *testing.T) {
	blobs := &fakeBlobStore{objects: map[string][]byte{
		"http://minio/b/pdfs/one.pdf": []byte("%PDF-1.4 fake"),
	}}
	svc, mock := newProjectServiceWithMock(t, blobs)

	now := time.Now()
	mock.ExpectQuery("FROM pdfs pdf").
		WithArgs("pdf1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "file_url", "file_size", "content_type", "level", "created_at"}).
			AddRow("pdf1", "p1", "floor-1.pdf", "http://minio/b/pdfs/one.pdf", int64(10), "application/pdf", "", now))

	pdf, data, err := svc.GetPdfData(context.Background(), "u1", "pdf1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pdf.Name != "floor-1.pdf" {
		t.Errorf("unexpected pdf: %+v", pdf)
	}
	if string(data) != "%PDF-1.4 fake" {
		t.Errorf("unexpected data: %q", data)
	}
}

func TestProjectServiceGetPdfDataNotOwned(t *testing.T) {
	blobs := &fakeBlobStore{}
	svc, mock := newProjectServiceWithMock(t, blobs)

	mock.ExpectQuery("FROM pdfs pdf").
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "name", "file_url", "file_size", "content_type", "level", "created_at"}))

	_, _, err := svc.GetPdfData(context.Background(), "intruder", "pdf1")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
