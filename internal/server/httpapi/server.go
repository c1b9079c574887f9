// Package httpapi exposes the HTTP surface of the takeoff server: auth,
// project, and pdf routes over chi, plus health and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voltio/takeoff-server/internal/logging"
	"github.com/voltio/takeoff-server/internal/server/config"
	"github.com/voltio/takeoff-server/internal/server/models"
	"github.com/voltio/takeoff-server/internal/server/services"
)

// UserService is the slice of the user service the handlers need.
type UserService interface {
	Register(ctx context.Context, email, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
}

// ProjectService is the slice of the project workflow the handlers need.
type ProjectService interface {
	Create(ctx context.Context, userID, name string, data json.RawMessage, files []*services.FilePayload) (*models.Project, error)
	Update(ctx context.Context, userID, id, name string, data json.RawMessage) (*models.Project, error)
	Delete(ctx context.Context, userID, id string) error
	AddPdfs(ctx context.Context, userID, projectID string, files []*services.FilePayload) (*models.Project, error)
	List(ctx context.Context, userID string) ([]*models.Project, error)
	GetPdfData(ctx context.Context, userID, pdfID string) (*models.Pdf, []byte, error)
}

type Server struct {
	cfg      *config.Config
	logger   logging.Logger
	users    UserService
	projects ProjectService
	metrics  *Metrics
}

func NewServer(cfg *config.Config, logger logging.Logger, users UserService, projects ProjectService) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger.With("module", "httpapi"),
		users:    users,
		projects: projects,
		metrics:  NewMetrics(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(s.metricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)

	r.Route("/projects", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)
		r.Put("/{projectID}", s.handleUpdateProject)
		r.Delete("/{projectID}", s.handleDeleteProject)
		r.Post("/{projectID}/pdfs", s.handleAddPdfs)
	})

	r.With(s.authMiddleware).Get("/pdfs/{pdfID}/data", s.handleGetPdfData)

	return r
}

// Run serves the router until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "starting HTTP server", "address", s.cfg.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "stopping HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
