package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/voltio/takeoff-server/internal/common"
	"github.com/voltio/takeoff-server/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  userSummary `json:"user"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, token, err := s.users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  userSummary{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  userSummary{ID: user.ID, Email: user.Email},
	})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	projects, err := s.projects.List(r.Context(), claims.UserID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	name, data, files, err := s.readMultipartProject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	project, err := s.projects.Create(r.Context(), claims.UserID, name, data, files)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	projectID := chi.URLParam(r, "projectID")

	var req struct {
		Name string          `json:"name"`
		Data json.RawMessage `json:"data"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	project, err := s.projects.Update(r.Context(), claims.UserID, projectID, req.Name, req.Data)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	projectID := chi.URLParam(r, "projectID")

	if err := s.projects.Delete(r.Context(), claims.UserID, projectID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Project deleted successfully"})
}

func (s *Server) handleAddPdfs(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	projectID := chi.URLParam(r, "projectID")

	_, _, files, err := s.readMultipartProject(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	project, err := s.projects.AddPdfs(r.Context(), claims.UserID, projectID, files)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleGetPdfData(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	pdfID := chi.URLParam(r, "pdfID")

	pdf, data, err := s.projects.GetPdfData(r.Context(), claims.UserID, pdfID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	contentType := pdf.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+pdf.Name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// readMultipartProject parses a multipart project request: the optional
// "name" and "data" fields plus any number of "pdfs" file parts. The whole
// request body is capped at cfg.MaxUploadBytes.
func (s *Server) readMultipartProject(w http.ResponseWriter, r *http.Request) (string, json.RawMessage, []*services.FilePayload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return "", nil, nil, err
	}

	name := r.FormValue("name")
	data := json.RawMessage(r.FormValue("data"))

	var files []*services.FilePayload
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["pdfs"] {
			f, err := fh.Open()
			if err != nil {
				return "", nil, nil, err
			}
			body, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				return "", nil, nil, err
			}

			contentType := fh.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/pdf"
			}

			files = append(files, &services.FilePayload{
				Name:        fh.Filename,
				ContentType: contentType,
				Size:        fh.Size,
				Data:        body,
			})
		}
	}

	return name, data, files, nil
}

// writeServiceError maps service sentinels to the API error contract.
// Anything unexpected is logged in full and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, common.ErrEmailTaken):
		writeError(w, http.StatusBadRequest, "email_taken")
	case errors.Is(err, common.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

var (
	_ UserService    = (*services.UserService)(nil)
	_ ProjectService = (*services.ProjectService)(nil)
)
