package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"autocut/internal/api"
	"autocut/internal/config"
	"autocut/internal/jobs"
	"autocut/internal/logging"
)

// handleUpload admits one media file plus its configuration block.
// All validation happens before a job record exists; invalid input
// never creates a job.
func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	cfg := s.daemon.cfg
	r.Body = http.MaxBytesReader(w, r.Body, cfg.Limits.MaxUploadBytes)

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	settings, err := parseSettings(r.MultipartForm.Value, cfg.Analysis)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing media file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		s.writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	if !config.AllowedExtension(filename) {
		s.writeError(w, http.StatusBadRequest, "unsupported file extension")
		return
	}

	jobID := uuid.NewString()
	jobDir := filepath.Join(cfg.Paths.UploadRoot, jobID)
	destPath := filepath.Join(jobDir, filename)
	if !pathWithin(cfg.Paths.UploadRoot, destPath) {
		s.writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	job := &jobs.Job{
		ID:             jobID,
		SourceFilename: filename,
		SourcePath:     destPath,
		Settings:       settings,
		Status:         jobs.StatusUploading,
		Message:        "receiving upload",
	}
	if err := s.daemon.store.Create(r.Context(), job); err != nil {
		s.logger.Error("create job record", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		s.failAdmission(w, job, "failed to store upload")
		return
	}
	dest, err := os.Create(destPath)
	if err != nil {
		s.failAdmission(w, job, "failed to store upload")
		return
	}
	_, copyErr := io.Copy(dest, file)
	closeErr := dest.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.RemoveAll(jobDir)
		var maxBytesErr *http.MaxBytesError
		if errors.As(copyErr, &maxBytesErr) {
			s.failAdmissionStatus(w, job, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		s.failAdmission(w, job, "failed to store upload")
		return
	}

	job.Status = jobs.StatusUploaded
	job.Message = "upload complete"
	if err := s.daemon.store.Update(r.Context(), job); err != nil {
		s.logger.Error("persist uploaded transition", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to persist job")
		return
	}
	if err := s.daemon.manager.Submit(job); err != nil {
		s.failAdmission(w, job, "analysis queue is full")
		return
	}

	s.logger.Info("upload admitted",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("filename", filename))
	s.writeJSON(w, http.StatusAccepted, api.UploadResponse{
		JobID:    job.ID,
		Filename: filename,
		Status:   string(jobs.StatusUploaded),
		Message:  "upload complete, analysis queued",
	})
}

func (s *apiServer) failAdmission(w http.ResponseWriter, job *jobs.Job, message string) {
	s.failAdmissionStatus(w, job, http.StatusInternalServerError, message)
}

func (s *apiServer) failAdmissionStatus(w http.ResponseWriter, job *jobs.Job, status int, message string) {
	job.SetFailed(message)
	if err := s.daemon.store.Update(context.Background(), job); err != nil {
		s.logger.Error("persist admission failure", logging.Error(err))
	}
	s.writeError(w, status, message)
}

// pathWithin reports whether target resolves inside root.
func pathWithin(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
