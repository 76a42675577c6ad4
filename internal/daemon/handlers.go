package daemon

import (
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autocut/internal/api"
	"autocut/internal/jobs"
	"autocut/internal/logging"
)

// binaryAvailable reports whether the named binary resolves on PATH.
func binaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []jobs.Status
	for _, value := range r.URL.Query()["status"] {
		status, ok := jobs.ParseStatus(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
		statuses = append(statuses, status)
	}

	list, err := s.daemon.store.List(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]api.JobView, 0, len(list))
	for _, job := range list {
		views = append(views, api.FromJob(job))
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: views})
}

func (s *apiServer) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromJob(job))
}

// handleCancel is idempotent: cancelling a terminal job succeeds
// without effect.
func (s *apiServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if err := s.daemon.manager.Cancel(r.Context(), job.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

// handleRemove deletes the job record and its working directories.
// Files are only ever deleted here, never during analysis.
func (s *apiServer) handleRemove(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if !job.Status.Terminal() {
		s.writeError(w, http.StatusConflict, "job is still running; cancel it first")
		return
	}
	if _, err := s.daemon.store.Remove(r.Context(), job.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.daemon.manager.Hub().Drop(job.ID)
	for _, root := range []string{s.daemon.cfg.Paths.UploadRoot, s.daemon.cfg.Paths.OutputRoot} {
		dir := filepath.Join(root, job.ID)
		if pathWithin(root, dir) {
			if err := os.RemoveAll(dir); err != nil {
				s.logger.Warn("failed to remove job directory",
					logging.String(logging.FieldJobID, job.ID), logging.Error(err))
			}
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// downloadKinds maps the download path element to the stored artifact.
func downloadKind(job *jobs.Job, kind string) (path, contentType string) {
	switch kind {
	case "legacy":
		return job.Results.LegacyXML, "application/xml"
	case "structural":
		return job.Results.StructuralXML, "application/xml"
	case "srt":
		return job.Results.SRT, "application/x-subrip"
	case "vtt":
		return job.Results.VTT, "text/vtt"
	case "txt":
		return job.Results.TXT, "text/plain; charset=utf-8"
	default:
		return "", ""
	}
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := s.loadJob(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.StatusCompleted {
		s.writeError(w, http.StatusConflict, "job is not completed")
		return
	}
	path, contentType := downloadKind(job, r.PathValue("kind"))
	if contentType == "" {
		s.writeError(w, http.StatusNotFound, "unknown download kind")
		return
	}
	if path == "" {
		s.writeError(w, http.StatusNotFound, "artifact not produced for this job")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.daemon.store.Stats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	counts := make(map[string]int, len(stats))
	for status, count := range stats {
		counts[string(status)] = count
	}

	deps := []api.DependencyStatus{
		{
			Name:      "decoder",
			Command:   s.daemon.cfg.Tools.DecoderBinary,
			Available: s.daemon.manager.Decoder().Available(),
		},
		{
			Name:      "probe",
			Command:   s.daemon.cfg.Tools.FFprobeBinary,
			Available: binaryAvailable(s.daemon.cfg.Tools.FFprobeBinary),
		},
		{
			Name:      "transcriber",
			Command:   s.daemon.cfg.Tools.TranscriberBinary,
			Optional:  true,
			Available: s.daemon.manager.Transcriber().Available(),
		},
	}

	status := "ok"
	for _, dep := range deps {
		if !dep.Optional && !dep.Available {
			status = "degraded"
		}
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:       status,
		Jobs:         counts,
		Dependencies: deps,
	})
}

func (s *apiServer) loadJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		s.writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	job, err := s.daemon.store.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}
