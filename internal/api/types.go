package api

import (
	"time"

	"autocut/internal/timeline"
)

// UploadResponse acknowledges an admitted upload.
type UploadResponse struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// JobView is the client-facing projection of a job record.
type JobView struct {
	ID             string      `json:"id"`
	CreatedAt      time.Time   `json:"created_at"`
	SourceFilename string      `json:"source_filename"`
	Status         string      `json:"status"`
	Progress       float64     `json:"progress"`
	Message        string      `json:"message,omitempty"`
	Error          string      `json:"error,omitempty"`
	Result         *ResultView `json:"result,omitempty"`
}

// ResultView summarizes a completed analysis plus download locations.
type ResultView struct {
	DurationSeconds     float64 `json:"duration_s"`
	TotalKeptSeconds    float64 `json:"total_kept_s"`
	TotalRemovedSeconds float64 `json:"total_removed_s"`
	SilenceCount        int     `json:"silence_count"`
	FillerCount         int     `json:"filler_count"`
	CutCount            int     `json:"cut_count"`
	FPS                 float64 `json:"fps"`

	LegacyXMLURL     string `json:"legacy_xml_url,omitempty"`
	StructuralXMLURL string `json:"structural_xml_url,omitempty"`
	SRTURL           string `json:"srt_url,omitempty"`
	VTTURL           string `json:"vtt_url,omitempty"`
	TXTURL           string `json:"txt_url,omitempty"`
}

// JobListResponse wraps a job listing.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// EventMessage is one progress-stream frame.
type EventMessage struct {
	Kind     string                   `json:"kind"`
	Progress float64                  `json:"progress,omitempty"`
	Message  string                   `json:"message,omitempty"`
	Report   *timeline.AnalysisReport `json:"report,omitempty"`
	Reason   string                   `json:"reason,omitempty"`
}

// DependencyStatus reports availability of one external collaborator.
type DependencyStatus struct {
	Name      string `json:"name"`
	Command   string `json:"command"`
	Optional  bool   `json:"optional"`
	Available bool   `json:"available"`
}

// HealthResponse is the daemon health report.
type HealthResponse struct {
	Status       string             `json:"status"`
	Jobs         map[string]int     `json:"jobs"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
