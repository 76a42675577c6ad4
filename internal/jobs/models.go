package jobs

import (
	"strings"
	"time"

	"autocut/internal/timeline"
)

// Status represents the lifecycle of a job.
type Status string

const (
	StatusUploading Status = "uploading"
	StatusUploaded  Status = "uploaded"
	StatusAnalyzing Status = "analyzing"
	StatusExporting Status = "exporting"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// InterruptedReason is the error reason recorded for jobs that were in
// flight when the process restarted.
const InterruptedReason = "interrupted"

var allStatuses = []Status{
	StatusUploading,
	StatusUploaded,
	StatusAnalyzing,
	StatusExporting,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// transitions is the status DAG. Terminal states have no successors.
var transitions = map[Status][]Status{
	StatusUploading: {StatusUploaded, StatusFailed, StatusCancelled},
	StatusUploaded:  {StatusAnalyzing, StatusFailed, StatusCancelled},
	StatusAnalyzing: {StatusExporting, StatusFailed, StatusCancelled},
	StatusExporting: {StatusCompleted, StatusFailed, StatusCancelled},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from→to is a legal edge of the status
// DAG.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Settings are the effective analysis options a job runs with.
type Settings struct {
	SilenceThresholdDB int     `json:"silence_threshold_db"`
	MinSilenceMs       int     `json:"min_silence_ms"`
	PaddingMs          int     `json:"padding_ms"`
	FPS                float64 `json:"fps"`
	DetectFillers      bool    `json:"detect_fillers"`
	FillerSensitivity  float64 `json:"filler_sensitivity"`
	TranscriptionModel string  `json:"transcription_model_size"`
}

// ResultPaths locates the artifacts a completed job produced.
type ResultPaths struct {
	LegacyXML     string `json:"legacy_xml,omitempty"`
	StructuralXML string `json:"structural_xml,omitempty"`
	SRT           string `json:"srt,omitempty"`
	VTT           string `json:"vtt,omitempty"`
	TXT           string `json:"txt,omitempty"`
}

// Job is the persisted record for one upload.
type Job struct {
	ID             string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	SourceFilename string
	SourcePath     string
	Settings       Settings
	Status         Status
	Progress       float64
	Message        string
	ErrorReason    string
	StartedAt      *time.Time
	FinishedAt     *time.Time
	LogPath        string
	Report         *timeline.AnalysisReport
	Results        ResultPaths
}

// SetProgress raises the job progress; progress is monotone and never
// exceeds 1.
func (j *Job) SetProgress(progress float64, message string) {
	if progress > 1 {
		progress = 1
	}
	if progress > j.Progress {
		j.Progress = progress
	}
	if strings.TrimSpace(message) != "" {
		j.Message = message
	}
}

// SetFailed marks the job failed with the given coarse reason.
func (j *Job) SetFailed(reason string) {
	j.Status = StatusFailed
	j.ErrorReason = reason
	j.Message = reason
}
