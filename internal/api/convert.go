package api

import (
	"fmt"

	"autocut/internal/jobs"
)

// FromJob projects a persisted record into its client view. URLs are
// rooted at the daemon's download endpoints.
func FromJob(job *jobs.Job) JobView {
	view := JobView{
		ID:             job.ID,
		CreatedAt:      job.CreatedAt,
		SourceFilename: job.SourceFilename,
		Status:         string(job.Status),
		Progress:       job.Progress,
		Message:        job.Message,
		Error:          job.ErrorReason,
	}
	if job.Status == jobs.StatusCompleted && job.Report != nil {
		result := &ResultView{
			DurationSeconds:     job.Report.DurationSeconds,
			TotalKeptSeconds:    job.Report.TotalKeptSeconds(),
			TotalRemovedSeconds: job.Report.TotalRemovedSeconds(),
			SilenceCount:        len(job.Report.Silences),
			FillerCount:         len(job.Report.Fillers),
			CutCount:            len(job.Report.Cuts),
			FPS:                 job.Report.FPS,
		}
		download := func(kind string) string {
			return fmt.Sprintf("/api/jobs/%s/download/%s", job.ID, kind)
		}
		if job.Results.LegacyXML != "" {
			result.LegacyXMLURL = download("legacy")
		}
		if job.Results.StructuralXML != "" {
			result.StructuralXMLURL = download("structural")
		}
		if job.Results.SRT != "" {
			result.SRTURL = download("srt")
		}
		if job.Results.VTT != "" {
			result.VTTURL = download("vtt")
		}
		if job.Results.TXT != "" {
			result.TXTURL = download("txt")
		}
		view.Result = result
	}
	return view
}
