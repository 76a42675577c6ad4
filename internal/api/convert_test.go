package api

import (
	"testing"

	"autocut/internal/jobs"
	"autocut/internal/timeline"
)

func TestFromJobOmitsResultUntilCompleted(t *testing.T) {
	job := &jobs.Job{ID: "j1", Status: jobs.StatusAnalyzing, Progress: 0.4}
	view := FromJob(job)
	if view.Result != nil {
		t.Fatalf("running job must not expose a result: %+v", view.Result)
	}
}

func TestFromJobBuildsDownloadURLs(t *testing.T) {
	job := &jobs.Job{
		ID:     "j2",
		Status: jobs.StatusCompleted,
		Report: &timeline.AnalysisReport{
			DurationSeconds: 10,
			Cuts: []timeline.Cut{
				{Interval: timeline.Interval{Start: 0, End: 4}, InFrame: 0, OutFrame: 120},
			},
			FPS: 30,
		},
		Results: jobs.ResultPaths{
			LegacyXML:     "/out/j2/talk_legacy.xml",
			StructuralXML: "/out/j2/talk_structural.xml",
			SRT:           "/out/j2/talk.srt",
		},
	}
	view := FromJob(job)
	if view.Result == nil {
		t.Fatal("completed job must expose a result")
	}
	if view.Result.LegacyXMLURL != "/api/jobs/j2/download/legacy" {
		t.Fatalf("legacy url = %q", view.Result.LegacyXMLURL)
	}
	if view.Result.StructuralXMLURL != "/api/jobs/j2/download/structural" {
		t.Fatalf("structural url = %q", view.Result.StructuralXMLURL)
	}
	if view.Result.SRTURL == "" || view.Result.VTTURL != "" {
		t.Fatalf("transcript urls wrong: %+v", view.Result)
	}
	if view.Result.TotalKeptSeconds != 4 || view.Result.TotalRemovedSeconds != 6 {
		t.Fatalf("duration summary wrong: %+v", view.Result)
	}
}
