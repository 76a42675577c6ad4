package jobs_test

import (
	"context"
	"testing"

	"autocut/internal/jobs"
	"autocut/internal/testsupport"
	"autocut/internal/timeline"
)

func TestCreateAndGet(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "interview.mp4")
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.SourceFilename != "interview.mp4" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.Status != jobs.StatusUploading {
		t.Fatalf("new job status = %s, want uploading", fetched.Status)
	}
	if fetched.Settings.MinSilenceMs != 800 {
		t.Fatalf("settings not persisted: %+v", fetched.Settings)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	job, err := store.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil for missing job, got %#v", job)
	}
}

func TestUpdateWalksStatusDAG(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "clip.mov")

	for _, next := range []jobs.Status{
		jobs.StatusUploaded,
		jobs.StatusAnalyzing,
		jobs.StatusExporting,
		jobs.StatusCompleted,
	} {
		job.Status = next
		if err := store.Update(ctx, job); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}
}

func TestUpdateRejectsIllegalTransition(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "clip.mov")

	job.Status = jobs.StatusCompleted
	if err := store.Update(ctx, job); err == nil {
		t.Fatal("uploading -> completed must be rejected")
	}
}

func TestTerminalStatusAdmitsNoTransitions(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "clip.mov")

	job.Status = jobs.StatusCancelled
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	job.Status = jobs.StatusAnalyzing
	if err := store.Update(ctx, job); err == nil {
		t.Fatal("cancelled -> analyzing must be rejected")
	}
}

func TestProgressIsMonotone(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "clip.mov")

	job.Progress = 0.6
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	job.Progress = 0.3
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Progress != 0.6 {
		t.Fatalf("progress regressed to %v", fetched.Progress)
	}
}

func TestReportRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "clip.mov")

	job.Status = jobs.StatusUploaded
	job.Report = &timeline.AnalysisReport{
		DurationSeconds: 10,
		SampleRateHz:    44100,
		Silences:        []timeline.Interval{{Start: 4, End: 6}},
		Cuts: []timeline.Cut{
			{Interval: timeline.Interval{Start: 0, End: 4.125}, InFrame: 0, OutFrame: 124},
		},
		PaddingMs: 250,
		FPS:       30,
	}
	job.Results = jobs.ResultPaths{LegacyXML: "/out/clip_legacy.xml"}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Report == nil || len(fetched.Report.Cuts) != 1 {
		t.Fatalf("report lost: %#v", fetched.Report)
	}
	if fetched.Results.LegacyXML != "/out/clip_legacy.xml" {
		t.Fatalf("result paths lost: %#v", fetched.Results)
	}
}

func TestFailInterrupted(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	running := testsupport.NewJob(t, store, "running.mp4")
	running.Status = jobs.StatusUploaded
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	running.Status = jobs.StatusAnalyzing
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	done := testsupport.NewJob(t, store, "done.mp4")
	for _, next := range []jobs.Status{jobs.StatusUploaded, jobs.StatusAnalyzing, jobs.StatusExporting, jobs.StatusCompleted} {
		done.Status = next
		if err := store.Update(ctx, done); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}

	count, err := store.FailInterrupted(ctx)
	if err != nil {
		t.Fatalf("FailInterrupted failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one interrupted job, got %d", count)
	}

	fetched, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != jobs.StatusFailed || fetched.ErrorReason != jobs.InterruptedReason {
		t.Fatalf("interrupted job not failed: %#v", fetched)
	}

	completed, err := store.GetByID(ctx, done.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if completed.Status != jobs.StatusCompleted {
		t.Fatalf("terminal job must be untouched: %#v", completed)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	a := testsupport.NewJob(t, store, "a.mp4")
	_ = testsupport.NewJob(t, store, "b.mp4")
	a.Status = jobs.StatusCancelled
	if err := store.Update(ctx, a); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	cancelled, err := store.List(ctx, jobs.StatusCancelled)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(cancelled) != 1 || cancelled[0].ID != a.ID {
		t.Fatalf("unexpected filtered list: %#v", cancelled)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected two jobs, got %d", len(all))
	}
}

func TestRemoveAndClearCompleted(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, "gone.mp4")
	removed, err := store.Remove(ctx, job.ID)
	if err != nil || !removed {
		t.Fatalf("Remove = %v, %v", removed, err)
	}
	removed, err = store.Remove(ctx, job.ID)
	if err != nil || removed {
		t.Fatalf("second Remove should be a no-op, got %v, %v", removed, err)
	}

	done := testsupport.NewJob(t, store, "done.mp4")
	for _, next := range []jobs.Status{jobs.StatusUploaded, jobs.StatusAnalyzing, jobs.StatusExporting, jobs.StatusCompleted} {
		done.Status = next
		if err := store.Update(ctx, done); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
	}
	cleared, err := store.ClearCompleted(ctx)
	if err != nil || cleared != 1 {
		t.Fatalf("ClearCompleted = %d, %v", cleared, err)
	}
}

func TestStats(t *testing.T) {
	store := testsupport.MustOpenStore(t)
	ctx := context.Background()
	_ = testsupport.NewJob(t, store, "one.mp4")
	_ = testsupport.NewJob(t, store, "two.mp4")

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobs.StatusUploading] != 2 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
