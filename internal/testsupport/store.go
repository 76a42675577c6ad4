package testsupport

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"autocut/internal/jobs"
)

// MustOpenStore opens a jobs.Store in a temp directory and registers
// cleanup.
func MustOpenStore(t testing.TB) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(t.TempDir())
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// DefaultSettings returns the documented default analysis settings.
func DefaultSettings() jobs.Settings {
	return jobs.Settings{
		SilenceThresholdDB: -45,
		MinSilenceMs:       800,
		PaddingMs:          250,
		FPS:                30,
		DetectFillers:      false,
		FillerSensitivity:  0.7,
		TranscriptionModel: "base",
	}
}

// NewJob creates and persists a fresh job record for tests.
func NewJob(t testing.TB, store *jobs.Store, filename string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{
		ID:             uuid.NewString(),
		SourceFilename: filename,
		SourcePath:     "/tmp/" + filename,
		Settings:       DefaultSettings(),
		Status:         jobs.StatusUploading,
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
