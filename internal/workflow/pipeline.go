package workflow

import (
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autocut/internal/cutplan"
	"autocut/internal/edl"
	"autocut/internal/fillers"
	"autocut/internal/jobs"
	"autocut/internal/logging"
	"autocut/internal/media/ffprobe"
	"autocut/internal/media/pcm"
	"autocut/internal/services"
	"autocut/internal/silence"
	"autocut/internal/timeline"
	"autocut/internal/transcribe"
)

// analysisSampleRate is the PCM layout requested from the decoder. The
// analyzer always works at the decode rate; a probe mismatch only
// produces a warning.
const analysisSampleRate = 44100

// Progress phase boundaries. Analysis dominates wall time; exporting
// is nearly instant.
const (
	progressProbed       = 0.05
	progressAnalyzed     = 0.65
	progressTranscribed  = 0.85
	progressPlanned      = 0.88
	progressExportsBegin = 0.90
)

func (m *Manager) runPipeline(ctx context.Context, logger *slog.Logger, job *jobs.Job) error {
	now := time.Now().UTC()
	job.StartedAt = &now
	job.Status = jobs.StatusAnalyzing
	job.Message = "analysis started"
	if err := m.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrInternal, "workflow", "persist analyzing", "", err)
	}
	m.publishProgress(ctx, job, 0, "analysis started")

	// Probe.
	info, err := ffprobe.Probe(ctx, m.cfg.Tools.FFprobeBinary, job.SourcePath)
	if err != nil {
		return err
	}
	if info.SampleRateHz != 0 && info.SampleRateHz != analysisSampleRate {
		logger.Warn("sample rate mismatch, analyzer uses decode rate",
			logging.Int("probe_hz", info.SampleRateHz),
			logging.Int("decode_hz", analysisSampleRate))
	}
	m.publishProgress(ctx, job, progressProbed, "media probed")

	// Decode and locate silences.
	silences, err := m.analyzeSilences(ctx, job, info)
	if err != nil {
		return err
	}
	m.publishProgress(ctx, job, progressAnalyzed, "silence analysis complete")
	logger.Info("silences detected", logging.Int("count", len(silences)))

	// Optional transcription and filler detection.
	var (
		hits     []timeline.FillerHit
		segments []transcribe.Segment
	)
	if job.Settings.DetectFillers {
		segments, hits = m.detectFillers(ctx, logger, job)
	}
	m.publishProgress(ctx, job, progressTranscribed, "detection complete")

	// Plan the keep-cuts.
	cuts, err := cutplan.Plan(info.DurationSeconds, silences, hits, job.Settings.PaddingMs, job.Settings.FPS)
	if err != nil {
		return err
	}
	m.publishProgress(ctx, job, progressPlanned, "cut list planned")
	logger.Info("cut list planned",
		logging.Int("cuts", len(cuts)),
		logging.Float64("kept_seconds", timeline.TotalKeptSeconds(cuts)))

	// Export.
	job.Status = jobs.StatusExporting
	job.Message = "exporting edit decision lists"
	if err := m.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrInternal, "workflow", "persist exporting", "", err)
	}
	m.publishProgress(ctx, job, progressExportsBegin, "exporting edit decision lists")
	if err := ctx.Err(); err != nil {
		return services.Wrap(services.ErrCancelled, "workflow", "export", "", err)
	}

	outputDir := filepath.Join(m.cfg.Paths.OutputRoot, job.ID)
	source := edl.Source{
		Path:            job.SourcePath,
		DurationSeconds: info.DurationSeconds,
		FPS:             job.Settings.FPS,
	}
	paths, err := edl.WriteFiles(outputDir, source, cuts)
	if err != nil {
		return err
	}
	job.Results.LegacyXML = paths.Legacy
	job.Results.StructuralXML = paths.Structural

	if len(segments) > 0 {
		if err := m.writeTranscripts(outputDir, source.Stem(), segments, job); err != nil {
			logger.Warn("transcript files not written", logging.Error(err))
		}
	}

	// Complete.
	report := &timeline.AnalysisReport{
		DurationSeconds: info.DurationSeconds,
		SampleRateHz:    analysisSampleRate,
		Silences:        silences,
		Fillers:         hits,
		Cuts:            cuts,
		PaddingMs:       job.Settings.PaddingMs,
		FPS:             job.Settings.FPS,
	}
	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.Status = jobs.StatusCompleted
	job.Report = report
	job.Progress = 1
	job.Message = "completed"
	if err := m.store.Update(ctx, job); err != nil {
		return services.Wrap(services.ErrInternal, "workflow", "persist completion", "", err)
	}
	m.hub.Publish(job.ID, Event{Kind: EventResult, Progress: 1, Report: report})
	logger.Info("job completed",
		logging.Float64("removed_seconds", report.TotalRemovedSeconds()),
		logging.Duration("elapsed", finished.Sub(now)))
	return nil
}

func (m *Manager) analyzeSilences(ctx context.Context, job *jobs.Job, info ffprobe.Info) ([]timeline.Interval, error) {
	channels := info.Channels
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		channels = 2
	}

	stream, err := m.decoder.Start(ctx, job.SourcePath, pcm.Options{
		SampleRate: analysisSampleRate,
		Channels:   channels,
	}, nil)
	if err != nil {
		return nil, err
	}
	// Never orphan the child, whatever path unwinds this stage.
	defer stream.Terminate()

	expectedFrames := int64(math.Ceil(info.DurationSeconds * analysisSampleRate))
	silences, analyzeErr := silence.Analyze(ctx, stream.Reader(), silence.Options{
		SampleRate:     analysisSampleRate,
		Channels:       channels,
		ThresholdDB:    float64(job.Settings.SilenceThresholdDB),
		MinSilence:     time.Duration(job.Settings.MinSilenceMs) * time.Millisecond,
		ExpectedFrames: expectedFrames,
	}, func(fraction float64) {
		m.publishProgress(ctx, job, progressProbed+(progressAnalyzed-progressProbed)*fraction, "analyzing audio")
	})
	if analyzeErr != nil {
		return nil, analyzeErr
	}
	// A cancellation that killed the child looks like a short stream to
	// the analyzer; classify it before inspecting the exit status.
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrCancelled, "silence", "analyze", "", err)
	}
	if err := stream.Wait(); err != nil {
		return nil, err
	}
	return silences, nil
}

// detectFillers runs the transcription collaborator and the filler
// detector. Transcription problems skip the stage with a warning
// rather than failing the job; silence analysis already produced a
// usable plan.
func (m *Manager) detectFillers(ctx context.Context, logger *slog.Logger, job *jobs.Job) ([]transcribe.Segment, []timeline.FillerHit) {
	if m.transcriber == nil || !m.transcriber.Available() {
		logger.Warn("transcription model unavailable, filler detection skipped")
		return nil, nil
	}
	model, ok := transcribe.ParseModelSize(job.Settings.TranscriptionModel)
	if !ok {
		model = transcribe.ModelBase
	}
	segments, err := m.transcriber.Transcribe(ctx, job.SourcePath, model, m.cfg.Analysis.Language)
	if err != nil {
		logger.Warn("transcription failed, filler detection skipped", logging.Error(err))
		return nil, nil
	}
	result := fillers.Detect(segments, job.Settings.FillerSensitivity)
	if result.MissingTimings {
		logger.Warn("transcript lacks word timings; embedded fillers not placed")
	}
	logger.Info("fillers detected", logging.Int("count", len(result.Hits)))
	return segments, result.Hits
}

func (m *Manager) writeTranscripts(dir, stem string, segments []transcribe.Segment, job *jobs.Job) error {
	outputs := []struct {
		suffix string
		body   string
		target *string
	}{
		{".srt", transcribe.FormatSRT(segments), &job.Results.SRT},
		{".vtt", transcribe.FormatVTT(segments), &job.Results.VTT},
		{".txt", transcribe.FormatTXT(segments), &job.Results.TXT},
	}
	for _, out := range outputs {
		if strings.TrimSpace(out.body) == "" {
			continue
		}
		path := filepath.Join(dir, stem+out.suffix)
		if err := os.WriteFile(path, []byte(out.body), 0o644); err != nil {
			return err
		}
		*out.target = path
	}
	return nil
}

// publishProgress persists the progress update and fans it out to
// subscribers. Progress is monotone; stale callbacks are absorbed by
// the record's clamp.
func (m *Manager) publishProgress(ctx context.Context, job *jobs.Job, fraction float64, message string) {
	job.SetProgress(fraction, message)
	if err := m.store.Update(ctx, job); err == nil {
		m.hub.Publish(job.ID, Event{Kind: EventProgress, Progress: job.Progress, Message: job.Message})
	}
}
