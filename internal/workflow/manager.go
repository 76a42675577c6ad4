package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"autocut/internal/config"
	"autocut/internal/jobs"
	"autocut/internal/logging"
	"autocut/internal/media/pcm"
	"autocut/internal/services"
	"autocut/internal/transcribe"
)

// queueCapacity bounds how many admitted jobs may wait for a worker.
const queueCapacity = 256

// jobHandle tracks one admitted job's cancellation scope.
type jobHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Manager orchestrates job analyses on a bounded worker pool, distinct
// from the request-serving goroutines so long decodes never block the
// API.
type Manager struct {
	cfg         *config.Config
	store       *jobs.Store
	logger      *slog.Logger
	hub         *Hub
	decoder     *pcm.Decoder
	transcriber transcribe.Transcriber

	queue chan string

	mu      sync.Mutex
	handles map[string]*jobHandle
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes manager construction.
type Option func(*Manager)

// WithTranscriber overrides the transcription collaborator.
func WithTranscriber(t transcribe.Transcriber) Option {
	return func(m *Manager) {
		m.transcriber = t
	}
}

// WithDecoder overrides the PCM decoder.
func WithDecoder(d *pcm.Decoder) Option {
	return func(m *Manager) {
		m.decoder = d
	}
}

// New constructs a manager. Start must be called before Submit.
func New(cfg *config.Config, store *jobs.Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:         cfg,
		store:       store,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		hub:         NewHub(),
		decoder:     pcm.NewDecoder(cfg.Tools.DecoderBinary),
		transcriber: transcribe.NewCLI(transcribe.WithBinary(cfg.Tools.TranscriberBinary)),
		queue:       make(chan string, queueCapacity),
		handles:     make(map[string]*jobHandle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hub exposes the progress event hub.
func (m *Manager) Hub() *Hub {
	return m.hub
}

// Transcriber exposes the transcription collaborator for diagnostics.
func (m *Manager) Transcriber() transcribe.Transcriber {
	return m.transcriber
}

// Decoder exposes the PCM decoder for diagnostics.
func (m *Manager) Decoder() *pcm.Decoder {
	return m.decoder
}

// Start launches the worker pool.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return errors.New("workflow manager already started")
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	workers := m.cfg.Limits.MaxConcurrentAnalyses
	if workers <= 0 {
		workers = 2
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}
	m.started = true
	m.logger.Info("workflow manager started", logging.Int("workers", workers))
	return nil
}

// Stop cancels in-flight work and waits for the pool to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	cancel := m.cancel
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("workflow manager stopped")
}

// Submit enqueues an uploaded job for analysis. Queueing beyond the
// concurrency bound is FIFO.
func (m *Manager) Submit(job *jobs.Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return errors.New("workflow manager not started")
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.handles[job.ID] = &jobHandle{ctx: ctx, cancel: cancel}
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
		return nil
	default:
		m.dropHandle(job.ID)
		return services.Wrap(services.ErrInputInvalid, "workflow", "submit", "analysis queue is full", nil)
	}
}

// Cancel requests cancellation for a job. Idempotent; cancelling a
// terminal job is a no-op.
func (m *Manager) Cancel(ctx context.Context, jobID string) error {
	m.mu.Lock()
	handle, inFlight := m.handles[jobID]
	m.mu.Unlock()

	if inFlight {
		// The running (or queued) pipeline observes the flag at its
		// next checkpoint and unwinds as Cancelled.
		handle.cancel()
		return nil
	}

	// Not running: flip the record directly if it is still live.
	job, err := m.store.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return services.Wrap(services.ErrInputInvalid, "workflow", "cancel", "job not found", nil)
	}
	if job.Status.Terminal() {
		return nil
	}
	job.Status = jobs.StatusCancelled
	job.Message = "cancelled"
	now := time.Now().UTC()
	job.FinishedAt = &now
	if err := m.store.Update(ctx, job); err != nil {
		return err
	}
	m.hub.Publish(jobID, Event{Kind: EventCancelled, Reason: "cancelled"})
	return nil
}

// Subscribe attaches to a job's progress stream.
func (m *Manager) Subscribe(jobID string) *Subscription {
	return m.hub.Subscribe(jobID)
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.ctx.Done():
			return
		case jobID := <-m.queue:
			m.runJob(jobID)
		}
	}
}

func (m *Manager) runJob(jobID string) {
	m.mu.Lock()
	handle, ok := m.handles[jobID]
	m.mu.Unlock()
	if !ok {
		return
	}
	defer m.dropHandle(jobID)

	ctx := services.WithJobID(handle.ctx, jobID)
	logger := logging.WithContext(ctx, m.logger)

	job, err := m.store.GetByID(ctx, jobID)
	if err != nil || job == nil {
		logger.Error("job record unavailable", logging.Error(err))
		return
	}
	if job.Status.Terminal() {
		return
	}
	if handle.ctx.Err() != nil {
		// Cancelled while queued.
		m.handleFailure(logger, job, services.Wrap(services.ErrCancelled, "workflow", "queued", "", handle.ctx.Err()))
		return
	}

	if runErr := m.runPipeline(ctx, logger, job); runErr != nil {
		m.handleFailure(logger, job, runErr)
	}
}

func (m *Manager) dropHandle(jobID string) {
	m.mu.Lock()
	if handle, ok := m.handles[jobID]; ok {
		handle.cancel()
		delete(m.handles, jobID)
	}
	m.mu.Unlock()
}

// handleFailure is the single catch point: it classifies the stage
// error, persists the terminal record, writes the detailed reason to
// the job log, and emits the terminal event.
func (m *Manager) handleFailure(logger *slog.Logger, job *jobs.Job, runErr error) {
	reason := services.Reason(runErr)
	now := time.Now().UTC()
	job.FinishedAt = &now

	if errors.Is(runErr, services.ErrCancelled) || errors.Is(runErr, context.Canceled) {
		job.Status = jobs.StatusCancelled
		job.Message = "cancelled"
		job.ErrorReason = ""
		if err := m.store.Update(context.Background(), job); err != nil {
			logger.Error("failed to persist cancellation", logging.Error(err))
		}
		m.hub.Publish(job.ID, Event{Kind: EventCancelled, Reason: "cancelled"})
		logger.Info("job cancelled")
		return
	}

	job.SetFailed(reason)
	if err := m.store.Update(context.Background(), job); err != nil {
		logger.Error("failed to persist failure", logging.Error(err))
	}
	m.appendJobLog(job, runErr)
	m.hub.Publish(job.ID, Event{Kind: EventError, Reason: reason})
	logger.Error("job failed", logging.String("reason", reason), logging.Error(runErr))
}

// appendJobLog writes the detailed error (including tool stderr tails)
// to the job's log file; the API only ever sees the coarse reason.
func (m *Manager) appendJobLog(job *jobs.Job, runErr error) {
	dir := filepath.Join(m.cfg.Paths.OutputRoot, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	logPath := filepath.Join(dir, "job.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %v\n", time.Now().UTC().Format(time.RFC3339), runErr)
	if job.LogPath == "" {
		job.LogPath = logPath
	}
}
