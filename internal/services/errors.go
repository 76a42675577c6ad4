package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInputInvalid marks bad option values, unsupported extensions,
	// or oversized uploads. Surfaced synchronously; never creates a job.
	ErrInputInvalid = errors.New("invalid input")
	// ErrExternalTool marks probe or decode failures from the media
	// toolchain subprocess.
	ErrExternalTool = errors.New("external tool error")
	// ErrTranscription marks an unavailable or failing transcription
	// model.
	ErrTranscription = errors.New("transcription unavailable")
	// ErrInternal marks a violated pipeline invariant. Always a bug.
	ErrInternal = errors.New("internal analysis error")
	// ErrCancelled marks user-requested cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrInterrupted marks a job that was in flight when the process
	// restarted.
	ErrInterrupted = errors.New("interrupted")
)

// Wrap builds an error that carries stage context while tagging it
// with the provided marker for later status classification. The
// marker should be one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Reason maps a stage error to the coarse reason phrase persisted on
// the job record and returned by the status endpoint. Detailed tool
// output stays in the job log file.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInputInvalid):
		return "invalid input"
	case errors.Is(err, ErrExternalTool):
		return "media toolchain failed"
	case errors.Is(err, ErrTranscription):
		return "transcription unavailable"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrInterrupted):
		return "interrupted"
	case errors.Is(err, ErrInternal):
		return "internal analysis error"
	default:
		return "analysis failed"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
