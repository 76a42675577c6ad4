// Package transcribe wraps the external speech-to-text collaborator.
// The concrete runner shells out to a whisper-compatible CLI and
// parses its JSON output into segments with word-level timings; the
// Transcriber interface keeps the pipeline testable without a model.
// Subtitle and plain-text rendering of transcripts also lives here.
package transcribe
