// Package ffprobe shells out to an ffprobe-compatible binary and
// exposes the container metadata the pipeline needs: duration, frame
// rate, and the audio layout.
package ffprobe
