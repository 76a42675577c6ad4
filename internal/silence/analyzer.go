package silence

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

const (
	// fullScale is the maximum absolute value of an s16 sample.
	fullScale = 32768.0
	// windowMs is the analysis window length. Window size in frames is
	// sampleRate/100.
	windowMs = 10
	// cancelCheckWindows bounds how many windows are processed between
	// cancellation checkpoints (~1 s of audio).
	cancelCheckWindows = 100
	// progressInterval is the minimum wall time between progress
	// reports.
	progressInterval = 200 * time.Millisecond
)

// Options configure one analysis pass.
type Options struct {
	SampleRate  int
	Channels    int
	ThresholdDB float64
	MinSilence  time.Duration
	// ExpectedFrames drives progress reporting. Zero disables fraction
	// computation: no progress is reported until the final 1.
	ExpectedFrames int64
}

// ProgressFunc receives the fraction of the stream processed so far,
// clamped to [0, 1].
type ProgressFunc func(fraction float64)

// Analyze consumes the PCM stream and returns the sorted,
// non-overlapping silence intervals of at least MinSilence. The stream
// may end early; all frames received are analyzed. Deterministic for
// identical input.
func Analyze(ctx context.Context, r io.Reader, opts Options, progress ProgressFunc) ([]timeline.Interval, error) {
	if opts.SampleRate <= 0 {
		return nil, services.Wrap(services.ErrInternal, "silence", "analyze", "sample rate must be positive", nil)
	}
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}
	windowFrames := opts.SampleRate / 100
	if windowFrames == 0 {
		windowFrames = 1
	}

	sr := float64(opts.SampleRate)
	buf := make([]byte, windowFrames*channels*2)

	var (
		intervals    []timeline.Interval
		inSilence    bool
		silenceStart int // window index where the current run began
		windowIdx    int
		framesRead   int64
		lastReport   time.Time
	)

	minWindows := int(math.Ceil(opts.MinSilence.Seconds() * 100))
	if minWindows < 1 {
		minWindows = 1
	}

	closeRun := func(endSeconds float64) {
		runWindows := windowIdx - silenceStart
		if runWindows >= minWindows {
			intervals = append(intervals, timeline.Interval{
				Start: float64(silenceStart) * float64(windowFrames) / sr,
				End:   endSeconds,
			})
		}
	}

	for {
		if windowIdx%cancelCheckWindows == 0 {
			if err := ctx.Err(); err != nil {
				return nil, services.Wrap(services.ErrCancelled, "silence", "analyze", "", err)
			}
		}

		n, err := io.ReadFull(r, buf)
		if n > 0 {
			frames := n / (channels * 2)
			if frames > 0 {
				framesRead += int64(frames)
				db := windowLevelDB(buf[:frames*channels*2], channels)
				silent := db <= opts.ThresholdDB
				switch {
				case silent && !inSilence:
					inSilence = true
					silenceStart = windowIdx
				case !silent && inSilence:
					closeRun(float64(windowIdx) * float64(windowFrames) / sr)
					inSilence = false
				}
				windowIdx++
			}
		}

		if progress != nil && opts.ExpectedFrames > 0 {
			if now := time.Now(); now.Sub(lastReport) >= progressInterval {
				lastReport = now
				progress(math.Min(float64(framesRead)/float64(opts.ExpectedFrames), 1))
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return nil, services.Wrap(services.ErrExternalTool, "silence", "read pcm", "", err)
		}
	}

	if inSilence {
		// End of stream closes the run at the last decoded frame.
		closeRun(float64(framesRead) / sr)
	}
	if progress != nil {
		progress(1)
	}
	return intervals, nil
}

// windowLevelDB computes the dB full-scale level of one window,
// averaging channels per frame. A window whose RMS rounds to zero is
// -Inf.
func windowLevelDB(window []byte, channels int) float64 {
	frames := len(window) / (channels * 2)
	if frames == 0 {
		return math.Inf(-1)
	}
	sumSquares := 0.0
	for f := 0; f < frames; f++ {
		acc := 0.0
		base := f * channels * 2
		for c := 0; c < channels; c++ {
			sample := int16(binary.LittleEndian.Uint16(window[base+c*2 : base+c*2+2]))
			acc += float64(sample)
		}
		mean := acc / float64(channels)
		sumSquares += mean * mean
	}
	rms := math.Sqrt(sumSquares / float64(frames))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/fullScale)
}
