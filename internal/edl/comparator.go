package edl

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"autocut/internal/services"
)

// Timeline is the editor-visible result implied by an exported
// document: total sequence duration and per-clip source in-points, in
// seconds.
type Timeline struct {
	DurationSeconds float64
	SourceInPoints  []float64
}

// ReadLegacyTimeline parses legacy editor XML and derives its implied
// timeline from the video track.
func ReadLegacyTimeline(r io.Reader) (Timeline, error) {
	var doc legacyDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Timeline{}, services.Wrap(services.ErrInternal, "edl", "parse legacy xml", "", err)
	}
	timebase := doc.Sequence.Rate.Timebase
	if timebase <= 0 {
		return Timeline{}, services.Wrap(services.ErrInternal, "edl", "parse legacy xml", "missing timebase", nil)
	}
	fps := float64(timebase)
	if strings.EqualFold(doc.Sequence.Rate.NTSC, "TRUE") {
		fps = fps * 1000 / 1001
	}

	var tl Timeline
	frames := 0
	for _, clip := range doc.Sequence.Media.Video.Track.ClipItems {
		frames += clip.Out - clip.In
		tl.SourceInPoints = append(tl.SourceInPoints, float64(clip.In)/fps)
	}
	tl.DurationSeconds = float64(frames) / fps
	return tl, nil
}

// ReadStructuralTimeline parses structural editor XML and derives its
// implied timeline from the spine.
func ReadStructuralTimeline(r io.Reader) (Timeline, error) {
	var doc structuralDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return Timeline{}, services.Wrap(services.ErrInternal, "edl", "parse structural xml", "", err)
	}

	var tl Timeline
	for _, clip := range doc.Library.Event.Project.Sequence.Spine.Clips {
		duration, err := parseRationalSeconds(clip.Duration)
		if err != nil {
			return Timeline{}, err
		}
		start, err := parseRationalSeconds(clip.Start)
		if err != nil {
			return Timeline{}, err
		}
		tl.DurationSeconds += duration
		tl.SourceInPoints = append(tl.SourceInPoints, start)
	}
	return tl, nil
}

// Agree reports whether two implied timelines match within one frame
// at the given fps: equal clip counts, total durations within a frame,
// and per-clip source in-points within a frame.
func Agree(a, b Timeline, fps float64) error {
	if len(a.SourceInPoints) != len(b.SourceInPoints) {
		return fmt.Errorf("clip counts differ: %d vs %d", len(a.SourceInPoints), len(b.SourceInPoints))
	}
	frame := 1 / fps
	if diff := abs(a.DurationSeconds - b.DurationSeconds); diff > frame {
		return fmt.Errorf("durations differ by %.6fs (> one frame)", diff)
	}
	for i := range a.SourceInPoints {
		if diff := abs(a.SourceInPoints[i] - b.SourceInPoints[i]); diff > frame {
			return fmt.Errorf("clip %d in-points differ by %.6fs (> one frame)", i, diff)
		}
	}
	return nil
}

func parseRationalSeconds(value string) (float64, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(value), "s")
	if trimmed == "" {
		return 0, services.Wrap(services.ErrInternal, "edl", "parse rational", "empty value", nil)
	}
	if !strings.Contains(trimmed, "/") {
		// Whole-second values such as "0s" or "42s".
		whole, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, services.Wrap(services.ErrInternal, "edl", "parse rational", value, err)
		}
		return float64(whole), nil
	}
	parts := strings.SplitN(trimmed, "/", 2)
	num, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrInternal, "edl", "parse rational", value, err)
	}
	den, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || den == 0 {
		return 0, services.Wrap(services.ErrInternal, "edl", "parse rational", value, err)
	}
	return float64(num) / float64(den), nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
