package cutplan

import (
	"math"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

// Plan merges silences and fillers into removal intervals, applies the
// padding rules, and inverts into keep-cuts covering [0, duration).
// The result is never empty: when everything is classified removable a
// single cut spanning the whole source is returned so the editor still
// receives a playable timeline.
func Plan(durationSeconds float64, silences []timeline.Interval, fillers []timeline.FillerHit, paddingMs int, fps float64) ([]timeline.Cut, error) {
	if durationSeconds <= 0 {
		return nil, services.Wrap(services.ErrInputInvalid, "plan", "validate", "duration must be positive", nil)
	}
	if fps <= 0 {
		return nil, services.Wrap(services.ErrInputInvalid, "plan", "validate", "fps must be positive", nil)
	}
	if paddingMs < 0 {
		paddingMs = 0
	}
	padding := float64(paddingMs) / 1000

	removals := make([]timeline.Interval, 0, len(silences)+len(fillers))
	removals = append(removals, silences...)
	for _, hit := range fillers {
		removals = append(removals, hit.Interval())
	}

	// Fuse first: removals that overlap, touch, or sit within one
	// padding of each other collapse into one span before shrinking.
	removals = timeline.Merge(removals, padding)

	shrunk := removals[:0]
	half := padding / 2
	for _, iv := range removals {
		start := math.Max(iv.Start+half, 0)
		end := math.Min(iv.End-half, durationSeconds)
		if end > start {
			shrunk = append(shrunk, timeline.Interval{Start: start, End: end})
		}
	}

	keeps := timeline.Invert(shrunk, durationSeconds)

	cuts := make([]timeline.Cut, 0, len(keeps))
	for _, iv := range keeps {
		in := timeline.FrameIndex(iv.Start, fps)
		out := timeline.FrameIndex(iv.End, fps)
		if out <= in {
			// Below one frame on the export grid.
			continue
		}
		cuts = append(cuts, timeline.Cut{Interval: iv, InFrame: in, OutFrame: out})
	}

	cuts = fuseFrameAdjacent(cuts)

	if len(cuts) == 0 {
		full := timeline.Interval{Start: 0, End: durationSeconds}
		cuts = []timeline.Cut{{
			Interval: full,
			InFrame:  0,
			OutFrame: timeline.FrameIndex(durationSeconds, fps),
		}}
	}
	return cuts, nil
}

// fuseFrameAdjacent joins consecutive cuts whose frame ranges meet
// exactly, so the exporters never emit a zero-length gap.
func fuseFrameAdjacent(cuts []timeline.Cut) []timeline.Cut {
	if len(cuts) < 2 {
		return cuts
	}
	out := cuts[:1]
	for _, c := range cuts[1:] {
		last := &out[len(out)-1]
		if c.InFrame <= last.OutFrame {
			if c.OutFrame > last.OutFrame {
				last.OutFrame = c.OutFrame
				last.End = c.End
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// AsRemovals re-expresses a cut list as the removal intervals it
// implies over the source duration.
func AsRemovals(cuts []timeline.Cut, durationSeconds float64) []timeline.Interval {
	return timeline.Removals(cuts, durationSeconds)
}
