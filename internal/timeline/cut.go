package timeline

import "math"

// Cut is a keep-segment: a source interval plus the integer frame
// indices derived from the export frame rate. OutFrame > InFrame for
// every planned cut.
type Cut struct {
	Interval
	InFrame  int `json:"in_frame"`
	OutFrame int `json:"out_frame"`
}

// FrameCount returns the number of frames the cut occupies.
func (c Cut) FrameCount() int {
	return c.OutFrame - c.InFrame
}

// FrameIndex maps a time in seconds onto the frame grid using
// round-half-up, the convention both exporters share.
func FrameIndex(seconds, fps float64) int {
	return int(math.Floor(seconds*fps + 0.5))
}

// TotalFrames sums the frame counts of the provided cuts.
func TotalFrames(cuts []Cut) int {
	total := 0
	for _, c := range cuts {
		total += c.FrameCount()
	}
	return total
}

// TotalKeptSeconds sums the kept durations of the provided cuts.
func TotalKeptSeconds(cuts []Cut) float64 {
	total := 0.0
	for _, c := range cuts {
		total += c.Duration()
	}
	return total
}

// Removals returns the gaps between consecutive cuts within
// [0, total), i.e. the removed intervals implied by a cut list.
func Removals(cuts []Cut, total float64) []Interval {
	intervals := make([]Interval, len(cuts))
	for i, c := range cuts {
		intervals[i] = c.Interval
	}
	return Invert(intervals, total)
}
