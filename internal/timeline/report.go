package timeline

// FillerHit is a disfluency located by the filler detector. The
// confidence comes from the transcription model and lives in [0, 1].
type FillerHit struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start_s"`
	End        float64 `json:"end_s"`
	Confidence float64 `json:"confidence"`
}

// Interval returns the hit's span as a timeline interval.
func (h FillerHit) Interval() Interval {
	return Interval{Start: h.Start, End: h.End}
}

// AnalysisReport bundles the outputs carried between pipeline stages
// and summarized back to the client when a job completes.
type AnalysisReport struct {
	DurationSeconds float64     `json:"duration_s"`
	SampleRateHz    int         `json:"sample_rate_hz"`
	Silences        []Interval  `json:"silences"`
	Fillers         []FillerHit `json:"fillers"`
	Cuts            []Cut       `json:"cuts"`
	PaddingMs       int         `json:"padding_ms"`
	FPS             float64     `json:"fps"`
}

// TotalKeptSeconds returns the summed duration of the planned cuts.
func (r AnalysisReport) TotalKeptSeconds() float64 {
	return TotalKeptSeconds(r.Cuts)
}

// TotalRemovedSeconds returns the source time dropped by the plan.
func (r AnalysisReport) TotalRemovedSeconds() float64 {
	removed := r.DurationSeconds - r.TotalKeptSeconds()
	if removed < 0 {
		return 0
	}
	return removed
}
