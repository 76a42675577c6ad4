package fillers

import (
	"sort"
	"strings"

	"autocut/internal/timeline"
	"autocut/internal/transcribe"
)

// Result carries the detector output plus a flag raised when segments
// lacked the word-level timings needed to place hits precisely.
type Result struct {
	Hits           []timeline.FillerHit
	MissingTimings bool
}

// Detect scans transcript segments for admitted filler words. The
// sensitivity scalar selects the lexicon tier gate and scales the
// minimum word confidence (sensitivity × 0.5, a looser bar than the
// silence threshold because alignment confidence is noisy). Output is
// sorted and de-duplicated.
func Detect(segments []transcribe.Segment, sensitivity float64) Result {
	if sensitivity < 0 {
		sensitivity = 0
	}
	if sensitivity > 1 {
		sensitivity = 1
	}
	gate := admittedTier(sensitivity)
	minConfidence := sensitivity * 0.5

	var res Result
	for _, seg := range segments {
		if len(seg.Words) == 0 {
			res.scanBareSegment(seg, gate, minConfidence)
			continue
		}
		res.scanWords(seg.Words, gate, minConfidence)
	}

	res.Hits = dedupe(res.Hits)
	return res
}

func (r *Result) scanWords(words []transcribe.Word, gate Tier, minConfidence float64) {
	normalized := make([]string, len(words))
	for i, w := range words {
		normalized[i] = NormalizeWord(w.Word)
	}

	for i := 0; i < len(words); i++ {
		if normalized[i] == "" {
			continue
		}

		// Stuttered repetition: "je je" admits the second occurrence
		// when it follows within the duplicate window.
		if i > 0 && normalized[i] == normalized[i-1] &&
			words[i].Start-words[i-1].End <= duplicateWindowSeconds {
			r.emit(words[i].Word, words[i].Start, words[i].End, confidence(words[i].Score), minConfidence)
		}

		// Longest phrase first so "bon ben" wins over "ben".
		matched := false
		for span := min(maxPhraseWords, len(words)-i); span >= 1 && !matched; span-- {
			phrase := strings.Join(normalized[i:i+span], " ")
			e, ok := lookup(phrase)
			if !ok || e.tier > gate {
				continue
			}
			last := words[i+span-1]
			score := confidence(words[i].Score)
			for _, w := range words[i+1 : i+span] {
				if c := confidence(w.Score); c < score {
					score = c
				}
			}
			r.emit(strings.TrimSpace(joinOriginal(words[i:i+span])), words[i].Start, last.End, score, minConfidence)
			matched = true
			i += span - 1
		}
	}
}

func (r *Result) scanBareSegment(seg transcribe.Segment, gate Tier, minConfidence float64) {
	normalized := NormalizePhrase(seg.Text)
	if normalized == "" {
		return
	}
	if e, ok := lookup(normalized); ok && e.tier <= gate {
		// The whole segment is a single lexicon token, so the segment
		// interval is an honest placement.
		r.emit(strings.TrimSpace(seg.Text), seg.Start, seg.End, 1, minConfidence)
		return
	}
	// Without word timings a filler inside a longer segment cannot be
	// placed; never fabricate timings.
	for _, token := range strings.Fields(normalized) {
		if e, ok := lookup(token); ok && e.tier <= gate {
			r.MissingTimings = true
			return
		}
	}
}

func (r *Result) emit(word string, start, end, conf, minConfidence float64) {
	if end <= start || conf < minConfidence {
		return
	}
	r.Hits = append(r.Hits, timeline.FillerHit{
		Word:       word,
		Start:      start,
		End:        end,
		Confidence: conf,
	})
}

func confidence(score float64) float64 {
	if score <= 0 {
		return 1
	}
	if score > 1 {
		return 1
	}
	return score
}

func joinOriginal(words []transcribe.Word) string {
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = strings.TrimSpace(w.Word)
	}
	return strings.Join(parts, " ")
}

func dedupe(hits []timeline.FillerHit) []timeline.FillerHit {
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Start == hits[j].Start {
			return hits[i].End < hits[j].End
		}
		return hits[i].Start < hits[j].Start
	})
	out := hits[:1]
	for _, h := range hits[1:] {
		last := out[len(out)-1]
		if h.Start == last.Start && h.End == last.End && NormalizeWord(h.Word) == NormalizeWord(last.Word) {
			continue
		}
		out = append(out, h)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
