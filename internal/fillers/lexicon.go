package fillers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tier ranks how strong a disfluency signal a lexicon entry carries.
// Lower tiers are admitted at lower sensitivities.
type Tier int

const (
	// TierCore entries ("euh", "hum") are always admitted.
	TierCore Tier = 1
	// TierCommon entries ("ben", "bah") need sensitivity >= 0.5.
	TierCommon Tier = 2
	// TierWeak entries ("en fait", "du coup") need sensitivity >= 0.7.
	TierWeak Tier = 3
)

var tierWords = map[Tier][]string{
	TierCore:   {"euh", "heu", "euuh", "heuuh", "hum", "hmm", "mmmh"},
	TierCommon: {"ben", "bah", "bof", "ah", "aah", "oh", "ooh"},
	TierWeak:   {"en fait", "du coup", "genre", "tu vois", "c'est-à-dire", "enfin bon", "bon ben"},
}

// duplicateWindowSeconds bounds how close a repeated word must follow
// its first occurrence to count as a stutter.
const duplicateWindowSeconds = 0.250

var lexicon = buildLexicon()

type entry struct {
	tier  Tier
	words int // number of whitespace-separated tokens in the entry
}

func buildLexicon() map[string]entry {
	out := make(map[string]entry)
	for tier, words := range tierWords {
		for _, w := range words {
			key := NormalizePhrase(w)
			if existing, ok := out[key]; ok && existing.tier <= tier {
				continue
			}
			out[key] = entry{tier: tier, words: len(strings.Fields(key))}
		}
	}
	return out
}

// maxPhraseWords is the longest lexicon entry in tokens.
var maxPhraseWords = func() int {
	max := 1
	for _, e := range lexicon {
		if e.words > max {
			max = e.words
		}
	}
	return max
}()

// admittedTier maps the sensitivity scalar to the weakest tier the
// detector may emit.
func admittedTier(sensitivity float64) Tier {
	switch {
	case sensitivity >= 0.7:
		return TierWeak
	case sensitivity >= 0.5:
		return TierCommon
	default:
		return TierCore
	}
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeWord lowercases, strips punctuation, and folds accents so
// "Euh," and "euh" compare equal.
func NormalizeWord(word string) string {
	folded, _, err := transform.String(accentFolder, strings.ToLower(strings.TrimSpace(word)))
	if err != nil {
		folded = strings.ToLower(word)
	}
	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhrase normalizes each token of a multi-word phrase,
// joining with single spaces.
func NormalizePhrase(phrase string) string {
	fields := strings.Fields(phrase)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if n := NormalizeWord(f); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}

// lookup returns the lexicon entry for a normalized phrase, if any.
func lookup(normalized string) (entry, bool) {
	e, ok := lexicon[normalized]
	return e, ok
}
