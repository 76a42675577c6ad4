// Package fillers locates French disfluencies ("euh", "hum", weak
// fillers like "en fait") in transcript segments. The lexicon is
// partitioned into tiers; the caller's sensitivity scalar gates which
// tiers are admitted. Detection never fabricates timings: segments
// without word-level alignment only match when the whole segment is a
// lexicon token.
package fillers
