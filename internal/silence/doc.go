// Package silence locates sub-threshold spans in a PCM stream. The
// analyzer consumes interleaved little-endian s16 frames in 10 ms
// windows, scores each window in dB full-scale, and emits the sorted
// silence intervals that meet the configured minimum duration.
package silence
