// Package logging builds the daemon's slog loggers: a compact console
// handler for interactive use, a JSON handler for machine collection,
// shared attribute helpers, and a sampler that keeps progress logging
// from flooding the output.
package logging
