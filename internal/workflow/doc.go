// Package workflow drives the per-job pipeline: probe, silence
// analysis, optional filler detection, cut planning, and EDL export.
// The manager owns the job store, bounds concurrent analyses with a
// FIFO worker pool, fans progress out to subscribers, and is the
// single place stage errors are classified into terminal statuses.
package workflow
