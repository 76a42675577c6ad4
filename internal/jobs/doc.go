// Package jobs persists the per-upload job records: a status machine
// with terminal states, monotonic progress, the effective analysis
// settings, and pointers to the produced artifacts. SQLite is the
// backing store; restart recovery marks interrupted work failed.
package jobs
