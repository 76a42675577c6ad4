// Package daemon wires the long-running service: single-instance
// locking, restart recovery, the workflow manager, and the HTTP and
// WebSocket front door for uploads, job reads, cancellation, progress
// subscriptions, and artifact downloads.
package daemon
