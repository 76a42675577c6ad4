// Package timeline defines the interval arithmetic shared by the
// analysis pipeline: half-open time intervals over source media time,
// keep-cuts with frame indices, and the merge/invert operations the
// cut planner and exporters build on.
package timeline
