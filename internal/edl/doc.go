// Package edl serializes a planned cut list into the two editor
// exchange formats: the legacy track-based XML (xmeml) and the
// structural XML (fcpxml). Both exporters share the frame grid and the
// round-half-up frame mapping, so the implied timelines agree to one
// frame.
package edl
