// Package cutplan turns silence and filler intervals into the ordered
// keep-cut list the exporters serialize. The order of operations is
// fixed: fuse removals, shrink them by half the padding on each side,
// invert against the source duration, then snap to the frame grid.
package cutplan
