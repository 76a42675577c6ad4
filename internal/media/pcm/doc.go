// Package pcm streams decoded audio from the external media
// toolchain. The decoder child writes raw interleaved s16le frames on
// stdout and key=value progress reports on stderr; the stream owner is
// responsible for terminating the child on cancellation so no process
// is ever orphaned.
package pcm
