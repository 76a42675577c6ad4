package transcribe

import (
	"fmt"
	"strings"
	"time"
)

// FormatSRT renders segments as a SubRip document with
// sequence-numbered cue blocks.
func FormatSRT(segments []Segment) string {
	var b strings.Builder
	index := 1
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n", index)
		fmt.Fprintf(&b, "%s --> %s\n", srtTimestamp(seg.Start), srtTimestamp(seg.End))
		b.WriteString(text)
		b.WriteString("\n\n")
		index++
	}
	return b.String()
}

// FormatVTT renders segments as a WebVTT document.
func FormatVTT(segments []Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s\n", vttTimestamp(seg.Start), vttTimestamp(seg.End))
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatTXT renders the transcript as plain text, one sentence per
// line, without timecodes.
func FormatTXT(segments []Segment) string {
	full := PlainText(segments)
	if full == "" {
		return ""
	}
	var b strings.Builder
	start := 0
	for i, r := range full {
		if r == '.' || r == '!' || r == '?' {
			sentence := strings.TrimSpace(full[start : i+1])
			if sentence != "" {
				b.WriteString(sentence)
				b.WriteByte('\n')
			}
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(full[start:]); rest != "" {
		b.WriteString(rest)
		b.WriteByte('\n')
	}
	return b.String()
}

func srtTimestamp(seconds float64) string {
	return formatTimestamp(seconds, ',')
}

func vttTimestamp(seconds float64) string {
	return formatTimestamp(seconds, '.')
}

func formatTimestamp(seconds float64, msSep byte) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	ms := (d - s*time.Second) / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, msSep, ms)
}
