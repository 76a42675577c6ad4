package ffprobe

import (
	"context"
	"encoding/json"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"autocut/internal/services"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
	AvgFrameRate string `json:"avg_frame_rate"`
	RFrameRate   string `json:"r_frame_rate"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Info is the distilled probe report the orchestrator carries forward.
type Info struct {
	DurationSeconds float64
	ContainerFPS    float64
	Channels        int
	SampleRateHz    int
}

// Inspect executes ffprobe against the provided path and decodes the
// JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "inspect", "empty path", nil)
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "inspect",
			strings.TrimSpace(string(output)), err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, services.Wrap(services.ErrExternalTool, "probe", "parse", "", err)
	}
	return result, nil
}

// Probe inspects the container and distills the fields the analysis
// pipeline needs. An unreadable or zero-duration container fails.
func Probe(ctx context.Context, binary string, path string) (Info, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return Info{}, err
	}
	return result.Summarize()
}

// Summarize distills a parsed result into probe info.
func (r Result) Summarize() (Info, error) {
	info := Info{DurationSeconds: r.DurationSeconds()}
	if info.DurationSeconds <= 0 {
		return Info{}, services.Wrap(services.ErrInputInvalid, "probe", "summarize", "container reports no duration", nil)
	}
	for _, stream := range r.Streams {
		switch {
		case strings.EqualFold(stream.CodecType, "video") && info.ContainerFPS == 0:
			info.ContainerFPS = stream.FPS()
		case strings.EqualFold(stream.CodecType, "audio") && info.Channels == 0:
			info.Channels = stream.Channels
			info.SampleRateHz = int(parseFloat(stream.SampleRate))
		}
	}
	return info, nil
}

// DurationSeconds returns the container duration in seconds, or 0 when
// unavailable.
func (r Result) DurationSeconds() float64 {
	d := parseFloat(r.Format.Duration)
	if math.IsNaN(d) || d < 0 {
		return 0
	}
	return d
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// FPS parses the stream frame rate from its rational form, preferring
// the average rate.
func (s Stream) FPS() float64 {
	if fps := parseRate(s.AvgFrameRate); fps > 0 {
		return fps
	}
	return parseRate(s.RFrameRate)
}

func parseRate(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n := parseFloat(num)
		d := parseFloat(den)
		if math.IsNaN(n) || math.IsNaN(d) || d == 0 {
			return 0
		}
		return n / d
	}
	f := parseFloat(value)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
