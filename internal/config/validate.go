package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.UploadRoot, &c.Paths.OutputRoot, &c.Paths.LogDir} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	c.Tools.DecoderBinary = strings.TrimSpace(c.Tools.DecoderBinary)
	c.Tools.FFprobeBinary = strings.TrimSpace(c.Tools.FFprobeBinary)
	c.Tools.TranscriberBinary = strings.TrimSpace(c.Tools.TranscriberBinary)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	return nil
}

// Validate checks the configuration for unusable values.
func (c *Config) Validate() error {
	var problems []string
	if c.Paths.UploadRoot == "" {
		problems = append(problems, "paths.upload_root is required")
	}
	if c.Paths.OutputRoot == "" {
		problems = append(problems, "paths.output_root is required")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir is required")
	}
	if c.Limits.MaxUploadBytes <= 0 {
		problems = append(problems, "limits.max_upload_bytes must be positive")
	}
	if c.Limits.MaxConcurrentAnalyses <= 0 {
		problems = append(problems, "limits.max_concurrent_analyses must be positive")
	}
	if c.Tools.DecoderBinary == "" {
		problems = append(problems, "tools.decoder_binary is required")
	}
	if c.Tools.FFprobeBinary == "" {
		problems = append(problems, "tools.ffprobe_binary is required")
	}
	if c.Analysis.SilenceThresholdDB < -60 || c.Analysis.SilenceThresholdDB > -20 {
		problems = append(problems, "analysis.silence_threshold_db must be in [-60, -20]")
	}
	if c.Analysis.MinSilenceMs < 100 || c.Analysis.MinSilenceMs > 5000 {
		problems = append(problems, "analysis.min_silence_ms must be in [100, 5000]")
	}
	if c.Analysis.PaddingMs < 0 || c.Analysis.PaddingMs > 1000 {
		problems = append(problems, "analysis.padding_ms must be in [0, 1000]")
	}
	if !SupportedFPS(c.Analysis.FPS) {
		problems = append(problems, "analysis.fps is not a supported frame rate")
	}
	if c.Analysis.FillerSensitivity < 0 || c.Analysis.FillerSensitivity > 1 {
		problems = append(problems, "analysis.filler_sensitivity must be in [0, 1]")
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format: unsupported value %q", c.Logging.Format))
	}
	if len(problems) > 0 {
		return errors.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// supportedFPS lists the export frame grids the planner accepts.
var supportedFPS = []float64{23.976, 24, 25, 29.97, 30, 50, 59.94, 60}

// SupportedFPS reports whether the value is one of the recognized
// frame rates.
func SupportedFPS(fps float64) bool {
	for _, v := range supportedFPS {
		if fps == v {
			return true
		}
	}
	return false
}

// SupportedFPSValues returns the recognized frame rates.
func SupportedFPSValues() []float64 {
	out := make([]float64, len(supportedFPS))
	copy(out, supportedFPS)
	return out
}
