package daemon

import (
	"fmt"
	"strconv"
	"strings"

	"autocut/internal/config"
	"autocut/internal/jobs"
	"autocut/internal/services"
	"autocut/internal/transcribe"
)

// recognizedOptions is the closed set of upload configuration fields.
// Anything else in the form fails the request before a job exists.
var recognizedOptions = map[string]struct{}{
	"silence_threshold_db":     {},
	"min_silence_ms":           {},
	"padding_ms":               {},
	"fps":                      {},
	"detect_fillers":           {},
	"filler_sensitivity":       {},
	"transcription_model_size": {},
}

// parseSettings builds the effective job settings from multipart form
// values over the configured defaults. Unknown options and
// out-of-range values are rejected.
func parseSettings(form map[string][]string, defaults config.Analysis) (jobs.Settings, error) {
	settings := jobs.Settings{
		SilenceThresholdDB: defaults.SilenceThresholdDB,
		MinSilenceMs:       defaults.MinSilenceMs,
		PaddingMs:          defaults.PaddingMs,
		FPS:                defaults.FPS,
		DetectFillers:      false,
		FillerSensitivity:  defaults.FillerSensitivity,
		TranscriptionModel: defaults.TranscriptionModel,
	}

	for key := range form {
		if _, ok := recognizedOptions[key]; !ok {
			return jobs.Settings{}, invalid(fmt.Sprintf("unknown option %q", key))
		}
	}

	if raw, ok := first(form, "silence_threshold_db"); ok {
		value, err := strconv.Atoi(raw)
		if err != nil || value < -60 || value > -20 {
			return jobs.Settings{}, invalid("silence_threshold_db must be an integer in [-60, -20]")
		}
		settings.SilenceThresholdDB = value
	}
	if raw, ok := first(form, "min_silence_ms"); ok {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 100 || value > 5000 {
			return jobs.Settings{}, invalid("min_silence_ms must be an integer in [100, 5000]")
		}
		settings.MinSilenceMs = value
	}
	if raw, ok := first(form, "padding_ms"); ok {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 || value > 1000 {
			return jobs.Settings{}, invalid("padding_ms must be an integer in [0, 1000]")
		}
		settings.PaddingMs = value
	}
	if raw, ok := first(form, "fps"); ok {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || !config.SupportedFPS(value) {
			return jobs.Settings{}, invalid("fps must be one of 23.976, 24, 25, 29.97, 30, 50, 59.94, 60")
		}
		settings.FPS = value
	}
	if raw, ok := first(form, "detect_fillers"); ok {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return jobs.Settings{}, invalid("detect_fillers must be a boolean")
		}
		settings.DetectFillers = value
	}
	if raw, ok := first(form, "filler_sensitivity"); ok {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || value < 0 || value > 1 {
			return jobs.Settings{}, invalid("filler_sensitivity must be in [0.0, 1.0]")
		}
		settings.FillerSensitivity = value
	}
	if raw, ok := first(form, "transcription_model_size"); ok {
		model, ok := transcribe.ParseModelSize(raw)
		if !ok {
			return jobs.Settings{}, invalid("transcription_model_size must be one of tiny, base, small, medium, large")
		}
		settings.TranscriptionModel = string(model)
	}
	return settings, nil
}

func first(form map[string][]string, key string) (string, bool) {
	values, ok := form[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	value := strings.TrimSpace(values[0])
	return value, value != ""
}

func invalid(message string) error {
	return services.Wrap(services.ErrInputInvalid, "upload", "validate options", message, nil)
}
