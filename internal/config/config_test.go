package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadParsesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
[paths]
upload_root = "` + filepath.Join(dir, "up") + `"
output_root = "` + filepath.Join(dir, "out") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"
api_bind = "127.0.0.1:0"

[limits]
max_upload_bytes = 1048576
max_concurrent_analyses = 3

[analysis]
silence_threshold_db = -40
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected config to resolve, got %q exists=%v", resolved, exists)
	}
	if cfg.Limits.MaxConcurrentAnalyses != 3 {
		t.Fatalf("max_concurrent_analyses = %d, want 3", cfg.Limits.MaxConcurrentAnalyses)
	}
	if cfg.Analysis.SilenceThresholdDB != -40 {
		t.Fatalf("silence_threshold_db = %d, want -40", cfg.Analysis.SilenceThresholdDB)
	}
	// Unset sections keep defaults.
	if cfg.Tools.DecoderBinary != "ffmpeg" {
		t.Fatalf("decoder binary default lost: %q", cfg.Tools.DecoderBinary)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvOutputRoot, filepath.Join(dir, "env-out"))
	t.Setenv(EnvMaxUploadBytes, "2048")
	t.Setenv(EnvDecoderBinary, "/opt/tools/ffmpeg")

	cfg, _, _, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Paths.OutputRoot != filepath.Join(dir, "env-out") {
		t.Fatalf("OUTPUT_ROOT override lost: %q", cfg.Paths.OutputRoot)
	}
	if cfg.Limits.MaxUploadBytes != 2048 {
		t.Fatalf("MAX_UPLOAD_BYTES override lost: %d", cfg.Limits.MaxUploadBytes)
	}
	if cfg.Tools.DecoderBinary != "/opt/tools/ffmpeg" {
		t.Fatalf("DECODER_BINARY override lost: %q", cfg.Tools.DecoderBinary)
	}
}

func TestEnvironmentRejectsBadNumbers(t *testing.T) {
	t.Setenv(EnvMaxUploadBytes, "not-a-number")
	if _, _, _, err := Load(""); err == nil {
		t.Fatal("expected parse failure for bad MAX_UPLOAD_BYTES")
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold too low", func(c *Config) { c.Analysis.SilenceThresholdDB = -70 }},
		{"threshold too high", func(c *Config) { c.Analysis.SilenceThresholdDB = -10 }},
		{"min silence too small", func(c *Config) { c.Analysis.MinSilenceMs = 50 }},
		{"padding too large", func(c *Config) { c.Analysis.PaddingMs = 2000 }},
		{"unsupported fps", func(c *Config) { c.Analysis.FPS = 48 }},
		{"sensitivity out of range", func(c *Config) { c.Analysis.FillerSensitivity = 1.5 }},
		{"zero concurrency", func(c *Config) { c.Limits.MaxConcurrentAnalyses = 0 }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation failure")
			}
		})
	}
}

func TestAllowedExtension(t *testing.T) {
	for _, name := range []string{"talk.mp4", "TALK.MOV", "a.mkv", "a.wav"} {
		if !AllowedExtension(name) {
			t.Fatalf("%s should be allowed", name)
		}
	}
	for _, name := range []string{"talk.exe", "archive.zip", "noext"} {
		if AllowedExtension(name) {
			t.Fatalf("%s should be rejected", name)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[analysis]") {
		t.Fatalf("sample config incomplete: %s", data)
	}
}
