package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	UploadRoot string `toml:"upload_root"`
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
	APIToken   string `toml:"api_token"`
}

// Limits bounds resource usage.
type Limits struct {
	MaxUploadBytes        int64 `toml:"max_upload_bytes"`
	MaxConcurrentAnalyses int   `toml:"max_concurrent_analyses"`
}

// Tools names the external binaries the pipeline shells out to.
type Tools struct {
	DecoderBinary     string `toml:"decoder_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	TranscriberBinary string `toml:"transcriber_binary"`
}

// Analysis holds the server-side defaults for upload settings the
// client leaves unset.
type Analysis struct {
	SilenceThresholdDB int     `toml:"silence_threshold_db"`
	MinSilenceMs       int     `toml:"min_silence_ms"`
	PaddingMs          int     `toml:"padding_ms"`
	FPS                float64 `toml:"fps"`
	FillerSensitivity  float64 `toml:"filler_sensitivity"`
	TranscriptionModel string  `toml:"transcription_model"`
	Language           string  `toml:"language"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the daemon.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Limits   Limits   `toml:"limits"`
	Tools    Tools    `toml:"tools"`
	Analysis Analysis `toml:"analysis"`
	Logging  Logging  `toml:"logging"`
}

// allowedExtensions lists the upload container formats the daemon
// accepts.
var allowedExtensions = map[string]struct{}{
	".mp4": {},
	".mov": {},
	".mkv": {},
	".wav": {},
	".m4a": {},
	".mp3": {},
}

// AllowedExtension reports whether the filename carries a supported
// container extension.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadRoot: "~/.local/share/autocut/uploads",
			OutputRoot: "~/.local/share/autocut/output",
			LogDir:     "~/.local/share/autocut/logs",
			APIBind:    "127.0.0.1:8712",
		},
		Limits: Limits{
			MaxUploadBytes:        4 << 30,
			MaxConcurrentAnalyses: 2,
		},
		Tools: Tools{
			DecoderBinary:     "ffmpeg",
			FFprobeBinary:     "ffprobe",
			TranscriberBinary: "whisperx",
		},
		Analysis: Analysis{
			SilenceThresholdDB: -45,
			MinSilenceMs:       800,
			PaddingMs:          250,
			FPS:                30,
			FillerSensitivity:  0.7,
			TranscriptionModel: "base",
			Language:           "fr",
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

// Load locates, parses, and validates a configuration file. The
// returned config has all path fields expanded, environment overrides
// applied, and defaults filled in.
func Load(path string) (*Config, string, bool, error) {
	// Development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()
	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnvironment(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/autocut/config.toml")
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("autocut.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories daemon operation needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.UploadRoot, c.Paths.OutputRoot, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CreateSample writes a sample configuration file to the specified
// location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
