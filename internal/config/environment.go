package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variable names recognized by the daemon. Environment
// values override the configuration file.
const (
	EnvOutputRoot            = "OUTPUT_ROOT"
	EnvUploadRoot            = "UPLOAD_ROOT"
	EnvMaxUploadBytes        = "MAX_UPLOAD_BYTES"
	EnvMaxConcurrentAnalyses = "MAX_CONCURRENT_ANALYSES"
	EnvDecoderBinary         = "DECODER_BINARY"
	EnvFFprobeBinary         = "FFPROBE_BINARY"
	EnvAPIBind               = "API_BIND"
	EnvAPIToken              = "API_TOKEN"
)

func (c *Config) applyEnvironment() error {
	if v := strings.TrimSpace(os.Getenv(EnvOutputRoot)); v != "" {
		c.Paths.OutputRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUploadRoot)); v != "" {
		c.Paths.UploadRoot = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIBind)); v != "" {
		c.Paths.APIBind = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIToken)); v != "" {
		c.Paths.APIToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDecoderBinary)); v != "" {
		c.Tools.DecoderBinary = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFFprobeBinary)); v != "" {
		c.Tools.FFprobeBinary = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxUploadBytes)); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMaxUploadBytes, err)
		}
		c.Limits.MaxUploadBytes = parsed
	}
	if v := strings.TrimSpace(os.Getenv(EnvMaxConcurrentAnalyses)); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvMaxConcurrentAnalyses, err)
		}
		c.Limits.MaxConcurrentAnalyses = parsed
	}
	return nil
}
