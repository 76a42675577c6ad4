package testsupport

import (
	"path/filepath"
	"testing"

	"autocut/internal/config"
)

// NewConfig produces a config seeded with unique temp directories per
// test.
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadRoot = filepath.Join(base, "uploads")
	cfg.Paths.OutputRoot = filepath.Join(base, "output")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}
