package edl

import (
	"path/filepath"
	"strings"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

// Source describes the media file both exporters reference.
type Source struct {
	// Path is the source file as the editor should resolve it.
	Path string
	// DurationSeconds is the full container duration.
	DurationSeconds float64
	// FPS is the export frame grid.
	FPS float64
}

// Stem returns the source filename without extension, used for
// sequence and clip naming.
func (s Source) Stem() string {
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// PathURL returns the source path as a file URI.
func (s Source) PathURL() string {
	return "file://localhost/" + strings.TrimPrefix(filepath.ToSlash(s.Path), "/")
}

func validate(src Source, cuts []timeline.Cut) error {
	if strings.TrimSpace(src.Path) == "" {
		return services.Wrap(services.ErrInternal, "edl", "validate", "source path required", nil)
	}
	if src.DurationSeconds <= 0 || src.FPS <= 0 {
		return services.Wrap(services.ErrInternal, "edl", "validate", "source duration and fps must be positive", nil)
	}
	if len(cuts) == 0 {
		return services.Wrap(services.ErrInternal, "edl", "validate", "cut list is empty", nil)
	}
	for i, c := range cuts {
		if c.OutFrame <= c.InFrame {
			return services.Wrap(services.ErrInternal, "edl", "validate", "cut with empty frame range", nil)
		}
		if i > 0 && c.InFrame < cuts[i-1].OutFrame {
			return services.Wrap(services.ErrInternal, "edl", "validate", "cuts overlap on the frame grid", nil)
		}
	}
	return nil
}
