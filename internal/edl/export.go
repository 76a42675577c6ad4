package edl

import (
	"bytes"
	"os"
	"path/filepath"

	"autocut/internal/services"
	"autocut/internal/timeline"
)

// Paths locates the documents one export pass produced.
type Paths struct {
	Legacy     string `json:"legacy"`
	Structural string `json:"structural"`
}

// WriteFiles renders both documents under dir using the source stem:
// <stem>_legacy.xml and <stem>_structural.xml. Files are written via a
// temp-and-rename so a cancelled job never leaves a partial EDL behind.
func WriteFiles(dir string, src Source, cuts []timeline.Cut) (Paths, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, services.Wrap(services.ErrInternal, "edl", "ensure output dir", dir, err)
	}
	stem := src.Stem()
	paths := Paths{
		Legacy:     filepath.Join(dir, stem+"_legacy.xml"),
		Structural: filepath.Join(dir, stem+"_structural.xml"),
	}

	var legacy bytes.Buffer
	if err := WriteLegacy(&legacy, src, cuts); err != nil {
		return Paths{}, err
	}
	var structural bytes.Buffer
	if err := WriteStructural(&structural, src, cuts); err != nil {
		return Paths{}, err
	}

	if err := writeAtomic(paths.Legacy, legacy.Bytes()); err != nil {
		return Paths{}, err
	}
	if err := writeAtomic(paths.Structural, structural.Bytes()); err != nil {
		return Paths{}, err
	}
	return paths, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".edl-*")
	if err != nil {
		return services.Wrap(services.ErrInternal, "edl", "create temp file", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return services.Wrap(services.ErrInternal, "edl", "write temp file", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrInternal, "edl", "close temp file", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return services.Wrap(services.ErrInternal, "edl", "rename temp file", path, err)
	}
	return nil
}
