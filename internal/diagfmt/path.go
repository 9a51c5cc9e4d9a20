package diagfmt

import (
	"path/filepath"
	"strings"

	"monogen/internal/source"
)

// PathMode selects how file paths are shown.
type PathMode uint8

const (
	// PathModeAuto keeps short paths and cuts long absolute ones to the basename.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	// PathModeRelative is relative to Paths.BaseDir when the file lies below it.
	PathModeRelative
	PathModeBasename
)

// Paths is the path display setting shared by every format.
type Paths struct {
	Mode    PathMode
	BaseDir string
}

func (p Paths) format(f *source.File) string { return formatPath(f, p.Mode, p.BaseDir) }

// autoPathLimit is the length above which PathModeAuto falls back to the basename.
const autoPathLimit = 40

func formatPath(f *source.File, mode PathMode, baseDir string) string {
	if f == nil {
		return "<unknown>"
	}
	path := f.Path
	switch mode {
	case PathModeAbsolute:
		if !f.Virtual {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
	case PathModeRelative:
		if baseDir != "" {
			if rel, err := filepath.Rel(baseDir, path); err == nil && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
	case PathModeBasename:
		path = filepath.Base(path)
	case PathModeAuto:
		if filepath.IsAbs(path) && len(path) > autoPathLimit {
			path = filepath.Base(path)
		}
	}
	return filepath.ToSlash(path)
}
