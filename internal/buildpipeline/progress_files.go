package buildpipeline

import (
	"path/filepath"
	"strings"
)

// displayNames maps each input path to the name shown in progress output:
// relative to baseDir when the file lives under it, slash-separated.
func displayNames(files []string, baseDir string) map[string]string {
	out := make(map[string]string, len(files))
	base := strings.TrimSpace(baseDir)
	if base != "" {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	for _, file := range files {
		if file == "" {
			continue
		}
		path := filepath.Clean(file)
		if base != "" {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			if rel, err := filepath.Rel(base, path); err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
				path = rel
			}
		}
		out[file] = filepath.ToSlash(path)
	}
	return out
}

// DisplayFiles lists the progress names of req.Files in request order.
func DisplayFiles(req *Request) []string {
	names := displayNames(req.Files, req.BaseDir)
	out := make([]string, len(req.Files))
	for i, f := range req.Files {
		out[i] = names[f]
	}
	return out
}
