package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"monogen/internal/session"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
[resolve]
max_diagnostics = 10
entry = ["main", "app::start"]

[cfg]
flags = ["unix", "arch=x86"]
values = { os = "linux" }
debug = true
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Resolve.MaxDepth != session.DefaultMaxDepth {
		t.Fatalf("max_depth default = %d", c.Resolve.MaxDepth)
	}
	if got := c.Session(); got.MaxDiagnostics != 10 {
		t.Fatalf("session = %+v", got)
	}
	if !slices.Equal(c.Resolve.Entry, []string{"main", "app::start"}) {
		t.Fatalf("entry = %v", c.Resolve.Entry)
	}
	want := []string{"arch=x86", "debug", "os=linux", "unix"}
	if got := c.Env().Entries(); !slices.Equal(got, want) {
		t.Fatalf("env = %v, want %v", got, want)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name, body, want string
	}{
		{"syntax", "[resolve\n", "failed to parse TOML"},
		{"unknown key", "[resolve]\ndepth = 3\n", "unknown key"},
		{"negative", "[resolve]\nmax_diagnostics = -1\n", "must not be negative"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tc.body)
			if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want %q", err, tc.want)
			}
		})
	}
}

func TestDiscoverWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[resolve]\nmax_depth = 8\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	c, err := Discover(nested)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if c.Resolve.MaxDepth != 8 || c.Path != filepath.Join(root, FileName) {
		t.Fatalf("config = %+v", c)
	}
}
