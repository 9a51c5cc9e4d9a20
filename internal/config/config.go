// Package config reads monogen.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"monogen/internal/cfg"
	"monogen/internal/session"
)

// FileName is the manifest looked up from the working directory upwards.
const FileName = "monogen.toml"

// Config is the decoded manifest.
type Config struct {
	// Path is where the manifest was read from; empty for defaults.
	Path    string        `toml:"-"`
	Resolve ResolveConfig `toml:"resolve"`
	Cfg     CfgConfig     `toml:"cfg"`
}

type ResolveConfig struct {
	MaxDepth       int      `toml:"max_depth"`
	MaxDiagnostics int      `toml:"max_diagnostics"`
	Entry          []string `toml:"entry"`
}

type CfgConfig struct {
	Flags  []string          `toml:"flags"`
	Values map[string]string `toml:"values"`
	Debug  bool              `toml:"debug"`
}

// Default returns the configuration used when no manifest exists.
func Default() Config {
	return Config{Resolve: ResolveConfig{MaxDepth: session.DefaultMaxDepth}}
}

// Find walks from startDir to the filesystem root looking for FileName.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// Load decodes path; keys the file leaves out keep their defaults.
func Load(path string) (Config, error) {
	c := Default()
	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("resolve", "max_depth") || c.Resolve.MaxDepth <= 0 {
		c.Resolve.MaxDepth = session.DefaultMaxDepth
	}
	if c.Resolve.MaxDiagnostics < 0 {
		return Config{}, fmt.Errorf("%s: resolve.max_diagnostics must not be negative", path)
	}
	c.Path = path
	return c, nil
}

// Discover loads the nearest manifest above startDir, or the defaults.
func Discover(startDir string) (Config, error) {
	path, ok, err := Find(startDir)
	if err != nil || !ok {
		return Default(), err
	}
	return Load(path)
}

// Session returns the engine limits.
func (c Config) Session() session.Options {
	return session.Options{MaxDepth: c.Resolve.MaxDepth, MaxDiagnostics: c.Resolve.MaxDiagnostics}
}

// Env builds the cfg environment; `debug` becomes a flag.
func (c Config) Env() *cfg.Env {
	env := cfg.NewEnv()
	for _, f := range c.Cfg.Flags {
		env.Set(f)
	}
	keys := make([]string, 0, len(c.Cfg.Values))
	for k := range c.Cfg.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env.AddValue(k, c.Cfg.Values[k])
	}
	if c.Cfg.Debug {
		env.AddFlag("debug")
	}
	return env
}
