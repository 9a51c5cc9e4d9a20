package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"monogen/internal/config"
	"monogen/internal/driver"
)

// loadConfig reads --config, or the nearest monogen.toml, or the defaults.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}
	return config.Discover(".")
}

// resolveOptions layers command-line flags over the manifest.
func resolveOptions(cmd *cobra.Command, conf config.Config) (driver.Options, error) {
	flags := cmd.Root().PersistentFlags()
	opts := driver.Options{Session: conf.Session(), Cfg: conf.Env(), Entries: conf.Resolve.Entry}

	if flags.Changed("max-depth") {
		depth, err := flags.GetInt("max-depth")
		if err != nil {
			return opts, err
		}
		if depth <= 0 {
			return opts, fmt.Errorf("--max-depth must be positive, got %d", depth)
		}
		opts.Session.MaxDepth = depth
	}
	if flags.Changed("max-diagnostics") {
		maxDiag, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return opts, err
		}
		opts.Session.MaxDiagnostics = maxDiag
	}
	specs, err := flags.GetStringArray("cfg")
	if err != nil {
		return opts, err
	}
	for _, spec := range specs {
		opts.Cfg.Set(spec)
	}
	if debug, _ := flags.GetBool("debug"); debug {
		opts.Cfg.AddFlag("debug")
	}

	local := cmd.Flags()
	if entries, _ := local.GetStringArray("entry"); len(entries) > 0 {
		opts.Entries = entries
	}
	opts.Library, _ = local.GetBool("library")
	opts.SkipLowering, _ = local.GetBool("no-lower")
	opts.Timings, _ = local.GetBool("timings")
	if opts.Library && len(opts.Entries) > 0 && local.Changed("entry") {
		return opts, fmt.Errorf("--library and --entry are mutually exclusive")
	}
	return opts, nil
}
