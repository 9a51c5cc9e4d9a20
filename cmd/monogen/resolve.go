package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"monogen/internal/buildpipeline"
	"monogen/internal/driver"
)

func newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [flags] <program.yaml>...",
		Short: "Resolve generic programs into concrete instances",
		Long: `Load each program, materialize every instance reachable from its entry
points and lower the result. Programs are resolved concurrently.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runResolve,
	}
	f := cmd.Flags()
	f.String("format", "pretty", "diagnostic format (pretty|short|json)")
	f.Int8("context", 1, "source lines shown around a pretty diagnostic")
	f.Bool("notes", true, "show diagnostic notes")
	f.String("emit-ir", "", "write the msgpack IR; a directory when several programs are given")
	f.Bool("dump-ir", false, "print the textual IR")
	f.Bool("timings", false, "report phase timings")
	f.Bool("cache", false, "reuse results from the on-disk cache")
	f.Bool("library", false, "root every concrete function instead of entry points")
	f.StringArray("entry", nil, "entry function path (repeatable; overrides the program's entries)")
	f.Bool("no-lower", false, "stop before IR lowering")
	f.Int("jobs", 0, "programs resolved at once (0: GOMAXPROCS)")
	f.String("ui", "auto", "progress UI (auto|on|off)")
	return cmd
}

func runResolve(cmd *cobra.Command, args []string) error {
	colored, err := setupColor(mustString(cmd.Root().PersistentFlags(), "color"))
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	var result buildpipeline.Result
	defer func() { cleanup(failedPrograms(result.Files)) }()

	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := resolveOptions(cmd, conf)
	if err != nil {
		return err
	}
	render, err := newRenderer(cmd, colored)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	req := &buildpipeline.Request{
		Files:   args,
		BaseDir: cwd,
		Options: opts,
		Jobs:    mustInt(cmd.Flags(), "jobs"),
	}
	if mustBool(cmd.Flags(), "cache") {
		cache, cerr := driver.OpenResultCache("monogen")
		if cerr != nil {
			return fmt.Errorf("failed to open cache: %w", cerr)
		}
		req.Cache = cache
	}

	quiet := mustBool(cmd.Root().PersistentFlags(), "quiet")
	uiMode, err := readToggle("ui", mustString(cmd.Flags(), "ui"))
	if err != nil {
		return err
	}
	if !quiet && render.format != formatJSON && uiMode.enabled(os.Stdout) {
		result, err = runWithUI(cmd.Context(), "resolving", req)
	} else {
		result, err = buildpipeline.Run(cmd.Context(), req)
	}
	if err != nil && !isCancelled(err) {
		return err
	}

	if err := render.files(result.Files); err != nil {
		return err
	}
	if emit := mustString(cmd.Flags(), "emit-ir"); emit != "" {
		if err := emitIR(emit, result.Files); err != nil {
			return err
		}
	}
	if mustBool(cmd.Flags(), "timings") && !quiet && render.format != formatJSON {
		printStageTimings(cmd.ErrOrStderr(), result.Timings)
	}
	if err != nil {
		return err
	}
	if result.HasErrors() {
		return errFailed
	}
	return nil
}

// failedPrograms names the programs whose resolution reported errors.
func failedPrograms(files []driver.FileResult) []string {
	var out []string
	for _, f := range files {
		if f.Summary != nil && f.Summary.HasErrors() {
			out = append(out, f.Summary.Name)
		}
	}
	return out
}

// emitIR writes the binary IR of every program that lowered. With several
// programs out is a directory holding <name>.msgpack files.
func emitIR(out string, files []driver.FileResult) error {
	many := len(files) > 1
	if many {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
	}
	for _, f := range files {
		if f.Summary == nil || len(f.Summary.IRBinary) == 0 {
			continue
		}
		path := out
		if many {
			path = filepath.Join(out, f.Summary.Name+".msgpack")
		}
		if err := os.WriteFile(path, f.Summary.IRBinary, 0o644); err != nil {
			return fmt.Errorf("failed to write IR: %w", err)
		}
	}
	return nil
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
