package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"monogen/internal/trace"
)

// traceConfig reads the --trace* flags. A path without a level traces at
// phase granularity.
func traceConfig(cmd *cobra.Command) (trace.Config, error) {
	flags := cmd.Root().PersistentFlags()
	cfg := trace.Config{
		OutputPath: mustString(flags, "trace"),
		RingSize:   mustInt(flags, "trace-ring-size"),
	}
	var err error
	if cfg.Level, err = trace.ParseLevel(mustString(flags, "trace-level")); err != nil {
		return cfg, err
	}
	if cfg.Level == trace.LevelOff {
		if cfg.OutputPath == "" {
			return cfg, nil
		}
		cfg.Level = trace.LevelPhase
	}
	if cfg.Mode, err = trace.ParseMode(mustString(flags, "trace-mode")); err != nil {
		return cfg, err
	}
	if cfg.Format, err = trace.ParseFormat(mustString(flags, "trace-format")); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupTracing attaches the configured tracer to the command context. The
// returned cleanup dumps ring events of the failed programs, then closes
// the tracer.
func setupTracing(cmd *cobra.Command) (func(failed []string), error) {
	cfg, err := traceConfig(cmd)
	if err != nil {
		return nil, err
	}
	tracer, err := trace.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	cmd.SetContext(trace.WithTracer(cmd.Context(), tracer))

	stderr := cmd.ErrOrStderr()
	return func(failed []string) {
		if ring := trace.FindRing(tracer); ring != nil && len(failed) > 0 {
			dumpFormat := cfg.Format
			if dumpFormat == trace.FormatAuto {
				dumpFormat = trace.FormatText
			}
			warnTrace(stderr, "dump", ring.Dump(stderr, dumpFormat, failed...))
		}
		// Close also flushes.
		warnTrace(stderr, "close", tracer.Close())
	}, nil
}

func warnTrace(w io.Writer, op string, err error) {
	if err != nil {
		fmt.Fprintf(w, "trace: %s error: %v\n", op, err)
	}
}
