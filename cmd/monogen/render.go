package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"monogen/internal/diagfmt"
	"monogen/internal/driver"
)

type outputFormat string

const (
	formatPretty outputFormat = "pretty"
	formatShort  outputFormat = "short"
	formatJSON   outputFormat = "json"
)

type renderer struct {
	out, errOut io.Writer
	format      outputFormat
	pretty      diagfmt.PrettyOpts
	notes       bool
	dumpIR      bool
	quiet       bool
}

func newRenderer(cmd *cobra.Command, colored bool) (*renderer, error) {
	format := outputFormat(mustString(cmd.Flags(), "format"))
	switch format {
	case formatPretty, formatShort, formatJSON:
	default:
		return nil, fmt.Errorf("unsupported format %q (must be pretty, short or json)", format)
	}
	contextLines, err := cmd.Flags().GetInt8("context")
	if err != nil {
		return nil, err
	}
	notes := mustBool(cmd.Flags(), "notes")
	return &renderer{
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
		format: format,
		pretty: diagfmt.PrettyOpts{
			Paths:     diagfmt.Paths{Mode: diagfmt.PathModeAuto},
			Color:     colored,
			Context:   contextLines,
			ShowNotes: notes,
		},
		notes:  notes,
		dumpIR: mustBool(cmd.Flags(), "dump-ir"),
		quiet:  mustBool(cmd.Root().PersistentFlags(), "quiet"),
	}, nil
}

// fileJSON is one entry of the --format json document.
type fileJSON struct {
	Path        string                   `json:"path"`
	Program     string                   `json:"program,omitempty"`
	Error       string                   `json:"error,omitempty"`
	Cached      bool                     `json:"cached,omitempty"`
	Instances   []driver.InstanceSummary `json:"instances,omitempty"`
	Diagnostics *diagfmt.Report          `json:"diagnostics,omitempty"`
	IR          string                   `json:"ir,omitempty"`
}

func (r *renderer) files(files []driver.FileResult) error {
	if r.format == formatJSON {
		return r.json(files)
	}
	for _, f := range files {
		if err := r.file(f); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) file(f driver.FileResult) error {
	if f.Err != nil {
		_, err := fmt.Fprintf(r.errOut, "%s: %v\n", f.Path, f.Err)
		return err
	}
	if f.CacheErr != nil && !r.quiet {
		fmt.Fprintf(r.errOut, "%s: cache: %v\n", f.Path, f.CacheErr)
	}
	s := f.Summary
	bag := s.Bag()
	var err error
	switch r.format {
	case formatShort:
		err = diagfmt.Short(r.out, bag, f.Files, r.notes)
	default:
		err = diagfmt.Pretty(r.out, bag, f.Files, r.pretty)
	}
	if err != nil {
		return err
	}
	if r.dumpIR && s.IRText != "" {
		if _, err := io.WriteString(r.out, s.IRText); err != nil {
			return err
		}
	}
	if r.quiet {
		return nil
	}
	status := color.New(color.FgGreen).Sprint("ok")
	if s.HasErrors() {
		status = color.New(color.FgRed).Sprint("failed")
	}
	suffix := ""
	if s.Cached {
		suffix = " (cached)"
	}
	_, err = fmt.Fprintf(r.errOut, "%s %s: %d instances%s\n", status, s.Name, len(s.Instances), suffix)
	return err
}

func (r *renderer) json(files []driver.FileResult) error {
	doc := struct {
		Files []fileJSON `json:"files"`
	}{Files: make([]fileJSON, 0, len(files))}
	opts := diagfmt.JSONOpts{Positions: true, Paths: diagfmt.Paths{Mode: diagfmt.PathModeAuto}, Notes: r.notes}
	for _, f := range files {
		entry := fileJSON{Path: f.Path}
		if f.Err != nil {
			entry.Error = f.Err.Error()
		} else if s := f.Summary; s != nil {
			out := diagfmt.BuildReport(s.Bag(), f.Files, opts)
			entry.Program = s.Name
			entry.Cached = s.Cached
			entry.Instances = s.Instances
			entry.Diagnostics = &out
			if r.dumpIR {
				entry.IR = s.IRText
			}
		}
		doc.Files = append(doc.Files, entry)
	}
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
