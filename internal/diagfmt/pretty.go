package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"monogen/internal/diag"
	"monogen/internal/source"
)

type palette struct {
	err, warn, info, note, code, gutter, mark *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgCyan, color.Bold),
		note:   color.New(color.FgGreen),
		code:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		mark:   color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.gutter, p.mark} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	}
	return p.info
}

// PrettyOpts configures Pretty.
type PrettyOpts struct {
	Paths
	Color bool
	// Context is the number of source lines shown above and below the primary line.
	Context   int8
	ShowNotes bool
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for i, d := range bag.Items() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := prettyOne(w, d, fs, opts, p); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, p palette) error {
	var b strings.Builder
	sev := p.severity(d.Severity).Sprint(d.Severity.String())
	code := p.code.Sprint(d.Code.ID())
	if loc, ok := location(d.Primary, fs, opts); ok {
		fmt.Fprintf(&b, "%s: %s %s: %s\n", loc, sev, code, d.Message)
		writeSnippet(&b, d.Primary, fs, int(opts.Context), p)
	} else {
		fmt.Fprintf(&b, "%s %s: %s\n", sev, code, d.Message)
	}
	if opts.ShowNotes || d.Code == diag.ObsTimings {
		for _, n := range d.Notes {
			if loc, ok := location(n.Span, fs, opts); ok {
				fmt.Fprintf(&b, "  %s %s: %s\n", p.note.Sprint("note:"), loc, n.Msg)
			} else {
				fmt.Fprintf(&b, "  %s %s\n", p.note.Sprint("note:"), n.Msg)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func location(sp source.Span, fs *source.FileSet, opts PrettyOpts) (string, bool) {
	f := fs.Get(sp.File)
	if f == nil {
		return "", false
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d", opts.format(f), start.Line, start.Col), true
}

// writeSnippet prints the primary line with `context` lines around it and an
// underline below the spanned columns of the primary line.
func writeSnippet(b *strings.Builder, sp source.Span, fs *source.FileSet, context int, p palette) {
	f := fs.Get(sp.File)
	start, end := fs.Resolve(sp)
	if start.Line == 0 {
		return
	}
	last := f.LineCount()
	from := start.Line - min(start.Line-1, uint32(max(context, 0)))
	to := min(start.Line+uint32(max(context, 0)), last)
	width := len(fmt.Sprint(to))

	for line := from; line <= to; line++ {
		text := strings.ReplaceAll(f.Line(line), "\t", " ")
		fmt.Fprintf(b, "%s %s\n", p.gutter.Sprintf("%*d |", width, line), text)
		if line != start.Line {
			continue
		}
		col := int(start.Col) - 1
		if col > len(text) {
			col = len(text)
		}
		stop := len(text)
		if end.Line == start.Line {
			stop = min(int(end.Col)-1, len(text))
		}
		indent := runewidth.StringWidth(text[:col])
		span := 1
		if stop > col {
			span = max(runewidth.StringWidth(text[col:stop]), 1)
		}
		fmt.Fprintf(b, "%s %s%s\n", p.gutter.Sprintf("%*s |", width, ""),
			strings.Repeat(" ", indent), p.mark.Sprint("^"+strings.Repeat("~", span-1)))
	}
}

// Short renders one line per diagnostic, sorted by position.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) error {
	out := diag.FormatShortDiagnostics(bag.Items(), fs, includeNotes)
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}
