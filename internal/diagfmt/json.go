package diagfmt

import (
	"encoding/json"
	"io"

	"monogen/internal/diag"
	"monogen/internal/source"
)

// JSONOpts configures JSON and BuildReport.
type JSONOpts struct {
	Paths
	// Positions adds line/column pairs next to the byte range.
	Positions bool
	Notes     bool
	// Max truncates the output; the bag itself is untouched.
	Max int
}

// Position is a 1-based line and column.
type Position struct {
	Line uint32 `json:"line"`
	Col  uint32 `json:"col"`
}

// Location points into a program file. Bytes is the half-open byte range.
type Location struct {
	File  string    `json:"file"`
	Bytes [2]uint32 `json:"bytes"`
	Start *Position `json:"start,omitempty"`
	End   *Position `json:"end,omitempty"`
}

type Note struct {
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
}

// Entry is one diagnostic in the JSON document.
type Entry struct {
	Severity string    `json:"severity"`
	Code     string    `json:"code"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Location *Location `json:"location,omitempty"`
	Notes    []Note    `json:"notes,omitempty"`
}

// Report is the JSON document for one bag.
type Report struct {
	Diagnostics []Entry `json:"diagnostics"`
	Count       int     `json:"count"`
}

// BuildReport converts bag without serializing it, so callers can embed the
// result in a larger document.
func BuildReport(bag *diag.Bag, fs *source.FileSet, opts JSONOpts) Report {
	items := bag.Items()
	if opts.Max > 0 && opts.Max < len(items) {
		items = items[:opts.Max]
	}
	rep := Report{Diagnostics: make([]Entry, 0, len(items))}
	for _, d := range items {
		e := Entry{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: opts.locate(d.Primary, fs),
		}
		if opts.Notes || d.Code == diag.ObsTimings {
			for _, n := range d.Notes {
				e.Notes = append(e.Notes, Note{Message: n.Msg, Location: opts.locate(n.Span, fs)})
			}
		}
		rep.Diagnostics = append(rep.Diagnostics, e)
	}
	rep.Count = len(rep.Diagnostics)
	return rep
}

// locate returns nil for spans outside every file.
func (opts JSONOpts) locate(span source.Span, fs *source.FileSet) *Location {
	f := fs.Get(span.File)
	if f == nil {
		return nil
	}
	loc := &Location{File: opts.format(f), Bytes: [2]uint32{span.Start, span.End}}
	if opts.Positions {
		start, end := fs.Resolve(span)
		loc.Start = &Position{Line: start.Line, Col: start.Col}
		loc.End = &Position{Line: end.Line, Col: end.Col}
	}
	return loc
}

// JSON writes the report for bag as indented JSON.
func JSON(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts JSONOpts) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildReport(bag, fs, opts))
}
