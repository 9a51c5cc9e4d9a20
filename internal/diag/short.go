package diag

import (
	"cmp"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"monogen/internal/source"
)

// shortLine is one row of the short format: `sev CODE path:line:col message`.
type shortLine struct {
	sev  string
	code string
	path string
	line uint32
	col  uint32
	msg  string
}

func (l shortLine) String() string {
	return l.sev + " " + l.code + " " + l.path + ":" +
		strconv.FormatUint(uint64(l.line), 10) + ":" + strconv.FormatUint(uint64(l.col), 10) + " " + l.msg
}

func compareShort(a, b shortLine) int {
	return cmp.Or(
		cmp.Compare(a.path, b.path),
		cmp.Compare(a.line, b.line),
		cmp.Compare(a.col, b.col),
		cmp.Compare(a.sev, b.sev),
		cmp.Compare(a.code, b.code),
		cmp.Compare(a.msg, b.msg),
	)
}

// FormatShortDiagnostics renders one line per diagnostic (and per note when
// includeNotes is set) ordered by position. Output is stable across runs,
// which the CLI short format and golden comparisons rely on.
func FormatShortDiagnostics(diags []Diagnostic, fs *source.FileSet, includeNotes bool) string {
	var lines []shortLine
	for i := range diags {
		d := &diags[i]
		code := d.Code.ID()
		lines = append(lines, shortAt(fs, d.Primary, d.Severity.Label(), code, d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			lines = append(lines, shortAt(fs, n.Span, "note", code, n.Msg))
		}
	}
	slices.SortStableFunc(lines, compareShort)

	rows := make([]string, len(lines))
	for i, l := range lines {
		rows[i] = l.String()
	}
	return strings.Join(rows, "\n")
}

func shortAt(fs *source.FileSet, span source.Span, sev, code, msg string) shortLine {
	l := shortLine{sev: sev, code: code, path: "<unknown>", msg: strings.Join(strings.Fields(msg), " ")}
	if file := fs.Get(span.File); file != nil {
		start, _ := fs.Resolve(span)
		l.path = strings.TrimPrefix(filepath.ToSlash(file.Path), "./")
		l.line, l.col = start.Line, start.Col
	}
	return l
}
