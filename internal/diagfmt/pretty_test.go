package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"monogen/internal/diag"
	"monogen/internal/source"
)

const progText = "items:\n  - fn: main\n    body: nope\n"

// nopeSpan covers `nope` on line 3.
func nopeSpan(id source.FileID) source.Span {
	return source.Span{File: id, Start: 30, End: 34}
}

func TestPrettyHeaderAndUnderline(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("/work/prog.yaml", []byte(progText))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.IOProgramInvalid, nopeSpan(id), "unknown name `nope`"))

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{Context: 1, Paths: Paths{Mode: PathModeBasename}}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"prog.yaml:3:11: ERROR IO6002: unknown name `nope`",
		"2 |   - fn: main",
		"3 |     body: nope",
		"  |           ^~~~",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("colour codes with Color=false:\n%s", out)
	}
}

func TestPrettyNotesAndMissingSpans(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("prog.yaml", []byte(progText))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.MonoMissingEntry, source.NoSpan, "program `prog` has no entry point").
		WithNote(nopeSpan(id), "declared here").
		WithNote(source.NoSpan, "pass --entry"))

	var buf bytes.Buffer
	if err := Pretty(&buf, bag, fs, PrettyOpts{ShowNotes: true}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"ERROR MONO4004: program `prog` has no entry point",
		"note: prog.yaml:3:11: declared here",
		"note: pass --entry",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := Pretty(&buf, bag, fs, PrettyOpts{}); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes shown without ShowNotes:\n%s", buf.String())
	}
}

func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	long := "/very/long/absolute/path/to/some/nested/directory/prog.yaml"
	longID := fs.AddVirtual(long, []byte(progText))
	shortID := fs.AddVirtual("/home/user/project/src/prog.yaml", []byte(progText))

	cases := []struct {
		name string
		id   source.FileID
		mode PathMode
		base string
		want string
	}{
		{"auto keeps short", shortID, PathModeAuto, "", "/home/user/project/src/prog.yaml"},
		{"auto shortens long", longID, PathModeAuto, "", "prog.yaml"},
		{"relative", shortID, PathModeRelative, "/home/user/project", "src/prog.yaml"},
		{"basename", shortID, PathModeBasename, "", "prog.yaml"},
		{"absolute", longID, PathModeAbsolute, "", long},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := formatPath(fs.Get(tc.id), tc.mode, tc.base); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestShort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("prog.yaml", []byte(progText))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.IOProgramInvalid, nopeSpan(id), "unknown name `nope`"))

	var buf bytes.Buffer
	if err := Short(&buf, bag, fs, false); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "error IO6002 prog.yaml:3:11 unknown name `nope`\n" {
		t.Fatalf("short = %q", got)
	}
}
