package diagfmt

import (
	"bytes"
	"encoding/json"
	"testing"

	"monogen/internal/diag"
	"monogen/internal/source"
)

func TestJSONBasic(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("dir/prog.yaml", []byte(progText))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.IOProgramInvalid, nopeSpan(id), "unknown name `nope`").
		WithNote(source.NoSpan, "check the spelling"))
	bag.Add(diag.New(diag.SevWarning, diag.MonoInfo, source.NoSpan, "second"))

	var buf bytes.Buffer
	opts := JSONOpts{Positions: true, Paths: Paths{Mode: PathModeBasename}, Notes: true}
	if err := JSON(&buf, bag, fs, opts); err != nil {
		t.Fatalf("JSON() error: %v", err)
	}
	var out Report
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if out.Count != 2 || len(out.Diagnostics) != 2 {
		t.Fatalf("count = %d", out.Count)
	}
	d := out.Diagnostics[0]
	if d.Severity != "ERROR" || d.Code != "IO6002" || d.Title != "malformed program" {
		t.Fatalf("diagnostic = %+v", d)
	}
	if loc := d.Location; loc == nil || loc.File != "prog.yaml" || loc.Start == nil || *loc.Start != (Position{Line: 3, Col: 11}) {
		t.Fatalf("location = %+v", d.Location)
	}
	if d.Location.Bytes != [2]uint32{30, 34} {
		t.Fatalf("bytes = %v", d.Location.Bytes)
	}
	if len(d.Notes) != 1 || d.Notes[0].Location != nil {
		t.Fatalf("notes = %+v", d.Notes)
	}
	if out.Diagnostics[1].Location != nil {
		t.Fatalf("NoSpan produced a location")
	}
}

func TestJSONMax(t *testing.T) {
	fs := source.NewFileSet()
	bag := diag.NewBag(0)
	for range 5 {
		bag.Add(diag.New(diag.SevInfo, diag.MonoInfo, source.NoSpan, "x"))
	}
	out := BuildReport(bag, fs, JSONOpts{Max: 2})
	if out.Count != 2 || len(out.Diagnostics) != 2 || bag.Len() != 5 {
		t.Fatalf("count = %d, bag = %d", out.Count, bag.Len())
	}
}
