package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const demoProgram = `entries: [main]
items:
  - fn: identity
    generics: [T]
    params: {x: T}
    result: T
    body: x
  - fn: main
    result: i32
    body:
      block:
        - let: a
          value: {call: identity, args: [1], types: [i32]}
        - do: {call: identity, args: [true]}
      result: a
`

type fixture struct {
	dir, config string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "monogen.toml")
	if err := os.WriteFile(config, []byte("[resolve]\nmax_depth = 32\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return fixture{dir: dir, config: config}
}

func (f fixture) write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func (f fixture) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color", "off", "--config", f.config}, args...))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestResolveCommand(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "demo.yaml", demoProgram)

	out, errOut, err := f.run(t, "resolve", "--ui", "off", "--format", "short", "--dump-ir", path)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, errOut)
	}
	if !strings.Contains(out, "funcs=3") {
		t.Fatalf("missing IR dump:\n%s", out)
	}
	if !strings.Contains(errOut, "ok demo: 3 instances") {
		t.Fatalf("missing status line:\n%s", errOut)
	}
}

func TestResolveCommandFailsOnErrors(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "bad.yaml", "entries: [nope]\nitems: []\n")

	out, _, err := f.run(t, "resolve", "--ui", "off", "--format", "short", "--quiet", path)
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if !strings.Contains(out, "IO6002") {
		t.Fatalf("missing loader diagnostic:\n%s", out)
	}
}

func TestRingTraceDumpsFailedPrograms(t *testing.T) {
	f := newFixture(t)
	good := f.write(t, "good.yaml", demoProgram)
	bad := f.write(t, "demo.yaml", demoProgram)

	_, errOut, err := f.run(t, "--trace-mode", "ring", "--trace-level", "phase",
		"resolve", "--ui", "off", "--quiet", "--entry", "nope", bad)
	if !errors.Is(err, errFailed) {
		t.Fatalf("err = %v, want errFailed", err)
	}
	if !strings.Contains(errOut, "demo: → resolve") {
		t.Fatalf("missing ring dump:\n%s", errOut)
	}

	_, errOut, err = f.run(t, "--trace-mode", "ring", "--trace-level", "phase",
		"resolve", "--ui", "off", "--quiet", good)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strings.Contains(errOut, "→ resolve") {
		t.Fatalf("ring dumped for a passing program:\n%s", errOut)
	}
}

func TestResolveCommandJSONAndEmit(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "demo.yaml", demoProgram)
	irPath := filepath.Join(f.dir, "demo.msgpack")

	out, errOut, err := f.run(t, "resolve", "--format", "json", "--emit-ir", irPath, path)
	if err != nil {
		t.Fatalf("resolve: %v\n%s", err, errOut)
	}
	var doc struct {
		Files []struct {
			Program   string `json:"program"`
			Instances []struct {
				Name string `json:"name"`
			} `json:"instances"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(doc.Files) != 1 || doc.Files[0].Program != "demo" || len(doc.Files[0].Instances) != 3 {
		t.Fatalf("doc = %+v", doc)
	}
	if info, err := os.Stat(irPath); err != nil || info.Size() == 0 {
		t.Fatalf("emitted IR: %v", err)
	}
}

func TestResolveOptionsLayering(t *testing.T) {
	f := newFixture(t)
	root := newRootCmd()
	resolve, _, err := root.Find([]string{"resolve"})
	if err != nil {
		t.Fatal(err)
	}
	if err := resolve.ParseFlags([]string{
		"--config", f.config, "--cfg", "os=linux", "--cfg", "unix", "--debug",
		"--max-diagnostics", "7", "--entry", "start",
	}); err != nil {
		t.Fatal(err)
	}
	conf, err := loadConfig(resolve)
	if err != nil {
		t.Fatal(err)
	}
	opts, err := resolveOptions(resolve, conf)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Session.MaxDepth != 32 || opts.Session.MaxDiagnostics != 7 {
		t.Fatalf("session = %+v", opts.Session)
	}
	if want := []string{"debug", "os=linux", "unix"}; !slices.Equal(opts.Cfg.Entries(), want) {
		t.Fatalf("cfg = %v, want %v", opts.Cfg.Entries(), want)
	}
	if !slices.Equal(opts.Entries, []string{"start"}) {
		t.Fatalf("entries = %v", opts.Entries)
	}
}

func TestReadToggle(t *testing.T) {
	cases := map[string]toggleMode{"": toggleAuto, "AUTO": toggleAuto, "on": toggleOn, " off ": toggleOff}
	for in, want := range cases {
		got, err := readToggle("ui", in)
		if err != nil || got != want {
			t.Fatalf("readToggle(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readToggle("ui", "sometimes"); err == nil {
		t.Fatal("expected an error")
	}
}

func TestVersionCommand(t *testing.T) {
	f := newFixture(t)
	out, _, err := f.run(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"tool": "monogen"`) {
		t.Fatalf("version output:\n%s", out)
	}
}
