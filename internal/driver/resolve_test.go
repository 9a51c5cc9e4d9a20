package driver

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/program"
	"monogen/internal/testkit"
	"monogen/internal/types"
)

const identitySrc = `name: demo
entries: [main]
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

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, bag, err := program.Parse("test", []byte(src), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if bag.HasErrors() {
		t.Fatalf("loader diagnostics: %v", bag.Items())
	}
	return prog
}

func instanceNames(res *Result) []string {
	out := make([]string, 0, len(res.Instances))
	for _, inst := range res.Instances {
		out = append(out, inst.Name)
	}
	slices.Sort(out)
	return out
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.Items() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestResolveProgram(t *testing.T) {
	res, err := Resolve(context.Background(), parseProgram(t, identitySrc), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.Items())
	}
	want := []string{"identity<bool>", "identity<i32>", "main"}
	if got := instanceNames(res); !slices.Equal(got, want) {
		t.Fatalf("instances = %v, want %v", got, want)
	}
	if res.IR == nil || len(res.IR.Funcs) != 3 {
		t.Fatalf("ir = %+v", res.IR)
	}
	if err := testkit.CheckInstances(res.Types, res.Instances); err != nil {
		t.Fatalf("instances: %v", err)
	}
	if err := testkit.CheckProgram(res.IR, res.Types, nil, res.Instances); err != nil {
		t.Fatalf("ir: %v", err)
	}
}

func TestResolveEntryDiagnostics(t *testing.T) {
	cases := []struct {
		name    string
		src     string
		entries []string
		code    diag.Code
	}{
		{"missing named entry", identitySrc, []string{"nope"}, diag.MonoMissingEntry},
		{"generic entry", identitySrc, []string{"identity"}, diag.MonoGenericEntry},
		{"no entries at all", "items:\n  - fn: f\n    body: 1\n", nil, diag.MonoMissingEntry},
		{"struct entry", "items:\n  - struct: S\n", []string{"S"}, diag.MonoNotAFunction},
		{"disabled entry", "items:\n  - fn: f\n    cfg: never_set\n    body: 1\n", []string{"f"}, diag.MonoMissingEntry},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Resolve(context.Background(), parseProgram(t, tc.src), Options{Entries: tc.entries})
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !hasCode(res.Diagnostics, tc.code) {
				t.Fatalf("missing %v in %v", tc.code, res.Diagnostics.Items())
			}
		})
	}
}

func TestResolveLibraryMode(t *testing.T) {
	src := `items:
  - fn: identity
    generics: [T]
    params: {x: T}
    result: T
    body: x
  - fn: exported
    result: bool
    body: {call: identity, args: [false]}
  - fn: unix_only
    cfg: unix
    body: null
  - fn: extern_decl
    params: {n: i32}
`
	res, err := Resolve(context.Background(), parseProgram(t, src), Options{Library: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.Items())
	}
	want := []string{"exported", "identity<bool>"}
	if got := instanceNames(res); !slices.Equal(got, want) {
		t.Fatalf("instances = %v, want %v", got, want)
	}

	env := cfg.NewEnv()
	env.AddFlag("unix")
	res, err = Resolve(context.Background(), parseProgram(t, src), Options{Library: true, Cfg: env})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want = []string{"exported", "identity<bool>", "unix_only"}
	if got := instanceNames(res); !slices.Equal(got, want) {
		t.Fatalf("with unix: instances = %v, want %v", got, want)
	}
}

func TestResolveTimingsAndPhases(t *testing.T) {
	var mu sync.Mutex
	var started []string
	obs := func(ev PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Status == PhaseStart {
			started = append(started, ev.Name)
		}
	}
	res, err := Resolve(context.Background(), parseProgram(t, identitySrc), Options{Timings: true, Observer: obs})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if want := []string{"entries", "materialize", "finish", "lower"}; !slices.Equal(started, want) {
		t.Fatalf("phases = %v, want %v", started, want)
	}
	if res.Timing == nil || len(res.Timing.Phases) != 4 {
		t.Fatalf("timing = %+v", res.Timing)
	}
	if !hasCode(res.Diagnostics, diag.ObsTimings) || res.HasErrors() {
		t.Fatalf("diagnostics = %v", res.Diagnostics.Items())
	}
	for _, d := range res.Diagnostics.Items() {
		if d.Code != diag.ObsTimings {
			continue
		}
		if !strings.HasPrefix(d.Message, "resolved demo in ") || len(d.Notes) != 4 {
			t.Fatalf("timing diagnostic = %+v", d)
		}
		if !strings.HasPrefix(d.Notes[1].Msg, "materialize") || !strings.Contains(d.Notes[1].Msg, " ms") {
			t.Fatalf("materialize note = %q", d.Notes[1].Msg)
		}
	}
}

func TestResolveSkipLowering(t *testing.T) {
	res, err := Resolve(context.Background(), parseProgram(t, identitySrc), Options{SkipLowering: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.IR != nil || len(res.Instances) != 3 {
		t.Fatalf("ir = %v, instances = %d", res.IR, len(res.Instances))
	}
}

func TestResolveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Resolve(ctx, parseProgram(t, identitySrc), Options{}); err == nil {
		t.Fatalf("expected a cancellation error")
	}
}

func TestReportInternal(t *testing.T) {
	bag := diag.NewBag(0)
	reportInternal(bag, &types.InternalError{Code: diag.MonoInfo, Op: "subst", Detail: "unbound placeholder"})
	items := bag.Items()
	if len(items) != 1 || items[0].Code != diag.InternalError || !items[0].IsFatal() {
		t.Fatalf("diagnostics = %+v", items)
	}
	if !strings.Contains(items[0].Message, "unbound placeholder") {
		t.Fatalf("message = %q", items[0].Message)
	}
}

func TestSummarize(t *testing.T) {
	res, err := Resolve(context.Background(), parseProgram(t, identitySrc), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	s, err := Summarize(res)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(s.Instances) != 3 || s.HasErrors() {
		t.Fatalf("summary = %+v", s)
	}
	if !strings.Contains(s.IRText, "funcs=3") || len(s.IRBinary) == 0 {
		t.Fatalf("ir text = %q, %d bytes", s.IRText, len(s.IRBinary))
	}
}

func TestResolveFilesUsesCache(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "demo.yaml")
	if err := os.WriteFile(good, []byte(identitySrc), 0o600); err != nil {
		t.Fatal(err)
	}
	cache, err := NewResultCache(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	loads := 0
	opts := FileOptions{Jobs: 2, Cache: cache, OnFile: func(path string, ev PhaseEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Name == "load" && ev.Status == PhaseStart {
			loads++
		}
	}}
	paths := []string{good, filepath.Join(dir, "missing.yaml")}

	first, err := ResolveFiles(context.Background(), paths, opts)
	if err != nil {
		t.Fatalf("resolve files: %v", err)
	}
	if first[0].Err != nil || first[0].Summary == nil || first[0].Summary.Cached {
		t.Fatalf("first run = %+v", first[0])
	}
	if first[1].Err == nil {
		t.Fatalf("missing file resolved")
	}

	second, err := ResolveFiles(context.Background(), paths[:1], opts)
	if err != nil {
		t.Fatalf("resolve files: %v", err)
	}
	s := second[0].Summary
	if s == nil || !s.Cached || second[0].CacheErr != nil {
		t.Fatalf("second run = %+v", second[0])
	}
	if s.IRText != first[0].Summary.IRText || len(s.Instances) != 3 {
		t.Fatalf("cached summary differs")
	}
	if loads != 3 {
		t.Fatalf("load events = %d", loads)
	}

	other := opts
	other.Library = true
	third, err := ResolveFiles(context.Background(), paths[:1], other)
	if err != nil {
		t.Fatalf("resolve files: %v", err)
	}
	if third[0].Summary.Cached {
		t.Fatalf("options change reused the cached result")
	}
}

func TestResolveFilesReportsLoaderErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("items:\n  - fn: f\n    body: nope\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	results, err := ResolveFiles(context.Background(), []string{path}, FileOptions{})
	if err != nil {
		t.Fatalf("resolve files: %v", err)
	}
	s := results[0].Summary
	if results[0].Err != nil || s == nil || !s.HasErrors() || s.Diagnostics[0].Code != diag.IOProgramInvalid {
		t.Fatalf("result = %+v", results[0])
	}
}

const globalsSrc = `name: globals
entries: [main]
items:
  - alias: Pair
    generics: [T]
    type: (T, T)
  - enum: Tag
    generics: [T]
    variants: [A, B]
  - const: first_tag
    generics: [T]
    type: Tag<T>
    value: {enum: "Tag<T>", variant: A}
  - static: origin
    type: Pair<i32>
    value: {tuple: [0, 0]}
  - static: counter
    type: i32
    mut: true
    value: 0
  - static: host_flags
    type: u32
  - fn: main
    result: i32
    body:
      block:
        - do: {assign: counter, value: {op: "+", l: counter, r: 1}}
        - let: t
          value: {global: first_tag, types: [bool]}
        - let: f
          value: host_flags
      result: {tuple_index: 0, of: origin}
`

func TestResolveGlobals(t *testing.T) {
	res, err := Resolve(context.Background(), parseProgram(t, globalsSrc), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", res.Diagnostics.Items())
	}
	got := instanceNames(res)
	for _, want := range []string{"counter", "first_tag<bool>", "host_flags", "main", "origin"} {
		if !slices.Contains(got, want) {
			t.Fatalf("instances %v lack %s", got, want)
		}
	}
	if res.IR == nil || len(res.IR.Globals) != 4 {
		t.Fatalf("ir = %+v", res.IR)
	}
	if err := testkit.CheckProgram(res.IR, res.Types, nil, res.Instances); err != nil {
		t.Fatalf("ir: %v", err)
	}

	lib, err := Resolve(context.Background(), parseProgram(t, globalsSrc), Options{Library: true})
	if err != nil {
		t.Fatalf("resolve library: %v", err)
	}
	got = instanceNames(lib)
	if !slices.Contains(got, "origin") || slices.Contains(got, "first_tag<bool>") {
		t.Fatalf("library instances = %v", got)
	}
}

func TestResolveDropsCallersOfFailedInstances(t *testing.T) {
	src := `items:
  - fn: a
    body:
      block:
        - do: {call: b}
        - let: z
          type: i32
          value: true
  - fn: b
    body: {call: a}
  - fn: ok
    result: i32
    body: 1
`
	res, err := Resolve(context.Background(), parseProgram(t, src), Options{Library: true, SkipLowering: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !hasCode(res.Diagnostics, diag.MonoFailedInstDep) {
		t.Fatalf("missing %v in %v", diag.MonoFailedInstDep, res.Diagnostics.Items())
	}
	if got := instanceNames(res); !slices.Equal(got, []string{"ok"}) {
		t.Fatalf("instances = %v", got)
	}
}
