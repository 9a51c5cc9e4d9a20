package trace

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelProgram, ScopeDriver, true},
		{LevelProgram, ScopePass, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeItem, false},
		{LevelDetail, ScopeItem, true},
		{LevelDetail, ScopeInstance, false},
		{LevelDebug, ScopeInstance, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s/%s: got %v", tc.level, tc.scope, got)
		}
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatText)
	ctx := WithTracer(context.Background(), tr)
	span := Begin(FromContext(ctx), ScopePass, "resolve", 0)
	Point(tr, ScopeInstance, "cache-hit", "identity<i32>", span.ID())
	span.WithExtra("instances", "2").End("ok")
	out := buf.String()
	for _, want := range []string{"→ resolve", "• cache-hit (identity<i32>)", "← resolve (ok) {instances=2}"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in trace output:\n%s", want, out)
		}
	}
}

func TestRingTracerWraps(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(ring, ScopePass, name, "", 0)
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected ring contents %+v", snap)
	}
}

func TestRingSnapshotFiltersPrograms(t *testing.T) {
	ring := NewRingTracer(3, LevelDebug)
	for i, prog := range []string{"a", "b", "a", "b"} {
		Point(Labeled(ring, prog), ScopePass, fmt.Sprintf("p%d", i), "", 0)
	}
	if got := ring.Dropped(); got != 1 {
		t.Fatalf("dropped = %d", got)
	}
	snap := ring.Snapshot("b")
	if len(snap) != 2 || snap[0].Name != "p1" || snap[1].Name != "p3" {
		t.Fatalf("program b events = %+v", snap)
	}
	var buf bytes.Buffer
	if err := ring.Dump(&buf, FormatNDJSON, "a"); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); strings.Count(out, "\n") != 1 || !strings.Contains(out, `"name":"p2"`) {
		t.Fatalf("dump = %q", out)
	}
}

func TestFindRing(t *testing.T) {
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if FindRing(Labeled(tr, "demo")) == nil {
		t.Fatalf("ring hidden behind label and fan-out")
	}
	stream, err := New(Config{Level: LevelPhase, Mode: ModeStream, Output: &bytes.Buffer{}})
	if err != nil {
		t.Fatal(err)
	}
	if FindRing(stream) != nil || FindRing(Nop) != nil {
		t.Fatalf("stream tracer has no ring")
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []StorageMode{ModeStream, ModeRing, ModeBoth} {
		got, err := ParseMode(strings.ToUpper(mode.String()))
		if err != nil || got != mode {
			t.Fatalf("ParseMode(%s) = %v, %v", mode, got, err)
		}
	}
	if _, err := ParseMode("tape"); err == nil {
		t.Fatalf("expected an error")
	}
}

func TestDisabledTracerIsNop(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatal(err)
	}
	if tr.Enabled() {
		t.Fatalf("off level must produce a disabled tracer")
	}
	if Begin(tr, ScopeDriver, "x", 0).End("") != 0 {
		t.Fatalf("nop span must report zero duration")
	}
}

func TestLabeledStampsProgram(t *testing.T) {
	var buf bytes.Buffer
	tr := Labeled(NewStreamTracer(&buf, LevelDebug, FormatNDJSON), "demo")
	Point(tr, ScopeInstance, "hit", "identity<i32>", 0)
	if !strings.Contains(buf.String(), `"program":"demo"`) {
		t.Fatalf("missing program label:\n%s", buf.String())
	}
	if Labeled(Nop, "demo").Enabled() {
		t.Fatalf("labeling a disabled tracer must stay disabled")
	}
}
