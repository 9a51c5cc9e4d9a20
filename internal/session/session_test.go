package session

import (
	"testing"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/source"
	"monogen/internal/types"
)

func newTestSession(env *cfg.Env) *Session {
	b := ast.NewBuilder("test", nil, nil)
	return New(b.Program(), env, nil, Options{})
}

func TestOverlayDiscardLeavesNoTrace(t *testing.T) {
	s := newTestSession(nil)
	mark := s.ErrorMark()
	o := s.PushOverlay()
	diag.ReportError(s, diag.ChkTypeMismatch, source.NoSpan, "speculative").Emit()
	dropped := s.Discard(o)
	if len(dropped) != 1 {
		t.Fatalf("expected the dropped diagnostic back, got %d", len(dropped))
	}
	if s.Diagnostics().Len() != 0 || s.ErrorMark() != mark {
		t.Fatalf("discarded overlay leaked: len=%d mark=%d", s.Diagnostics().Len(), s.ErrorMark())
	}
}

func TestNestedOverlaysCloseInOrder(t *testing.T) {
	s := newTestSession(nil)
	outer := s.PushOverlay()
	diag.ReportError(s, diag.ChkTypeMismatch, source.NoSpan, "outer").Emit()
	inner := s.PushOverlay()
	diag.ReportError(s, diag.ChkTypeMismatch, source.NoSpan, "inner").Emit()

	func() {
		defer func() {
			if _, ok := recover().(*types.InternalError); !ok {
				t.Fatalf("closing the outer overlay first must raise an internal error")
			}
		}()
		s.Discard(outer)
	}()

	if got := s.Discard(inner); len(got) != 1 || got[0].Message != "inner" {
		t.Fatalf("inner overlay returned %+v", got)
	}
	if got := s.Discard(outer); len(got) != 1 || got[0].Message != "outer" {
		t.Fatalf("outer overlay returned %+v", got)
	}
	if s.Diagnostics().Len() != 0 || s.HasErrors() || s.ErrorMark() != 0 {
		t.Fatalf("discarded overlays leaked into the root")
	}
}

func TestRootDeduplicates(t *testing.T) {
	s := newTestSession(nil)
	for range 3 {
		diag.ReportError(s, diag.InfAmbiguousType, source.Span{File: 1, Start: 2, End: 3}, "cannot infer T").Emit()
	}
	if got := s.Diagnostics().Len(); got != 1 {
		t.Fatalf("expected 1 diagnostic after dedup, got %d", got)
	}
}

func TestActiveReportsInvalidPredicate(t *testing.T) {
	env := cfg.NewEnv()
	env.AddFlag("debug")
	s := newTestSession(env)
	if !s.Active(cfg.Key("debug")) || s.Active(cfg.Not(cfg.Key("debug"))) {
		t.Fatalf("unexpected cfg evaluation")
	}
	bad := &cfg.Predicate{Op: cfg.OpNot}
	if s.Active(bad) {
		t.Fatalf("malformed predicate must be inactive")
	}
	items := s.Diagnostics().Items()
	if len(items) != 1 || items[0].Code != diag.CfgInvalidPredicate {
		t.Fatalf("expected CfgInvalidPredicate, got %+v", items)
	}
}

func TestDefaults(t *testing.T) {
	s := newTestSession(nil)
	if s.Opts.MaxDepth != DefaultMaxDepth {
		t.Fatalf("MaxDepth = %d", s.Opts.MaxDepth)
	}
}
