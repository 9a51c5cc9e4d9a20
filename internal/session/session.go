// Package session holds the state shared by every phase of one compilation:
// the resolved program, the type interner, the cfg environment, the tracer and
// a stack of diagnostic bags. Speculative work pushes an overlay bag that is
// always discarded, so nothing it reports reaches the root.
package session

import (
	"errors"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/source"
	"monogen/internal/trace"
	"monogen/internal/types"
)

// DefaultMaxDepth bounds nested instantiation.
const DefaultMaxDepth = 64

// Options tunes one compilation.
type Options struct {
	MaxDepth       int
	MaxDiagnostics int // <= 0 means unlimited
}

// Session is the context object threaded through the engine. It is not safe
// for concurrent use; independent programs get independent sessions.
type Session struct {
	Program *ast.Program
	Types   *types.Interner
	Files   *source.FileSet
	Cfg     *cfg.Env
	Tracer  trace.Tracer
	Opts    Options

	root   *diag.Bag
	dedup  *diag.DedupReporter
	bags   []*diag.Bag // overlays, innermost last
	errors int         // error reports seen at any level
}

// New creates a session for prog. A nil env evaluates every cfg key to false.
func New(prog *ast.Program, env *cfg.Env, tracer trace.Tracer, opts Options) *Session {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if env == nil {
		env = cfg.NewEnv()
	}
	if tracer == nil {
		tracer = trace.Nop
	}
	root := diag.NewBag(opts.MaxDiagnostics)
	return &Session{
		Program: prog,
		Types:   prog.Types,
		Files:   prog.Files,
		Cfg:     env,
		Tracer:  tracer,
		Opts:    opts,
		root:    root,
		dedup:   diag.NewDedupReporter(root),
	}
}

// Report implements diag.Reporter. Diagnostics go to the innermost overlay,
// or to the deduplicated root bag when none is active.
func (s *Session) Report(d diag.Diagnostic) {
	if d.Severity >= diag.SevError {
		s.errors++
	}
	s.forward(d)
}

func (s *Session) forward(d diag.Diagnostic) {
	if n := len(s.bags); n > 0 {
		s.bags[n-1].Add(d)
		return
	}
	s.dedup.Report(d)
}

// ErrorMark returns a counter that grows with every reported error. Comparing
// two marks tells whether a piece of work reported anything.
func (s *Session) ErrorMark() int {
	return s.errors
}

// Overlay identifies one pushed overlay bag.
type Overlay int

// PushOverlay starts collecting diagnostics separately from the enclosing level.
func (s *Session) PushOverlay() Overlay {
	s.bags = append(s.bags, diag.NewBag(0))
	return Overlay(len(s.bags))
}

func (s *Session) pop(o Overlay) *diag.Bag {
	if int(o) != len(s.bags) {
		types.Internalf(diag.InternalError, "session", "overlay %d closed while %d is innermost", o, len(s.bags))
	}
	top := s.bags[len(s.bags)-1]
	s.bags = s.bags[:len(s.bags)-1]
	return top
}

// Discard closes the overlay and drops what it collected.
func (s *Session) Discard(o Overlay) []diag.Diagnostic {
	top := s.pop(o)
	s.errors -= countErrors(top)
	return top.Items()
}

func countErrors(b *diag.Bag) int {
	n := 0
	for _, d := range b.Items() {
		if d.Severity >= diag.SevError {
			n++
		}
	}
	return n
}

// Diagnostics returns the root bag.
func (s *Session) Diagnostics() *diag.Bag {
	return s.root
}

// HasErrors reports committed errors.
func (s *Session) HasErrors() bool {
	return s.root.HasErrors()
}

// Active evaluates an optional cfg predicate. Malformed predicates are
// reported and count as inactive.
func (s *Session) Active(p *cfg.Predicate) bool {
	if p == nil {
		return true
	}
	ok, err := s.Cfg.Eval(p)
	if err != nil {
		span := p.Span
		var invalid *cfg.InvalidError
		if errors.As(err, &invalid) && invalid.Span != source.NoSpan {
			span = invalid.Span
		}
		diag.ReportError(s, diag.CfgInvalidPredicate, span, err.Error()).Emit()
		return false
	}
	return ok
}
