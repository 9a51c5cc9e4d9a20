package driver

import (
	"context"
	"errors"
	"fmt"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/ir"
	"monogen/internal/mono"
	"monogen/internal/observ"
	"monogen/internal/session"
	"monogen/internal/source"
	"monogen/internal/trace"
	"monogen/internal/types"
)

// Options configures one resolution.
type Options struct {
	Session session.Options
	Cfg     *cfg.Env
	// Entries names the root functions by path; empty means the program's
	// own entry list.
	Entries []string
	// Library roots every concrete active function instead of entry points.
	Library bool
	// SkipLowering stops after the end-of-compilation checks.
	SkipLowering bool
	Timings      bool
	Observer     PhaseObserver
}

// Result is the outcome of resolving one program.
type Result struct {
	Name        string
	Types       *types.Interner
	Instances   []*mono.Instance
	IR          *ir.Program
	Diagnostics *diag.Bag
	Timing      *observ.Report
}

// HasErrors reports whether any error diagnostic was produced.
func (r *Result) HasErrors() bool {
	return r != nil && r.Diagnostics.HasErrors()
}

// Resolve materializes everything reachable from the program's roots and
// lowers the result. User errors are diagnostics; err is reserved for a
// cancelled context.
func Resolve(ctx context.Context, prog *ast.Program, opts Options) (res *Result, err error) {
	tracer := trace.Labeled(trace.FromContext(ctx), prog.Name)
	sess := session.New(prog, opts.Cfg, tracer, opts.Session)
	res = &Result{Name: prog.Name, Types: prog.Types, Diagnostics: sess.Diagnostics()}

	span := trace.Begin(tracer, trace.ScopeDriver, "resolve", trace.CurrentSpan(ctx)).WithExtra("program", prog.Name)
	ctx = trace.WithSpan(ctx, span)
	timer := observ.NewTimer()
	defer func() {
		if r := recover(); r != nil {
			ice, ok := r.(*types.InternalError)
			if !ok {
				panic(r)
			}
			reportInternal(res.Diagnostics, ice)
			res.IR = nil
		}
		report := timer.Report()
		res.Timing = &report
		if opts.Timings {
			reportTimings(res.Diagnostics, prog.Name, report)
		}
		span.End(fmt.Sprintf("%d instances", len(res.Instances)))
	}()

	engine := mono.New(sess)
	phase := newPhaseRunner(timer, opts.Observer)

	var roots []*ast.Item
	phase.run("entries", func() string {
		roots = collectRoots(sess, opts)
		return fmt.Sprintf("%d roots", len(roots))
	})

	phase.run("materialize", func() string {
		for _, fn := range roots {
			if ctx.Err() != nil {
				return "cancelled"
			}
			itemSpan := trace.Begin(tracer, trace.ScopeItem, prog.Path(fn.ID), trace.CurrentSpan(ctx))
			_, ok := engine.Materialize(trace.WithSpan(ctx, itemSpan), mono.Request{Item: fn.ID, Edge: mono.EdgeRoot, Span: fn.Span})
			itemSpan.End(fmt.Sprintf("ok=%t", ok))
		}
		return fmt.Sprintf("%d entries", engine.Len())
	})
	if err := ctx.Err(); err != nil {
		return res, err
	}

	phase.run("finish", func() string {
		engine.Finish(ctx)
		res.Instances = engine.Instances()
		return fmt.Sprintf("%d instances", len(res.Instances))
	})

	if opts.SkipLowering || res.Diagnostics.HasFatal() {
		return res, nil
	}
	phase.run("lower", func() string {
		p, lerr := ir.LowerProgram(ctx, sess, engine, res.Instances)
		if lerr != nil {
			reportLowering(sess, lerr)
			return "failed"
		}
		if verr := ir.Validate(p, sess.Types, engine); verr != nil {
			reportLowering(sess, verr)
			return "invalid"
		}
		res.IR = p
		return fmt.Sprintf("%d funcs", len(p.Funcs))
	})
	return res, nil
}

// collectRoots picks the root functions of the compilation.
func collectRoots(sess *session.Session, opts Options) []*ast.Item {
	prog := sess.Program
	if opts.Library {
		return libraryRoots(sess)
	}
	if len(opts.Entries) > 0 {
		var out []*ast.Item
		for _, name := range opts.Entries {
			it := findItem(prog, name)
			if it == nil {
				diag.ReportError(sess, diag.MonoMissingEntry, source.NoSpan,
					fmt.Sprintf("entry point `%s` not found", name)).Emit()
				continue
			}
			if !sess.Active(it.Cfg) {
				diag.ReportError(sess, diag.MonoMissingEntry, it.Span,
					fmt.Sprintf("entry point `%s` is disabled by cfg", name)).
					WithNote(it.Cfg.Span, "cfg("+it.Cfg.String()+") is false").Emit()
				continue
			}
			if validEntry(sess, it) {
				out = append(out, it)
			}
		}
		return out
	}
	var out []*ast.Item
	for _, id := range prog.Entries {
		it := prog.Item(id)
		if it == nil || !sess.Active(it.Cfg) {
			continue
		}
		if validEntry(sess, it) {
			out = append(out, it)
		}
	}
	if len(out) == 0 && len(prog.Entries) == 0 {
		diag.ReportError(sess, diag.MonoMissingEntry, source.NoSpan,
			fmt.Sprintf("program `%s` has no entry point", prog.Name)).Emit()
	}
	return out
}

func validEntry(sess *session.Session, it *ast.Item) bool {
	name := sess.Program.Path(it.ID)
	if it.Kind != ast.ItemFn {
		diag.ReportError(sess, diag.MonoNotAFunction, it.Span,
			fmt.Sprintf("entry point `%s` is a %s, not a function", name, it.Kind)).Emit()
		return false
	}
	if len(sess.Program.Generics(it.ID)) > 0 {
		diag.ReportError(sess, diag.MonoGenericEntry, it.Span,
			fmt.Sprintf("entry point `%s` must not be generic", name)).Emit()
		return false
	}
	return true
}

// libraryRoots lists every active non-generic function with a body, and every
// active non-generic static and const.
func libraryRoots(sess *session.Session) []*ast.Item {
	var out []*ast.Item
	for _, it := range sess.Program.Items {
		if it == nil || !(it.Kind == ast.ItemFn && it.Body != nil || it.Kind.IsGlobal()) {
			continue
		}
		if len(sess.Program.Generics(it.ID)) > 0 || !activeChain(sess, it) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func activeChain(sess *session.Session, it *ast.Item) bool {
	for it != nil {
		if !sess.Active(it.Cfg) {
			return false
		}
		it = sess.Program.Item(it.Owner)
	}
	return true
}

func findItem(prog *ast.Program, path string) *ast.Item {
	for _, it := range prog.Items {
		if it != nil && prog.Path(it.ID) == path {
			return it
		}
	}
	return nil
}

func reportInternal(bag *diag.Bag, ice *types.InternalError) {
	code := ice.Code
	if !code.IsInternal() {
		code = diag.InternalError
	}
	bag.Add(diag.NewError(code, source.NoSpan, ice.Error()).
		WithNote(source.NoSpan, "this is a bug in the resolver, not in the program"))
}

type spanned interface {
	Span() source.Span
}

// reportLowering turns lowering errors into internal diagnostics, one per
// function.
func reportLowering(sess *session.Session, err error) {
	errs := []error{err}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	}
	for _, e := range errs {
		span := source.NoSpan
		var sp spanned
		if errors.As(e, &sp) {
			span = sp.Span()
		}
		diag.ReportError(sess, diag.InternalLowering, span, e.Error()).Emit()
	}
}
