// Package infer derives the type arguments of a generic call from its
// argument types, explicit type arguments and the expected result type.
package infer

import (
	"context"
	"errors"
	"fmt"

	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/session"
	"monogen/internal/source"
	"monogen/internal/types"
)

// BoundChecker enforces protocol bounds on inferred arguments. Require reports
// a diagnostic itself when the candidate does not conform.
type BoundChecker interface {
	Require(ctx context.Context, candidate types.TypeID, bound ast.Bound, span source.Span) bool
}

// CallSite describes one call of a generic function.
type CallSite struct {
	Span source.Span
	// Seeds fixes the leading placeholders: owner arguments taken from a
	// method receiver followed by explicit type arguments.
	Seeds    []types.TypeID
	Args     []types.TypeID // NoTypeID when an argument's type is not known yet
	ArgSpans []source.Span
	Expected types.TypeID // NoTypeID when the context expects nothing
}

func (c CallSite) argSpan(i int) source.Span {
	if i < len(c.ArgSpans) {
		return c.ArgSpans[i]
	}
	return c.Span
}

// Engine runs inference for a session.
type Engine struct {
	sess   *session.Session
	bounds BoundChecker
}

// New creates an inference engine. bounds may be nil to skip bound checks.
func New(sess *session.Session, bounds BoundChecker) *Engine {
	return &Engine{sess: sess, bounds: bounds}
}

// Infer returns the substitution for every placeholder of item. Problems are
// reported through the session and yield ok == false.
func (e *Engine) Infer(ctx context.Context, item ast.ItemID, call CallSite) (subst types.Subst, ok bool) {
	prog := e.sess.Program
	in := e.sess.Types
	fn := prog.Item(item)
	if fn == nil || fn.Kind != ast.ItemFn {
		types.Internalf(diag.InternalError, "infer", "item %d is not a function", item)
	}
	name := prog.Path(item)
	phs := prog.Placeholders(item)

	if len(call.Seeds) > len(phs) {
		diag.ReportError(e.sess, diag.InfTypeArgCount, call.Span,
			fmt.Sprintf("`%s` takes %d type arguments, got %d", name, len(phs), len(call.Seeds))).Emit()
		return types.Subst{}, false
	}
	if len(call.Args) != len(fn.Params) {
		diag.ReportError(e.sess, diag.InfArityMismatch, call.Span,
			fmt.Sprintf("`%s` expects %d arguments, got %d", name, len(fn.Params), len(call.Args))).
			WithNote(fn.Span, "declared here").Emit()
		return types.Subst{}, false
	}

	u := NewUnifier(in, phs)
	for i, seed := range call.Seeds {
		if err := u.Unify(phs[i], seed); err != nil {
			types.Internalf(diag.InternalError, "infer", "seeding fresh slot %d of %s failed", i, name)
		}
	}

	ok = true
	for i, arg := range call.Args {
		if arg == types.NoTypeID || in.IsDivergent(arg) {
			continue
		}
		param := fn.Params[i].Type
		if err := e.unifyArg(u, param, arg); err != nil {
			e.reportMismatch(u, err, call.argSpan(i), name, fn.Params[i].Name)
			ok = false
		}
	}
	if !ok {
		return types.Subst{}, false
	}

	if call.Expected != types.NoTypeID && !in.IsDivergent(call.Expected) {
		trial := u.Clone()
		if trial.Unify(fn.Result, call.Expected) == nil {
			u = trial
		}
	}

	args := make([]types.TypeID, len(phs))
	generics := prog.Generics(item)
	for i, ph := range phs {
		v, solved := u.Value(ph)
		if !solved {
			diag.ReportError(e.sess, diag.InfAmbiguousType, call.Span,
				fmt.Sprintf("cannot infer type for generic parameter `%s` of `%s`", generics[i].Name, name)).
				WithNote(generics[i].Span, "add explicit type arguments or annotate the value").Emit()
			ok = false
			continue
		}
		args[i] = v
	}
	if !ok {
		return types.Subst{}, false
	}
	subst = types.NewSubst(phs, args)
	if !e.CheckBounds(ctx, item, subst, call.Span) {
		return types.Subst{}, false
	}
	return subst, true
}

// CheckBounds validates every declared bound of item under subst.
func (e *Engine) CheckBounds(ctx context.Context, item ast.ItemID, subst types.Subst, span source.Span) bool {
	if e.bounds == nil {
		return true
	}
	sub := e.sess.Types.Substituter(subst)
	ok := true
	for i, g := range e.sess.Program.Generics(item) {
		for _, bd := range g.Bounds {
			concrete := ast.Bound{Protocol: bd.Protocol, Args: sub.ApplyAll(bd.Args), Span: bd.Span}
			if !e.bounds.Require(ctx, subst.Args[i], concrete, span) {
				ok = false
			}
		}
	}
	return ok
}

// unifyArg relates an argument type to a parameter pattern, allowing the
// coercions a call applies: &mut T to &T and &[T; N] to &[T].
func (e *Engine) unifyArg(u *Unifier, param, arg types.TypeID) error {
	in := e.sess.Types
	pt, okP := in.Lookup(u.Resolve(param))
	at, okA := in.Lookup(arg)
	if okP && okA && pt.Kind == types.KindPointer && at.Kind == types.KindPointer {
		if pt.Mutable && !at.Mutable {
			return &Mismatch{Want: param, Got: arg}
		}
		pe, okPE := in.Lookup(pt.Elem)
		ae, okAE := in.Lookup(at.Elem)
		if okPE && okAE && pe.Kind == types.KindSlice && ae.Kind == types.KindArray {
			return u.Unify(pe.Elem, ae.Elem)
		}
		return u.Unify(pt.Elem, at.Elem)
	}
	return u.Unify(param, arg)
}

func (e *Engine) reportMismatch(u *Unifier, err error, span source.Span, fnName, paramName string) {
	in := e.sess.Types
	var mm *Mismatch
	if !errors.As(err, &mm) {
		types.Internalf(diag.InternalError, "infer", "unexpected unification error: %v", err)
	}
	var msg string
	if mm.Slot != types.NoTypeID {
		msg = fmt.Sprintf("conflicting types for `%s`: `%s` and `%s`",
			in.PlaceholderName(mm.Slot), in.Label(u.Resolve(mm.Want)), in.Label(u.Resolve(mm.Got)))
	} else {
		msg = fmt.Sprintf("argument `%s` of `%s`: expected `%s`, found `%s`",
			paramName, fnName, in.Label(u.Resolve(mm.Want)), in.Label(mm.Got))
	}
	diag.ReportError(e.sess, diag.InfUnificationFailure, span, msg).Emit()
}
