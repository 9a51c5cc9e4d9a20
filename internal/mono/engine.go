// Package mono turns generic items into concrete instances. Every request is
// keyed by (item, substitution); the cache records each key as Pending, Done
// or Failed. A cycle that passes through at least one pointer, call or static
// resolves to a forward reference. A cycle made only of value edges is an
// infinite-size error, or a self-dependent constant. Speculative requests run
// in transactions that are always rolled back.
package mono

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/benbjohnson/immutable"

	"monogen/internal/ast"
	"monogen/internal/conform"
	"monogen/internal/diag"
	"monogen/internal/infer"
	"monogen/internal/session"
	"monogen/internal/source"
	"monogen/internal/trace"
	"monogen/internal/types"
)

// frame is one instantiation in progress. edge is how its requester reached it.
type frame struct {
	key   Key
	name  string
	edge  Edge
	subst types.Subst
	span  uint64
}

// Engine is the monomorphization engine of one session.
type Engine struct {
	sess  *session.Session
	prog  *ast.Program
	types *types.Interner
	conf  *conform.Checker
	infer *infer.Engine

	cache   *immutable.SortedMap // Key.String() -> *Entry
	refs    *immutable.List      // reference, one per resolved dependency
	layouts *immutable.SortedMap // int(TypeID) -> []Field

	stack []frame
}

// New wires an engine together with its conformance checker and inference
// engine.
func New(sess *session.Session) *Engine {
	e := &Engine{
		sess:    sess,
		prog:    sess.Program,
		types:   sess.Types,
		cache:   immutable.NewSortedMap(nil),
		refs:    immutable.NewList(),
		layouts: immutable.NewSortedMap(nil),
	}
	e.conf = conform.New(sess, e)
	e.infer = infer.New(sess, e.conf)
	return e
}

// Session returns the session the engine works in.
func (e *Engine) Session() *session.Session { return e.sess }

// Conform returns the conformance checker used by the engine.
func (e *Engine) Conform() *conform.Checker { return e.conf }

// Infer returns the inference engine used by the engine.
func (e *Engine) Infer() *infer.Engine { return e.infer }

// Lookup returns the cache entry for key.
func (e *Engine) Lookup(key Key) (*Entry, bool) {
	v, ok := e.cache.Get(key.String())
	if !ok {
		return nil, false
	}
	return v.(*Entry), true
}

func (e *Engine) store(ent *Entry) {
	e.cache = e.cache.Set(ent.Key.String(), ent)
}

// Len reports the number of cache entries.
func (e *Engine) Len() int {
	return e.cache.Len()
}

func (e *Engine) parentSpan(ctx context.Context) uint64 {
	if n := len(e.stack); n > 0 {
		return e.stack[n-1].span
	}
	return trace.CurrentSpan(ctx)
}

// Materialize returns the instance for req, building it on first use.
func (e *Engine) Materialize(ctx context.Context, req Request) (Ref, bool) {
	if req.Speculative {
		tx := e.begin()
		defer e.rollback(ctx, tx)
	}
	return e.materialize(ctx, req)
}

// Trial speculatively checks that a function can be instantiated with subst.
// It satisfies conform.Instantiator.
func (e *Engine) Trial(ctx context.Context, item ast.ItemID, subst types.Subst, span source.Span) (string, bool) {
	ref, ok := e.Materialize(ctx, Request{
		Item:        item,
		Subst:       subst,
		Edge:        EdgeCall,
		Span:        span,
		Speculative: true,
		Shallow:     true,
	})
	return ref.Symbol, ok
}

// keyFor canonicalizes the request's substitution and derives its key.
// Placeholders of the enclosing instantiation that still occur in the
// arguments are resolved first, so equal substitutions share one key however
// they were spelled.
func (e *Engine) keyFor(req Request) (*ast.Item, types.Subst, Key) {
	item := e.prog.Item(req.Item)
	if item == nil {
		types.Internalf(diag.InternalError, "materialize", "unknown item %d", req.Item)
	}
	phs := e.prog.Placeholders(req.Item)
	if req.Subst.Len() != len(phs) {
		types.Internalf(diag.InternalMissingSubst, "materialize", "`%s` has %d generic parameters, substitution has %d",
			e.prog.Path(req.Item), len(phs), req.Subst.Len())
	}
	subst := types.NewSubst(phs, req.Subst.Args)
	if n := len(e.stack); n > 0 && slices.ContainsFunc(subst.Args, e.types.ContainsPlaceholder) {
		// the item's own placeholders map to themselves and fail below
		scope := e.stack[n-1].subst.Extend(phs, req.Subst.Args)
		subst = e.types.Substituter(scope).Canonicalize(subst)
	}
	for _, a := range subst.Args {
		if a == types.NoTypeID || e.types.ContainsPlaceholder(a) {
			types.Internalf(diag.InternalMissingSubst, "materialize", "non-concrete argument `%s` for `%s`",
				e.types.Label(a), e.prog.Path(req.Item))
		}
	}
	return item, subst, Key{Item: req.Item, Args: subst.Key()}
}

// depend records that the instantiation on top of the stack uses to.
func (e *Engine) depend(to Key, span source.Span, forward bool) {
	n := len(e.stack)
	if n == 0 {
		return
	}
	e.refs = e.refs.Append(reference{From: e.stack[n-1].key, To: to, Span: span, Forward: forward})
}

func (e *Engine) materialize(ctx context.Context, req Request) (Ref, bool) {
	item, subst, key := e.keyFor(req)
	if ent, ok := e.Lookup(key); ok {
		switch ent.State {
		case Done:
			trace.Point(e.sess.Tracer, trace.ScopeInstance, "hit", ent.Name, e.parentSpan(ctx))
			e.depend(key, req.Span, false)
			return Ref{Key: key, Name: ent.Name, Symbol: ent.Symbol, Instance: ent.Instance}, true
		case Failed:
			return Ref{Key: key, Name: ent.Name, Symbol: ent.Symbol}, false
		default:
			return e.reenter(ctx, ent, req)
		}
	}

	name := e.instanceName(item, subst)
	symbol := mangle(name)
	if req.Shallow {
		return e.shallow(ctx, item, subst, Ref{Key: key, Name: name, Symbol: symbol, Deferred: true}, req)
	}
	if len(e.stack) >= e.sess.Opts.MaxDepth {
		b := diag.ReportError(e.sess, diag.MonoDepthLimit, req.Span,
			fmt.Sprintf("instantiation depth limit (%d) reached while instantiating `%s`", e.sess.Opts.MaxDepth, name))
		if n := len(e.stack); n > 0 {
			b.WithNote(req.Span, "required by `"+e.stack[n-1].name+"`")
		}
		b.WithNote(req.Span, "generic recursion must not grow its type arguments without bound").Emit()
		return Ref{}, false
	}

	e.store(&Entry{Key: key, State: Pending, Name: name, Symbol: symbol, Span: req.Span})
	span := trace.Begin(e.sess.Tracer, trace.ScopeInstance, name, e.parentSpan(ctx))
	e.stack = append(e.stack, frame{key: key, name: name, edge: req.Edge, subst: subst, span: span.ID()})
	mark := e.sess.ErrorMark()

	inst, ok := e.build(ctx, item, subst, key, req)

	e.stack = e.stack[:len(e.stack)-1]
	if ok {
		inst.Name, inst.Symbol = name, symbol
		e.store(&Entry{Key: key, State: Done, Name: name, Symbol: symbol, Instance: inst, Span: req.Span})
		e.depend(key, req.Span, false)
		span.End("done")
		return Ref{Key: key, Name: name, Symbol: symbol, Instance: inst}, true
	}
	if e.sess.ErrorMark() == mark {
		// every committed failure carries its own diagnostic
		diag.ReportError(e.sess, diag.MonoFailedInstDep, req.Span,
			fmt.Sprintf("cannot instantiate `%s`", name)).Emit()
	}
	e.store(&Entry{Key: key, State: Failed, Name: name, Symbol: symbol, Span: req.Span})
	span.End("failed")
	return Ref{Key: key, Name: name, Symbol: symbol}, false
}

// reenter handles a request for an entry that is still being built. The
// cycle runs from the pending entry's frame to the top of the stack and
// closes with req; one pointer or call edge anywhere on it gives the type a
// finite size, so the request becomes a forward reference.
func (e *Engine) reenter(ctx context.Context, ent *Entry, req Request) (Ref, bool) {
	start := e.frameOf(ent.Key)
	if req.Edge != EdgeValue || !e.valueCycle(start) {
		e.depend(ent.Key, req.Span, true)
		trace.Point(e.sess.Tracer, trace.ScopeInstance, "forward", ent.Name, e.parentSpan(ctx))
		return Ref{Key: ent.Key, Name: ent.Name, Symbol: ent.Symbol, Deferred: true}, true
	}
	if it := e.prog.Item(ent.Key.Item); it != nil && it.Kind == ast.ItemConst {
		diag.ReportError(e.sess, diag.MonoCyclicConst, req.Span,
			fmt.Sprintf("constant `%s` depends on its own value", ent.Name)).
			WithNote(ent.Span, "cycle: "+e.cyclePath(start)).Emit()
		return Ref{}, false
	}
	diag.ReportError(e.sess, diag.MonoInfiniteSize, req.Span,
		fmt.Sprintf("recursive type `%s` has infinite size", ent.Name)).
		WithNote(ent.Span, "cycle: "+e.cyclePath(start)).
		WithNote(req.Span, "insert a pointer indirection to break the cycle").Emit()
	return Ref{}, false
}

// frameOf finds the stack frame building key, or len(stack) if none does.
func (e *Engine) frameOf(key Key) int {
	for i := len(e.stack) - 1; i >= 0; i-- {
		if e.stack[i].key == key {
			return i
		}
	}
	return len(e.stack)
}

// valueCycle reports whether every frame entered after start was reached
// through a value edge.
func (e *Engine) valueCycle(start int) bool {
	if start >= len(e.stack) {
		return false
	}
	for _, f := range e.stack[start+1:] {
		if f.edge != EdgeValue {
			return false
		}
	}
	return true
}

func (e *Engine) cyclePath(start int) string {
	names := make([]string, 0, len(e.stack)-start+1)
	for _, f := range e.stack[start:] {
		names = append(names, f.name)
	}
	if start < len(e.stack) {
		names = append(names, e.stack[start].name)
	}
	return strings.Join(names, " -> ")
}

func (e *Engine) instanceName(item *ast.Item, subst types.Subst) string {
	name := e.prog.Path(item.ID)
	if len(subst.Args) == 0 {
		return name
	}
	labels := make([]string, len(subst.Args))
	for i, a := range subst.Args {
		labels[i] = e.types.Label(a)
	}
	return name + "<" + strings.Join(labels, ", ") + ">"
}

// Instances returns every finished instance ordered by symbol.
func (e *Engine) Instances() []*Instance {
	var out []*Instance
	it := e.cache.Iterator()
	for !it.Done() {
		_, v := it.Next()
		if ent := v.(*Entry); ent.State == Done {
			out = append(out, ent.Instance)
		}
	}
	slices.SortFunc(out, func(a, b *Instance) int {
		return strings.Compare(a.Symbol, b.Symbol)
	})
	return out
}

// Finish runs the end-of-compilation checks. A finished instance that
// depends on a failed one fails too, transitively, so no instance left in
// Instances refers to a symbol that was never built. Nothing may remain
// pending and symbols must be unique.
func (e *Engine) Finish(ctx context.Context) {
	e.failDependents()

	seen := make(map[string]Key)
	it := e.cache.Iterator()
	for !it.Done() {
		_, v := it.Next()
		ent := v.(*Entry)
		switch ent.State {
		case Pending:
			diag.ReportError(e.sess, diag.InternalUnresolvedForward, ent.Span,
				fmt.Sprintf("instantiation of `%s` never completed", ent.Name)).Emit()
		case Done:
			if prev, dup := seen[ent.Symbol]; dup {
				diag.ReportError(e.sess, diag.InternalDuplicateInstance, ent.Span,
					fmt.Sprintf("symbol `%s` produced by %s and %s", ent.Symbol, prev, ent.Key)).Emit()
				continue
			}
			seen[ent.Symbol] = ent.Key
		}
	}
	trace.Point(e.sess.Tracer, trace.ScopePass, "finish",
		fmt.Sprintf("%d entries, %d witnesses", e.cache.Len(), e.conf.Cached()), trace.CurrentSpan(ctx))
}

// failDependents marks Failed every Done entry that refers to a Failed one,
// until no such reference is left. Each newly failed entry gets its own
// diagnostic pointing at the reference.
func (e *Engine) failDependents() {
	refs := make([]reference, 0, e.refs.Len())
	rit := e.refs.Iterator()
	for !rit.Done() {
		_, v := rit.Next()
		refs = append(refs, v.(reference))
	}
	for changed := true; changed; {
		changed = false
		for _, r := range refs {
			from, ok := e.Lookup(r.From)
			if !ok || from.State != Done {
				continue
			}
			to, ok := e.Lookup(r.To)
			if !ok || to.State != Failed {
				continue
			}
			diag.ReportError(e.sess, diag.MonoFailedInstDep, r.Span,
				fmt.Sprintf("`%s` refers to `%s`, whose instantiation failed", from.Name, to.Name)).
				WithNote(to.Span, "`"+to.Name+"` first requested here").Emit()
			e.store(&Entry{Key: from.Key, State: Failed, Name: from.Name, Symbol: from.Symbol, Span: from.Span})
			changed = true
		}
	}
}
