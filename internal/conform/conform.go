// Package conform decides structural protocol conformance. A candidate type
// satisfies a protocol when every required method resolves on it by name,
// matches the required signature once Self is substituted, and can be
// instantiated. The outcome carries a witness naming the exact methods.
package conform

import (
	"context"
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"

	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/infer"
	"monogen/internal/session"
	"monogen/internal/source"
	"monogen/internal/types"
)

// Instantiator performs trial instantiation of candidate methods. Trial must
// leave no trace: no cache entries and no diagnostics survive it.
type Instantiator interface {
	Trial(ctx context.Context, item ast.ItemID, subst types.Subst, span source.Span) (symbol string, ok bool)
}

// MethodWitness records how one required method is implemented.
type MethodWitness struct {
	Name     string
	Required ast.ItemID
	Method   ast.ItemID
	Subst    types.Subst
	Symbol   string
}

// Witness proves that Candidate satisfies Protocol<Args...>.
type Witness struct {
	Candidate types.TypeID
	Protocol  ast.ItemID
	Args      []types.TypeID
	Methods   []MethodWitness
	// Assumed is set for a check answered while the same check was already in
	// progress further up the stack.
	Assumed bool
}

// Reason explains one unmet requirement.
type Reason struct {
	Method string
	Msg    string
}

// Result is Satisfied (Witness != nil) or Unsatisfied (Reasons).
type Result struct {
	Witness *Witness
	Reasons []Reason
}

// Satisfied reports whether the candidate conforms.
func (r Result) Satisfied() bool {
	return r.Witness != nil
}

// Checker answers conformance questions for one session. Results are kept in
// a persistent map so a caller can snapshot and restore them around
// speculative work.
type Checker struct {
	sess   *session.Session
	inst   Instantiator
	cache  *immutable.SortedMap // key -> Result
	active map[string]struct{}
	// assumed counts Assumed witnesses handed out
	assumed int
}

// New creates a checker. A nil inst skips trial instantiation.
func New(sess *session.Session, inst Instantiator) *Checker {
	return &Checker{
		sess:   sess,
		inst:   inst,
		cache:  immutable.NewSortedMap(nil),
		active: make(map[string]struct{}),
	}
}

// Snapshot captures the witness cache.
func (c *Checker) Snapshot() *immutable.SortedMap {
	return c.cache
}

// Restore resets the witness cache to a snapshot.
func (c *Checker) Restore(snap *immutable.SortedMap) {
	c.cache = snap
}

// Cached reports how many conformance results are memoized.
func (c *Checker) Cached() int {
	return c.cache.Len()
}

func cacheKey(candidate types.TypeID, bound ast.Bound) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d", candidate, bound.Protocol)
	for _, a := range bound.Args {
		fmt.Fprintf(&b, "#%d", a)
	}
	return b.String()
}

// Satisfies checks candidate against a concrete bound.
func (c *Checker) Satisfies(ctx context.Context, candidate types.TypeID, bound ast.Bound, span source.Span) Result {
	key := cacheKey(candidate, bound)
	if v, ok := c.cache.Get(key); ok {
		return v.(Result)
	}
	if _, busy := c.active[key]; busy {
		c.assumed++
		return Result{Witness: &Witness{Candidate: candidate, Protocol: bound.Protocol, Args: bound.Args, Assumed: true}}
	}
	c.active[key] = struct{}{}
	assumedBefore := c.assumed
	res := c.check(ctx, candidate, bound, span)
	delete(c.active, key)
	// a result that leaned on an assumption still open further up is only
	// provisional; the outermost check settles it
	if c.assumed == assumedBefore || len(c.active) == 0 {
		c.cache = c.cache.Set(key, res)
	}
	return res
}

func (c *Checker) check(ctx context.Context, candidate types.TypeID, bound ast.Bound, span source.Span) Result {
	prog := c.sess.Program
	in := c.sess.Types
	proto := prog.Item(bound.Protocol)
	if proto == nil || proto.Kind != ast.ItemProtocol {
		return Result{Reasons: []Reason{{Msg: fmt.Sprintf("`%s` is not a protocol", prog.Path(bound.Protocol))}}}
	}
	protoPhs := prog.Placeholders(bound.Protocol)
	if len(protoPhs) != 1+len(bound.Args) {
		return Result{Reasons: []Reason{{Msg: fmt.Sprintf("`%s` expects %d arguments, got %d", proto.Name, len(protoPhs)-1, len(bound.Args))}}}
	}
	protoArgs := append([]types.TypeID{candidate}, bound.Args...)

	var owner *ast.Item
	var ownerArgs []types.TypeID
	if tt, ok := in.Lookup(candidate); ok && tt.Kind == types.KindNamed {
		owner = prog.Item(tt.Item)
		ownerArgs = in.List(tt.List)
	}

	w := &Witness{Candidate: candidate, Protocol: bound.Protocol, Args: bound.Args}
	var reasons []Reason
	for _, reqID := range proto.Methods {
		req := prog.Item(reqID)
		if req == nil || !c.sess.Active(req.Cfg) {
			continue
		}
		mw, why := c.resolveMethod(ctx, owner, ownerArgs, req, protoPhs, protoArgs, span)
		if why != "" {
			reasons = append(reasons, Reason{Method: req.Name, Msg: why})
			continue
		}
		w.Methods = append(w.Methods, mw)
	}
	if len(reasons) > 0 {
		return Result{Reasons: reasons}
	}
	return Result{Witness: w}
}

// resolveMethod finds the candidate's implementation of req. A non-empty
// string explains why none fits.
func (c *Checker) resolveMethod(ctx context.Context, owner *ast.Item, ownerArgs []types.TypeID, req *ast.Item, protoPhs, protoArgs []types.TypeID, span source.Span) (MethodWitness, string) {
	prog := c.sess.Program
	in := c.sess.Types
	if owner == nil {
		return MethodWitness{}, fmt.Sprintf("missing method `%s`", req.Name)
	}
	cand := prog.Method(owner.ID, req.Name)
	if cand == nil || !c.sess.Active(cand.Cfg) {
		return MethodWitness{}, fmt.Sprintf("missing method `%s`", req.Name)
	}

	// requirement-own placeholders stay rigid
	reqPhs := prog.Placeholders(req.ID)
	reqArgs := append(append([]types.TypeID(nil), protoArgs...), reqPhs[len(protoPhs):]...)
	reqSub := in.Substituter(types.NewSubst(reqPhs, reqArgs))
	wantParams := reqSub.ApplyAll(req.ParamTypes())
	wantResult := reqSub.Apply(req.Result)

	if len(cand.Params) != len(wantParams) {
		return MethodWitness{}, fmt.Sprintf("method `%s` takes %d parameters, expected %d", req.Name, len(cand.Params), len(wantParams))
	}
	candPhs := prog.Placeholders(cand.ID)
	u := infer.NewUnifier(in, candPhs)
	for i, a := range ownerArgs {
		if i >= len(candPhs) {
			break
		}
		if err := u.Unify(candPhs[i], a); err != nil {
			types.Internalf(diag.InternalError, "conform", "seeding owner slot %d of %s failed", i, prog.Path(cand.ID))
		}
	}
	for i, p := range cand.Params {
		if err := u.Unify(p.Type, wantParams[i]); err != nil {
			return MethodWitness{}, fmt.Sprintf("method `%s` has parameter `%s: %s`, expected `%s`",
				req.Name, p.Name, in.Label(u.Resolve(p.Type)), in.Label(wantParams[i]))
		}
	}
	if err := u.Unify(cand.Result, wantResult); err != nil {
		return MethodWitness{}, fmt.Sprintf("method `%s` returns `%s`, expected `%s`",
			req.Name, in.Label(u.Resolve(cand.Result)), in.Label(wantResult))
	}
	args := make([]types.TypeID, len(candPhs))
	for i, ph := range candPhs {
		v, ok := u.Value(ph)
		if !ok || in.ContainsPlaceholder(v) {
			return MethodWitness{}, fmt.Sprintf("method `%s` is more generic than the requirement", req.Name)
		}
		args[i] = v
	}
	subst := types.NewSubst(candPhs, args)
	symbol := ""
	if c.inst != nil {
		var ok bool
		symbol, ok = c.inst.Trial(ctx, cand.ID, subst, span)
		if !ok {
			return MethodWitness{}, fmt.Sprintf("method `%s` cannot be instantiated for `%s`", req.Name, in.Label(protoArgs[0]))
		}
	}
	return MethodWitness{Name: req.Name, Required: req.ID, Method: cand.ID, Subst: subst, Symbol: symbol}, ""
}

// Require checks a bound and reports a diagnostic when it is not met. It
// satisfies infer.BoundChecker.
func (c *Checker) Require(ctx context.Context, candidate types.TypeID, bound ast.Bound, span source.Span) bool {
	prog := c.sess.Program
	in := c.sess.Types
	proto := prog.Item(bound.Protocol)
	if proto == nil || proto.Kind != ast.ItemProtocol {
		diag.ReportError(c.sess, diag.ConfNotAProtocol, bound.Span,
			fmt.Sprintf("`%s` is not a protocol", prog.Path(bound.Protocol))).Emit()
		return false
	}
	res := c.Satisfies(ctx, candidate, bound, span)
	if res.Satisfied() {
		return true
	}
	label := proto.Name
	if len(bound.Args) > 0 {
		label = in.Label(in.Named(proto.ID, bound.Args...))
	}
	msg := fmt.Sprintf("type `%s` does not satisfy `%s`", in.Label(candidate), label)
	var rest []Reason
	if len(res.Reasons) > 0 {
		msg += ": " + res.Reasons[0].Msg
		rest = res.Reasons[1:]
	}
	b := diag.ReportError(c.sess, diag.ConfBoundViolation, span, msg)
	for _, r := range rest {
		b.WithNote(bound.Span, r.Msg)
	}
	b.WithNote(bound.Span, "required by this bound").Emit()
	return false
}

var _ infer.BoundChecker = (*Checker)(nil)
