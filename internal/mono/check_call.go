package mono

import (
	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/infer"
	"monogen/internal/source"
	"monogen/internal/types"
)

// callable returns the function item id names, reporting when it cannot be
// called here.
func (c *checker) callable(id ast.ItemID, span source.Span) *ast.Item {
	item := c.e.prog.Item(id)
	switch {
	case item == nil || item.Kind != ast.ItemFn:
		c.errorf(diag.ChkNotCallable, span, "%s is not a function", c.e.itemLabel(id)).Emit()
		return nil
	case !c.e.sess.Active(item.Cfg):
		c.errorf(diag.ChkNotCallable, span, "%s is disabled by its cfg predicate", c.e.itemLabel(id)).
			WithNote(item.Span, "declared here").Emit()
		return nil
	}
	return item
}

// fnRef types a function named as a value. Generic functions need explicit
// type arguments here since there is no call to infer them from.
func (c *checker) fnRef(e *ast.Expr, d ast.FnRefData) types.TypeID {
	item := c.callable(d.Item, e.Span)
	if item == nil {
		return types.NoTypeID
	}
	phs := c.e.prog.Placeholders(item.ID)
	switch {
	case len(d.TypeArgs) == 0 && len(phs) > 0:
		c.errorf(diag.ChkCannotInfer, e.Span, "cannot infer type arguments of `%s` without a call", c.e.prog.Path(item.ID)).Emit()
		return types.NoTypeID
	case len(d.TypeArgs) != len(phs):
		c.errorf(diag.InfTypeArgCount, e.Span, "`%s` takes %d type arguments, got %d", c.e.prog.Path(item.ID), len(phs), len(d.TypeArgs)).Emit()
		return types.NoTypeID
	}
	subst := types.NewSubst(phs, d.TypeArgs)
	if !c.e.infer.CheckBounds(c.ctx, item.ID, subst, e.Span) {
		c.ok = false
		return types.NoTypeID
	}
	ref, ok := c.e.materialize(c.ctx, Request{Item: item.ID, Subst: subst, Edge: EdgeCall, Span: e.Span, Checked: true})
	if !ok {
		c.ok = false
	}
	c.info.Callees[e] = ref
	return c.in.FnItem(item.ID, d.TypeArgs...)
}

// global types a read of a static or const. A static is storage, so reaching
// it again while it is being built is a forward reference; a const needs its
// value, so a const that reaches itself is a cycle.
func (c *checker) global(e *ast.Expr, d ast.GlobalData) types.TypeID {
	item := c.e.prog.Item(d.Item)
	switch {
	case item == nil || !item.Kind.IsGlobal():
		c.errorf(diag.ChkNotAValue, e.Span, "%s is not a static or const", c.e.itemLabel(d.Item)).Emit()
		return types.NoTypeID
	case !c.e.sess.Active(item.Cfg):
		c.errorf(diag.ChkNotAValue, e.Span, "%s is disabled by its cfg predicate", c.e.itemLabel(d.Item)).
			WithNote(item.Span, "declared here").Emit()
		return types.NoTypeID
	}
	phs := c.e.prog.Placeholders(item.ID)
	if len(d.TypeArgs) != len(phs) {
		c.errorf(diag.InfTypeArgCount, e.Span, "`%s` takes %d type arguments, got %d", c.e.prog.Path(item.ID), len(phs), len(d.TypeArgs)).Emit()
		return types.NoTypeID
	}
	subst := types.NewSubst(phs, d.TypeArgs)
	edge := EdgeIndirect
	if item.Kind == ast.ItemConst {
		edge = EdgeValue
	}
	ref, ok := c.e.materialize(c.ctx, Request{Item: item.ID, Subst: subst, Edge: edge, Span: e.Span})
	if !ok {
		c.ok = false
		return types.NoTypeID
	}
	c.info.Globals[e] = ref
	return c.in.Substituter(subst).Apply(item.Result)
}

func (c *checker) call(e *ast.Expr, d ast.CallData, expected types.TypeID) types.TypeID {
	if ref, ok := d.Callee.Data.(ast.FnRefData); ok {
		item := c.callable(ref.Item, d.Callee.Span)
		if item == nil {
			c.skipArgs(d.Args)
			return types.NoTypeID
		}
		res, _, subst := c.callItem(e, item, ref.TypeArgs, nil, nil, d.Args, expected)
		if subst != nil {
			c.info.Types[d.Callee] = c.in.FnItem(item.ID, subst.Args...)
		}
		return res
	}

	ct := c.expr(d.Callee, types.NoTypeID)
	if ct == types.NoTypeID {
		c.skipArgs(d.Args)
		return types.NoTypeID
	}
	switch tt := c.in.MustLookup(ct); tt.Kind {
	case types.KindFnItem:
		item := c.e.prog.Item(tt.Item)
		res, _, _ := c.callItem(e, item, c.in.Args(ct), nil, nil, d.Args, expected)
		return res
	case types.KindFn:
		params, result, _ := c.in.FnSig(ct)
		if len(params) != len(d.Args) {
			c.errorf(diag.InfArityMismatch, e.Span, "function of type `%s` expects %d arguments, got %d", c.label(ct), len(params), len(d.Args)).Emit()
			c.skipArgs(d.Args)
			return result
		}
		for i, arg := range d.Args {
			c.expect(arg, params[i])
		}
		c.info.Params[e] = params
		return result
	}
	c.errorf(diag.ChkNotCallable, d.Callee.Span, "expected function, found `%s`", c.label(ct)).Emit()
	c.skipArgs(d.Args)
	return types.NoTypeID
}

// skipArgs still types arguments of a failed call so their own errors surface.
func (c *checker) skipArgs(args []*ast.Expr) {
	for _, a := range args {
		c.expr(a, types.NoTypeID)
	}
}

// callItem checks a call of a function item: it infers the missing type
// arguments, coerces the arguments and materializes the callee. pre holds the
// already-typed leading arguments (the adjusted receiver of a method call).
// It returns the result type, the concrete parameter types and the
// substitution, which is nil when the callee could not be resolved.
func (c *checker) callItem(e *ast.Expr, item *ast.Item, seeds, pre []types.TypeID, preSpans []source.Span, args []*ast.Expr, expected types.TypeID) (types.TypeID, []types.TypeID, *types.Subst) {
	path := c.e.prog.Path(item.ID)
	if len(pre)+len(args) != len(item.Params) {
		c.errorf(diag.InfArityMismatch, e.Span, "`%s` expects %d arguments, got %d", path, len(item.Params)-len(pre), len(args)).
			WithNote(item.Span, "declared here").Emit()
		c.skipArgs(args)
		return types.NoTypeID, nil, nil
	}
	phs := c.e.prog.Placeholders(item.ID)
	argTypes := make([]types.TypeID, len(args))
	var subst types.Subst
	switch {
	case len(phs) == 0 || len(seeds) == len(phs):
		if len(seeds) != len(phs) {
			c.errorf(diag.InfTypeArgCount, e.Span, "`%s` takes no type arguments, got %d", path, len(seeds)).Emit()
			c.skipArgs(args)
			return types.NoTypeID, nil, nil
		}
		subst = types.NewSubst(phs, seeds)
		if len(phs) > 0 && !c.e.infer.CheckBounds(c.ctx, item.ID, subst, e.Span) {
			c.ok = false
			c.skipArgs(args)
			return types.NoTypeID, nil, nil
		}
		sub := c.in.Substituter(subst)
		for i, arg := range args {
			argTypes[i] = c.expr(arg, sub.Apply(item.Params[len(pre)+i].Type))
		}
	default:
		// first pass: arguments whose parameter is concrete get it as the
		// expected type; the others are synthesized bottom-up
		deferred := make([]bool, len(args))
		for i, arg := range args {
			param := item.Params[len(pre)+i].Type
			var want types.TypeID
			if !c.in.ContainsPlaceholder(param) {
				want = param
			}
			mark := c.e.sess.ErrorMark()
			argTypes[i] = c.expr(arg, want)
			deferred[i] = argTypes[i] == types.NoTypeID && c.e.sess.ErrorMark() == mark
		}
		site := infer.CallSite{Span: e.Span, Seeds: seeds, Expected: expected}
		site.Args = append(append(site.Args, pre...), argTypes...)
		site.ArgSpans = append(site.ArgSpans, preSpans...)
		for _, arg := range args {
			site.ArgSpans = append(site.ArgSpans, arg.Span)
		}
		var ok bool
		subst, ok = c.e.infer.Infer(c.ctx, item.ID, site)
		if !ok {
			c.ok = false
			return types.NoTypeID, nil, nil
		}
		sub := c.in.Substituter(subst)
		for i, arg := range args {
			if deferred[i] {
				argTypes[i] = c.expr(arg, sub.Apply(item.Params[len(pre)+i].Type))
			}
		}
	}

	sub := c.in.Substituter(subst)
	params := sub.ApplyAll(item.ParamTypes())
	for i, arg := range args {
		c.coerce(arg, argTypes[i], params[len(pre)+i])
	}
	ref, ok := c.e.materialize(c.ctx, Request{Item: item.ID, Subst: subst, Edge: EdgeCall, Span: e.Span, Checked: true})
	if !ok {
		c.ok = false
	}
	c.info.Callees[e] = ref
	c.info.Params[e] = params
	return c.e.resultType(item, sub), params, &subst
}

func (c *checker) methodCall(e *ast.Expr, d ast.MethodCallData, expected types.TypeID) types.TypeID {
	rt := c.expr(d.Receiver, types.NoTypeID)
	if rt == types.NoTypeID {
		c.skipArgs(d.Args)
		return types.NoTypeID
	}
	base, viaPtr := rt, false
	if tt := c.in.MustLookup(rt); tt.Kind == types.KindPointer {
		base, viaPtr = tt.Elem, true
	}
	bt := c.in.MustLookup(base)
	var m *ast.Item
	if bt.Kind == types.KindNamed {
		m = c.e.prog.Method(bt.Item, d.Name)
	}
	if m == nil || !c.e.sess.Active(m.Cfg) {
		c.errorf(diag.ChkUnknownMethod, e.Span, "no method named `%s` found for `%s`", d.Name, c.label(base)).Emit()
		c.skipArgs(d.Args)
		return types.NoTypeID
	}
	if len(m.Params) == 0 {
		c.errorf(diag.ChkNotCallable, e.Span, "`%s` has no receiver and cannot be called as a method", c.e.prog.Path(m.ID)).Emit()
		c.skipArgs(d.Args)
		return types.NoTypeID
	}
	if len(d.TypeArgs) > 0 && len(d.TypeArgs) != len(m.Generics) {
		c.errorf(diag.InfTypeArgCount, e.Span, "method `%s` takes %d type arguments, got %d", d.Name, len(m.Generics), len(d.TypeArgs)).Emit()
		c.skipArgs(d.Args)
		return types.NoTypeID
	}

	self := c.in.MustLookup(m.Params[0].Type)
	adj, recv := AdjustNone, rt
	switch {
	case self.Kind == types.KindPointer && !viaPtr:
		adj, recv = AdjustRef, c.in.Ptr(rt, self.Mutable)
		if self.Mutable {
			adj = AdjustRefMut
			if isPlace(d.Receiver) && !c.mutablePlace(d.Receiver) {
				c.errorf(diag.ChkNotAssignable, d.Receiver.Span, "cannot borrow a place behind `&` as mutable").Emit()
			}
		}
	case self.Kind != types.KindPointer && viaPtr:
		adj, recv = AdjustDeref, base
	}

	seeds := append(append([]types.TypeID(nil), c.in.Args(base)...), d.TypeArgs...)
	res, params, subst := c.callItem(e, m, seeds, []types.TypeID{recv}, []source.Span{d.Receiver.Span}, d.Args, expected)
	if subst == nil {
		return res
	}
	co, ok := c.in.AssignableFrom(params[0], recv)
	if !ok {
		c.errorf(diag.ChkTypeMismatch, d.Receiver.Span, "mismatched receiver: expected `%s`, found `%s`", c.label(params[0]), c.label(recv)).Emit()
	}
	c.info.Receivers[e] = MethodInfo{Adjust: adj, Coercion: co}
	return res
}
