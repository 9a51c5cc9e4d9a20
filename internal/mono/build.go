package mono

import (
	"context"
	"fmt"

	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/source"
	"monogen/internal/types"
)

func (e *Engine) build(ctx context.Context, item *ast.Item, subst types.Subst, key Key, req Request) (*Instance, bool) {
	inst := &Instance{Key: key, Item: item, Kind: item.Kind, Subst: subst}
	ok := req.Checked || e.infer.CheckBounds(ctx, item.ID, subst, req.Span)
	switch item.Kind {
	case ast.ItemStruct:
		inst.Type = e.types.Named(item.ID, subst.Args...)
		fields, _ := e.Fields(inst.Type)
		for _, f := range fields {
			if !e.requireType(ctx, f.Type, EdgeValue, f.Span) {
				ok = false
			}
		}
		inst.Fields = fields
	case ast.ItemEnum:
		inst.Type = e.types.Named(item.ID, subst.Args...)
		for _, v := range item.Variants {
			if e.sess.Active(v.Cfg) {
				inst.Variants = append(inst.Variants, v)
			}
		}
	case ast.ItemFn:
		inst.Type = e.types.FnItem(item.ID, subst.Args...)
		if !e.signature(ctx, item, subst, inst) {
			ok = false
		}
		if ok && item.Body != nil {
			ok = e.checkBody(ctx, item, subst, inst)
		}
	case ast.ItemStatic, ast.ItemConst:
		inst.Type = e.types.Substituter(subst).Apply(item.Result)
		inst.Result = inst.Type
		if !e.requireType(ctx, inst.Type, EdgeIndirect, item.Span) {
			ok = false
		}
		if ok && item.Body != nil {
			ok = e.checkBody(ctx, item, subst, inst)
		}
	default:
		types.Internalf(diag.InternalError, "materialize", "cannot instantiate %s `%s`", item.Kind, e.prog.Path(item.ID))
	}
	return inst, ok
}

// checkBody substitutes and checks a function body or initializer.
func (e *Engine) checkBody(ctx context.Context, item *ast.Item, subst types.Subst, inst *Instance) bool {
	rw := &ast.Rewriter{
		Type: e.types.Substituter(subst).Apply,
		Keep: func(s *ast.Stmt) bool { return e.sess.Active(s.Cfg) },
	}
	inst.Body = rw.Expr(item.Body)
	info, ok := newChecker(ctx, e, inst).checkBody()
	inst.Info = info
	return ok
}

// signature fills the concrete parameters and result of a function instance
// and materializes the types they mention.
func (e *Engine) signature(ctx context.Context, item *ast.Item, subst types.Subst, inst *Instance) bool {
	sub := e.types.Substituter(subst)
	ok := true
	inst.Params = make([]Param, len(item.Params))
	for i, p := range item.Params {
		ty := sub.Apply(p.Type)
		inst.Params[i] = Param{Local: p.Local, Name: p.Name, Type: ty}
		if !e.requireType(ctx, ty, EdgeIndirect, p.Span) {
			ok = false
		}
	}
	inst.Result = e.resultType(item, sub)
	if !e.requireType(ctx, inst.Result, EdgeIndirect, item.Span) {
		ok = false
	}
	return ok
}

func (e *Engine) resultType(item *ast.Item, sub *types.Substituter) types.TypeID {
	if item.Result == types.NoTypeID {
		return e.types.Builtins().Void
	}
	return sub.Apply(item.Result)
}

// shallow validates a function signature without building or caching anything.
func (e *Engine) shallow(ctx context.Context, item *ast.Item, subst types.Subst, ref Ref, req Request) (Ref, bool) {
	if !req.Checked && !e.infer.CheckBounds(ctx, item.ID, subst, req.Span) {
		return ref, false
	}
	if item.Kind != ast.ItemFn {
		return ref, true
	}
	var scratch Instance
	if !e.signature(ctx, item, subst, &scratch) {
		return ref, false
	}
	return ref, true
}

// requireType materializes every struct, enum and function item a type
// mentions. Value edges propagate through arrays and tuples; pointers, slices
// and signatures make the dependency indirect.
func (e *Engine) requireType(ctx context.Context, ty types.TypeID, edge Edge, span source.Span) bool {
	tt, ok := e.types.Lookup(ty)
	if !ok {
		return true
	}
	switch tt.Kind {
	case types.KindPointer, types.KindSlice:
		return e.requireType(ctx, tt.Elem, EdgeIndirect, span)
	case types.KindArray:
		return e.requireType(ctx, tt.Elem, edge, span)
	case types.KindTuple:
		ok := true
		for _, el := range e.types.List(tt.List) {
			if !e.requireType(ctx, el, edge, span) {
				ok = false
			}
		}
		return ok
	case types.KindFn:
		ok := true
		for _, p := range e.types.List(tt.List) {
			if !e.requireType(ctx, p, EdgeIndirect, span) {
				ok = false
			}
		}
		return e.requireType(ctx, tt.Elem, EdgeIndirect, span) && ok
	case types.KindNamed:
		item := e.prog.Item(tt.Item)
		if item == nil || item.Kind == ast.ItemProtocol {
			return true
		}
		_, ok := e.materialize(ctx, Request{
			Item:  tt.Item,
			Subst: types.NewSubst(e.prog.Placeholders(tt.Item), e.types.List(tt.List)),
			Edge:  edge,
			Span:  span,
		})
		return ok
	case types.KindFnItem:
		_, ok := e.materialize(ctx, Request{
			Item:  tt.Item,
			Subst: types.NewSubst(e.prog.Placeholders(tt.Item), e.types.List(tt.List)),
			Edge:  EdgeCall,
			Span:  span,
		})
		return ok
	}
	return true
}

// Fields returns the concrete, cfg-active fields of a struct type.
func (e *Engine) Fields(ty types.TypeID) ([]Field, bool) {
	tt, ok := e.types.Lookup(ty)
	if !ok || tt.Kind != types.KindNamed {
		return nil, false
	}
	item := e.prog.Item(tt.Item)
	if item == nil || item.Kind != ast.ItemStruct {
		return nil, false
	}
	if v, ok := e.layouts.Get(int(ty)); ok {
		return v.([]Field), true
	}
	phs := e.prog.Placeholders(item.ID)
	args := e.types.List(tt.List)
	if len(phs) != len(args) {
		types.Internalf(diag.InternalMissingSubst, "layout", "`%s` applied to %d arguments, expects %d", item.Name, len(args), len(phs))
	}
	sub := e.types.Substituter(types.NewSubst(phs, args))
	fields := make([]Field, 0, len(item.Fields))
	for _, f := range item.Fields {
		if !e.sess.Active(f.Cfg) {
			continue
		}
		fields = append(fields, Field{Name: f.Name, Type: sub.Apply(f.Type), Span: f.Span})
	}
	e.layouts = e.layouts.Set(int(ty), fields)
	return fields, true
}

// StructFields implements types.FieldSource.
func (e *Engine) StructFields(ty types.TypeID) ([]types.TypeID, bool) {
	fields, ok := e.Fields(ty)
	if !ok {
		return nil, false
	}
	out := make([]types.TypeID, len(fields))
	for i, f := range fields {
		out[i] = f.Type
	}
	return out, true
}

// IsZeroSized reports whether values of ty occupy no storage.
func (e *Engine) IsZeroSized(ty types.TypeID) bool {
	return e.types.IsZeroSized(ty, e)
}

func (e *Engine) itemLabel(id ast.ItemID) string {
	return fmt.Sprintf("`%s`", e.prog.Path(id))
}
