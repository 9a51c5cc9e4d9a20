package ast

import "monogen/internal/types"

// Rewriter produces a deep copy of a body with every written type mapped
// through Type. Statements for which Keep returns false are dropped together
// with their contents.
type Rewriter struct {
	Type func(types.TypeID) types.TypeID
	Keep func(*Stmt) bool
}

func (r *Rewriter) ty(t types.TypeID) types.TypeID {
	if r.Type == nil || t == types.NoTypeID {
		return t
	}
	return r.Type(t)
}

func (r *Rewriter) tys(ts []types.TypeID) []types.TypeID {
	if len(ts) == 0 {
		return nil
	}
	out := make([]types.TypeID, len(ts))
	for i, t := range ts {
		out[i] = r.ty(t)
	}
	return out
}

func (r *Rewriter) exprs(es []*Expr) []*Expr {
	if len(es) == 0 {
		return nil
	}
	out := make([]*Expr, len(es))
	for i, e := range es {
		out[i] = r.Expr(e)
	}
	return out
}

// Bound maps the arguments of a bound.
func (r *Rewriter) Bound(bd Bound) Bound {
	return Bound{Protocol: bd.Protocol, Args: r.tys(bd.Args), Span: bd.Span}
}

// Expr rewrites e. A nil expression stays nil.
func (r *Rewriter) Expr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	out := &Expr{Kind: e.Kind, Span: e.Span}
	switch d := e.Data.(type) {
	case nil:
	case LitData:
		d.Type = r.ty(d.Type)
		out.Data = d
	case LocalData:
		out.Data = d
	case FnRefData:
		out.Data = FnRefData{Item: d.Item, TypeArgs: r.tys(d.TypeArgs)}
	case GlobalData:
		out.Data = GlobalData{Item: d.Item, TypeArgs: r.tys(d.TypeArgs)}
	case CallData:
		out.Data = CallData{Callee: r.Expr(d.Callee), Args: r.exprs(d.Args)}
	case MethodCallData:
		out.Data = MethodCallData{Receiver: r.Expr(d.Receiver), Name: d.Name, TypeArgs: r.tys(d.TypeArgs), Args: r.exprs(d.Args)}
	case UnaryData:
		out.Data = UnaryData{Op: d.Op, Operand: r.Expr(d.Operand)}
	case BinaryData:
		out.Data = BinaryData{Op: d.Op, Left: r.Expr(d.Left), Right: r.Expr(d.Right)}
	case RefData:
		out.Data = RefData{Mutable: d.Mutable, Operand: r.Expr(d.Operand)}
	case DerefData:
		out.Data = DerefData{Operand: r.Expr(d.Operand)}
	case FieldData:
		out.Data = FieldData{Object: r.Expr(d.Object), Name: d.Name}
	case TupleIndexData:
		out.Data = TupleIndexData{Object: r.Expr(d.Object), Index: d.Index}
	case IndexData:
		out.Data = IndexData{Object: r.Expr(d.Object), Index: r.Expr(d.Index)}
	case TupleData:
		out.Data = TupleData{Elems: r.exprs(d.Elems)}
	case ArrayData:
		out.Data = ArrayData{Elems: r.exprs(d.Elems)}
	case StructLitData:
		fields := make([]FieldInit, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = FieldInit{Name: f.Name, Value: r.Expr(f.Value), Span: f.Span}
		}
		out.Data = StructLitData{Type: r.ty(d.Type), Fields: fields}
	case EnumValueData:
		out.Data = EnumValueData{Type: r.ty(d.Type), Variant: d.Variant}
	case AssignData:
		out.Data = AssignData{Op: d.Op, Target: r.Expr(d.Target), Value: r.Expr(d.Value)}
	case IfData:
		out.Data = IfData{Cond: r.Expr(d.Cond), Then: r.Expr(d.Then), Else: r.Expr(d.Else)}
	case WhileData:
		out.Data = WhileData{Cond: r.Expr(d.Cond), Body: r.Expr(d.Body)}
	case BlockData:
		stmts := make([]*Stmt, 0, len(d.Stmts))
		for _, s := range d.Stmts {
			if r.Keep != nil && !r.Keep(s) {
				continue
			}
			stmts = append(stmts, &Stmt{
				Kind:  s.Kind,
				Span:  s.Span,
				Local: s.Local,
				Name:  s.Name,
				Type:  r.ty(s.Type),
				Value: r.Expr(s.Value),
			})
		}
		out.Data = BlockData{Stmts: stmts, Result: r.Expr(d.Result)}
	case ReturnData:
		out.Data = ReturnData{Value: r.Expr(d.Value)}
	case CastData:
		out.Data = CastData{Operand: r.Expr(d.Operand), Type: r.ty(d.Type)}
	case WhenData:
		out.Data = WhenData{Type: r.ty(d.Type), Bound: r.Bound(d.Bound), Then: r.Expr(d.Then), Else: r.Expr(d.Else)}
	}
	return out
}

// Inspect walks e in evaluation order, calling visit for every expression.
// Returning false skips the children of that expression.
func Inspect(e *Expr, visit func(*Expr) bool) {
	if e == nil || !visit(e) {
		return
	}
	switch d := e.Data.(type) {
	case CallData:
		Inspect(d.Callee, visit)
		for _, a := range d.Args {
			Inspect(a, visit)
		}
	case MethodCallData:
		Inspect(d.Receiver, visit)
		for _, a := range d.Args {
			Inspect(a, visit)
		}
	case UnaryData:
		Inspect(d.Operand, visit)
	case BinaryData:
		Inspect(d.Left, visit)
		Inspect(d.Right, visit)
	case RefData:
		Inspect(d.Operand, visit)
	case DerefData:
		Inspect(d.Operand, visit)
	case FieldData:
		Inspect(d.Object, visit)
	case TupleIndexData:
		Inspect(d.Object, visit)
	case IndexData:
		Inspect(d.Object, visit)
		Inspect(d.Index, visit)
	case TupleData:
		for _, el := range d.Elems {
			Inspect(el, visit)
		}
	case ArrayData:
		for _, el := range d.Elems {
			Inspect(el, visit)
		}
	case StructLitData:
		for _, f := range d.Fields {
			Inspect(f.Value, visit)
		}
	case AssignData:
		Inspect(d.Target, visit)
		Inspect(d.Value, visit)
	case IfData:
		Inspect(d.Cond, visit)
		Inspect(d.Then, visit)
		Inspect(d.Else, visit)
	case WhileData:
		Inspect(d.Cond, visit)
		Inspect(d.Body, visit)
	case BlockData:
		for _, s := range d.Stmts {
			Inspect(s.Value, visit)
		}
		Inspect(d.Result, visit)
	case ReturnData:
		Inspect(d.Value, visit)
	case CastData:
		Inspect(d.Operand, visit)
	case WhenData:
		Inspect(d.Then, visit)
		Inspect(d.Else, visit)
	}
}
