package ir

import (
	"fortio.org/safecast"

	"monogen/internal/ast"
	"monogen/internal/types"
)

// lowerExpr evaluates e into an operand. When e diverges the current block
// is terminated and the returned operand is meaningless.
func (l *funcLowerer) lowerExpr(e *ast.Expr) (Operand, error) {
	ty, err := l.typeOf(e)
	if err != nil {
		return Operand{}, err
	}
	op, err := l.lowerExprKind(e, ty)
	if err != nil {
		return Operand{}, err
	}
	if l.types.IsDivergent(ty) {
		l.setTerm(Terminator{Kind: TermUnreachable})
		return zstOperand(ty), nil
	}
	return op, nil
}

// lowerAs evaluates e and converts it to want with the coercion the checker
// recorded.
func (l *funcLowerer) lowerAs(e *ast.Expr, want types.TypeID) (Operand, error) {
	op, err := l.lowerExpr(e)
	if err != nil || l.terminated() {
		return op, err
	}
	got, _ := l.typeOf(e)
	if got == want {
		return op, nil
	}
	if l.zst(want) {
		return zstOperand(want), nil
	}
	var kind CastKind
	switch co := l.info.Coercions[e]; co {
	case types.CoerceConstPtr:
		kind = CastConstPtr
	case types.CoerceUnsize:
		kind = CastUnsize
	default:
		return Operand{}, errorf(e.Span, "no coercion recorded from `%s` to `%s` (%s)", l.types.Label(got), l.types.Label(want), co)
	}
	return l.assignTemp(want, RValue{Kind: RValueCast, Cast: CastOp{Kind: kind, Value: op, To: want}}, e.Span), nil
}

func (l *funcLowerer) lowerExprKind(e *ast.Expr, ty types.TypeID) (Operand, error) {
	switch d := e.Data.(type) {
	case nil:
		return zstOperand(ty), nil
	case ast.LitData:
		return l.lowerLiteral(e, d, ty)
	case ast.LocalData:
		id, ok := l.locals[d.Local]
		if !ok {
			return Operand{}, errorf(e.Span, "unknown local `%s`", d.Name)
		}
		if id == NoLocalID {
			return zstOperand(ty), nil
		}
		return placeOperand(Place{Local: id}, ty), nil
	case ast.FnRefData:
		return zstOperand(ty), nil
	case ast.GlobalData:
		if l.zst(ty) {
			return zstOperand(ty), nil
		}
		p, err := l.lowerPlace(e)
		if err != nil {
			return Operand{}, err
		}
		return placeOperand(p, ty), nil
	case ast.CallData:
		return l.lowerCall(e, d, ty)
	case ast.MethodCallData:
		return l.lowerMethodCall(e, d, ty)
	case ast.UnaryData:
		op, err := l.lowerExpr(d.Operand)
		if err != nil || l.terminated() {
			return op, err
		}
		return l.assignTemp(ty, RValue{Kind: RValueUnaryOp, Unary: UnaryOp{Op: d.Op, Operand: op}}, e.Span), nil
	case ast.BinaryData:
		if d.Op.IsLogical() {
			return l.lowerLogical(e, d, ty)
		}
		ops, err := l.lowerOperands([]*ast.Expr{d.Left, d.Right}, nil)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		return l.assignTemp(ty, RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: d.Op, Left: ops[0], Right: ops[1]}}, e.Span), nil
	case ast.RefData:
		return l.lowerRef(e, d, ty)
	case ast.DerefData, ast.FieldData, ast.TupleIndexData, ast.IndexData:
		if l.zst(ty) {
			return zstOperand(ty), l.lowerForEffects(e)
		}
		p, err := l.lowerPlace(e)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		return placeOperand(p, ty), nil
	case ast.TupleData:
		ops, err := l.lowerOperands(d.Elems, l.types.Elems(ty))
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		lit := TupleLit{TypeID: ty}
		for i, op := range ops {
			if op.Kind != OperandZST {
				lit.Elems = append(lit.Elems, op)
				lit.Indices = append(lit.Indices, i)
			}
		}
		return l.assignTemp(ty, RValue{Kind: RValueTupleLit, TupleLit: lit}, e.Span), nil
	case ast.ArrayData:
		elem := l.types.Elem(ty)
		want := make([]types.TypeID, len(d.Elems))
		for i := range want {
			want[i] = elem
		}
		ops, err := l.lowerOperands(d.Elems, want)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		return l.assignTemp(ty, RValue{Kind: RValueArrayLit, ArrayLit: ArrayLit{TypeID: ty, Elems: sized(ops)}}, e.Span), nil
	case ast.StructLitData:
		return l.lowerStructLit(e, d, ty)
	case ast.EnumValueData:
		v, ok := l.info.Variants[e]
		if !ok {
			return Operand{}, errorf(e.Span, "unresolved variant `%s`", d.Variant)
		}
		return Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstEnum, Type: ty, Int: v}}, nil
	case ast.AssignData:
		return zstOperand(ty), l.lowerAssign(d)
	case ast.IfData:
		return l.lowerIf(e, d, ty)
	case ast.WhileData:
		return zstOperand(ty), l.lowerWhile(d)
	case ast.BlockData:
		return l.lowerBlock(d, ty)
	case ast.ReturnData:
		return zstOperand(ty), l.lowerReturn(d)
	case ast.CastData:
		op, err := l.lowerExpr(d.Operand)
		if err != nil || l.terminated() {
			return op, err
		}
		from, _ := l.typeOf(d.Operand)
		kind, ok := l.castKind(d.Type, from)
		if !ok {
			return Operand{}, errorf(e.Span, "invalid cast from `%s` to `%s`", l.types.Label(from), l.types.Label(d.Type))
		}
		return l.assignTemp(ty, RValue{Kind: RValueCast, Cast: CastOp{Kind: kind, Value: op, To: d.Type}}, e.Span), nil
	case ast.WhenData:
		return Operand{}, errorf(e.Span, "unresolved `when` reached lowering")
	}
	return Operand{}, errorf(e.Span, "unexpected %s expression", e.Kind)
}

func (l *funcLowerer) lowerLiteral(e *ast.Expr, d ast.LitData, ty types.TypeID) (Operand, error) {
	c := Const{Type: ty}
	tt := l.types.MustLookup(ty)
	switch {
	case d.Kind == ast.LitBool:
		c.Kind, c.Bool = ConstBool, d.Bool
	case d.Kind == ast.LitStr:
		c.Kind, c.Str = ConstString, d.Str
	case tt.Kind == types.KindFloat:
		c.Kind = ConstFloat
		if d.Kind == ast.LitInt {
			c.Float = float64(d.Int)
		} else {
			c.Float = d.Float
		}
	case tt.Kind == types.KindUint:
		u, err := safecast.Conv[uint64](d.Int)
		if err != nil {
			return Operand{}, errorf(e.Span, "literal %d does not fit `%s`", d.Int, l.types.Label(ty))
		}
		c.Kind, c.Uint = ConstUint, u
	case tt.Kind == types.KindInt:
		c.Kind, c.Int = ConstInt, d.Int
	default:
		return Operand{}, errorf(e.Span, "literal of type `%s`", l.types.Label(ty))
	}
	return Operand{Kind: OperandConst, Type: ty, Const: c}, nil
}

// lowerForEffects evaluates the subexpressions of a zero-sized read.
func (l *funcLowerer) lowerForEffects(e *ast.Expr) error {
	var inner *ast.Expr
	switch d := e.Data.(type) {
	case ast.DerefData:
		inner = d.Operand
	case ast.FieldData:
		inner = d.Object
	case ast.TupleIndexData:
		inner = d.Object
	case ast.IndexData:
		if _, err := l.lowerExpr(d.Object); err != nil || l.terminated() {
			return err
		}
		inner = d.Index
	default:
		_, err := l.lowerExpr(e)
		return err
	}
	_, err := l.lowerExpr(inner)
	return err
}

func (l *funcLowerer) castKind(to, from types.TypeID) (CastKind, bool) {
	if to == from {
		return CastIdentity, true
	}
	if co, ok := l.types.AssignableFrom(to, from); ok {
		switch co {
		case types.CoerceConstPtr:
			return CastConstPtr, true
		case types.CoerceUnsize:
			return CastUnsize, true
		}
	}
	ft, tt := l.types.MustLookup(from), l.types.MustLookup(to)
	switch {
	case ft.IsNumeric() && tt.IsNumeric():
		return CastNumeric, true
	case ft.Kind == types.KindBool && tt.IsInteger():
		return CastBoolToInt, true
	case ft.Kind == types.KindPointer && tt.Kind == types.KindPointer:
		return CastPtrToPtr, true
	case ft.Kind == types.KindPointer && tt.Kind == types.KindUint:
		return CastPtrToInt, true
	case ft.Kind == types.KindUint && tt.Kind == types.KindPointer:
		return CastIntToPtr, true
	}
	return CastIdentity, false
}

// lowerRef takes the address of an operand. Zero-sized values have no
// storage, so their address is a dangling non-null constant.
func (l *funcLowerer) lowerRef(e *ast.Expr, d ast.RefData, ty types.TypeID) (Operand, error) {
	inner, err := l.typeOf(d.Operand)
	if err != nil {
		return Operand{}, err
	}
	if l.zst(inner) {
		if _, err := l.lowerExpr(d.Operand); err != nil || l.terminated() {
			return Operand{}, err
		}
		return l.danglingPtr(ty, e), nil
	}
	p, err := l.lowerPlace(d.Operand)
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	kind := OperandAddrOf
	if d.Mutable {
		kind = OperandAddrOfMut
	}
	return Operand{Kind: kind, Type: ty, Place: p}, nil
}

func (l *funcLowerer) danglingPtr(ty types.TypeID, e *ast.Expr) Operand {
	one := Operand{Kind: OperandConst, Type: l.bt.Usize, Const: Const{Kind: ConstUint, Type: l.bt.Usize, Uint: 1}}
	return l.assignTemp(ty, RValue{Kind: RValueCast, Cast: CastOp{Kind: CastIntToPtr, Value: one, To: ty}}, e.Span)
}

func (l *funcLowerer) lowerStructLit(e *ast.Expr, d ast.StructLitData, ty types.TypeID) (Operand, error) {
	fields, ok := l.layout.Fields(ty)
	if !ok {
		return Operand{}, errorf(e.Span, "`%s` is not a struct", l.types.Label(ty))
	}
	index := func(name string) int {
		for i, f := range fields {
			if f.Name == name {
				return i
			}
		}
		return -1
	}
	exprs := make([]*ast.Expr, len(d.Fields))
	want := make([]types.TypeID, len(d.Fields))
	slots := make([]int, len(d.Fields))
	for i, init := range d.Fields {
		idx := index(init.Name)
		if idx < 0 {
			return Operand{}, errorf(init.Span, "unknown field `%s`", init.Name)
		}
		exprs[i], want[i], slots[i] = init.Value, fields[idx].Type, idx
	}
	ops, err := l.lowerOperands(exprs, want)
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	lit := StructLit{TypeID: ty}
	// initializers run in source order; the literal lists fields in layout order
	for idx := range fields {
		for i, slot := range slots {
			if slot == idx && ops[i].Kind != OperandZST {
				lit.Fields = append(lit.Fields, StructField{Index: idx, Value: ops[i]})
			}
		}
	}
	return l.assignTemp(ty, RValue{Kind: RValueStructLit, StructLit: lit}, e.Span), nil
}
