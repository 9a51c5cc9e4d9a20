package mono

import (
	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/types"
)

func (c *checker) unary(e *ast.Expr, d ast.UnaryData, expected types.TypeID) types.TypeID {
	ty := c.expr(d.Operand, expected)
	if ty == types.NoTypeID {
		return ty
	}
	tt := c.in.MustLookup(ty)
	switch {
	case d.Op == ast.UnNeg && (tt.Kind == types.KindInt || tt.Kind == types.KindFloat):
		return ty
	case d.Op == ast.UnNot && (tt.Kind == types.KindBool || tt.IsInteger()):
		return ty
	}
	c.errorf(diag.ChkInvalidOperand, e.Span, "cannot apply unary `%s` to `%s`", d.Op, c.label(ty)).Emit()
	return types.NoTypeID
}

// operands types both sides of a binary operator. An untyped numeric literal
// on the left takes its type from the right operand.
func (c *checker) operands(d ast.BinaryData, expected types.TypeID) (types.TypeID, types.TypeID) {
	if d.Op == ast.BinShl || d.Op == ast.BinShr {
		return c.expr(d.Left, expected), c.expr(d.Right, types.NoTypeID)
	}
	if d.Op.IsComparison() {
		expected = types.NoTypeID
	}
	if untypedNumber(d.Left) && !untypedNumber(d.Right) {
		rt := c.expr(d.Right, expected)
		return c.expr(d.Left, rt), rt
	}
	lt := c.expr(d.Left, expected)
	return lt, c.expr(d.Right, lt)
}

func (c *checker) binary(e *ast.Expr, d ast.BinaryData, expected types.TypeID) types.TypeID {
	if d.Op.IsLogical() {
		c.expect(d.Left, c.bt.Bool)
		c.expect(d.Right, c.bt.Bool)
		return c.bt.Bool
	}
	lt, rt := c.operands(d, expected)
	if lt == types.NoTypeID || rt == types.NoTypeID {
		return types.NoTypeID
	}
	l, r := c.in.MustLookup(lt), c.in.MustLookup(rt)
	if d.Op == ast.BinShl || d.Op == ast.BinShr {
		if l.IsInteger() && r.IsInteger() {
			return lt
		}
		c.errorf(diag.ChkInvalidOperand, e.Span, "cannot shift `%s` by `%s`", c.label(lt), c.label(rt)).Emit()
		return types.NoTypeID
	}
	if lt != rt {
		c.errorf(diag.ChkTypeMismatch, e.Span, "mismatched operand types `%s` and `%s` for `%s`", c.label(lt), c.label(rt), d.Op).Emit()
		return types.NoTypeID
	}
	var valid bool
	switch d.Op {
	case ast.BinEq, ast.BinNeq:
		valid = l.IsNumeric() || l.Kind == types.KindBool || l.Kind == types.KindPointer || c.isEnum(lt)
	case ast.BinLt, ast.BinLEq, ast.BinGt, ast.BinGEq:
		valid = l.IsNumeric()
	case ast.BinAdd, ast.BinSub, ast.BinMul, ast.BinDiv, ast.BinMod:
		valid = l.IsNumeric()
	case ast.BinBitAnd, ast.BinBitOr, ast.BinBitXor:
		valid = l.IsInteger() || l.Kind == types.KindBool
	}
	if !valid {
		c.errorf(diag.ChkInvalidOperand, e.Span, "cannot apply `%s` to `%s`", d.Op, c.label(lt)).Emit()
		return types.NoTypeID
	}
	if d.Op.IsComparison() {
		return c.bt.Bool
	}
	return lt
}

func (c *checker) isEnum(ty types.TypeID) bool {
	tt, ok := c.in.Lookup(ty)
	if !ok || tt.Kind != types.KindNamed {
		return false
	}
	it := c.e.prog.Item(tt.Item)
	return it != nil && it.Kind == ast.ItemEnum
}

func (c *checker) ref(d ast.RefData, expected types.TypeID) types.TypeID {
	var inner types.TypeID
	if tt, ok := c.in.Lookup(expected); ok && tt.Kind == types.KindPointer {
		inner = tt.Elem
	}
	ty := c.expr(d.Operand, inner)
	if ty == types.NoTypeID {
		return types.NoTypeID
	}
	if d.Mutable && isPlace(d.Operand) && !c.mutablePlace(d.Operand) {
		c.errorf(diag.ChkNotAssignable, d.Operand.Span, "cannot borrow %s as mutable", c.immutableReason(d.Operand)).Emit()
	}
	return c.in.Ptr(ty, d.Mutable)
}

func (c *checker) deref(e *ast.Expr, d ast.DerefData) types.TypeID {
	ty := c.expr(d.Operand, types.NoTypeID)
	if ty == types.NoTypeID {
		return ty
	}
	tt := c.in.MustLookup(ty)
	if tt.Kind != types.KindPointer {
		c.errorf(diag.ChkInvalidOperand, e.Span, "cannot dereference `%s`", c.label(ty)).Emit()
		return types.NoTypeID
	}
	return tt.Elem
}

// autoDeref strips one pointer level from the object of a field, index or
// tuple access and records it.
func (c *checker) autoDeref(e, obj *ast.Expr) types.TypeID {
	ty := c.expr(obj, types.NoTypeID)
	if ty == types.NoTypeID {
		return ty
	}
	if tt := c.in.MustLookup(ty); tt.Kind == types.KindPointer {
		c.info.Derefs[e] = true
		return tt.Elem
	}
	return ty
}

func (c *checker) field(e *ast.Expr, d ast.FieldData) types.TypeID {
	ty := c.autoDeref(e, d.Object)
	if ty == types.NoTypeID {
		return ty
	}
	fields, ok := c.e.Fields(ty)
	if !ok {
		c.errorf(diag.ChkUnknownField, e.Span, "type `%s` has no fields", c.label(ty)).Emit()
		return types.NoTypeID
	}
	for i, f := range fields {
		if f.Name == d.Name {
			c.info.Fields[e] = i
			return f.Type
		}
	}
	c.errorf(diag.ChkUnknownField, e.Span, "no field `%s` on type `%s`", d.Name, c.label(ty)).Emit()
	return types.NoTypeID
}

func (c *checker) tupleIndex(e *ast.Expr, d ast.TupleIndexData) types.TypeID {
	ty := c.autoDeref(e, d.Object)
	if ty == types.NoTypeID {
		return ty
	}
	if c.in.Kind(ty) != types.KindTuple {
		c.errorf(diag.ChkTupleIndex, e.Span, "type `%s` is not a tuple", c.label(ty)).Emit()
		return types.NoTypeID
	}
	elems := c.in.Elems(ty)
	if d.Index < 0 || d.Index >= len(elems) {
		c.errorf(diag.ChkTupleIndex, e.Span, "tuple `%s` has no element %d", c.label(ty), d.Index).Emit()
		return types.NoTypeID
	}
	return elems[d.Index]
}

func (c *checker) index(e *ast.Expr, d ast.IndexData) types.TypeID {
	ty := c.autoDeref(e, d.Object)
	idx := c.expr(d.Index, c.bt.Usize)
	if ty == types.NoTypeID || idx == types.NoTypeID {
		return types.NoTypeID
	}
	if !c.in.MustLookup(idx).IsInteger() {
		c.errorf(diag.ChkInvalidOperand, d.Index.Span, "index must be an integer, found `%s`", c.label(idx)).Emit()
		return types.NoTypeID
	}
	switch tt := c.in.MustLookup(ty); tt.Kind {
	case types.KindArray, types.KindSlice:
		return tt.Elem
	}
	c.errorf(diag.ChkNotIndexable, e.Span, "cannot index into a value of type `%s`", c.label(ty)).Emit()
	return types.NoTypeID
}

func (c *checker) tuple(d ast.TupleData, expected types.TypeID) types.TypeID {
	want := c.in.Elems(expected)
	elems := make([]types.TypeID, len(d.Elems))
	for i, el := range d.Elems {
		var exp types.TypeID
		if len(want) == len(d.Elems) {
			exp = want[i]
		}
		elems[i] = c.expr(el, exp)
		if elems[i] == types.NoTypeID {
			return types.NoTypeID
		}
		if exp != types.NoTypeID && c.coerce(el, elems[i], exp) {
			elems[i] = exp
		}
	}
	return c.in.Tuple(elems...)
}

// array types an array literal. Without elements and without an expected
// element type the literal stays unknown.
func (c *checker) array(e *ast.Expr, d ast.ArrayData, expected types.TypeID) types.TypeID {
	var elem types.TypeID
	if tt, ok := c.in.Lookup(expected); ok && (tt.Kind == types.KindArray || tt.Kind == types.KindSlice) {
		elem = tt.Elem
	}
	for i, el := range d.Elems {
		got := c.expr(el, elem)
		if got == types.NoTypeID {
			return types.NoTypeID
		}
		if elem == types.NoTypeID && i == 0 {
			elem = got
			continue
		}
		if !c.coerce(el, got, elem) {
			return types.NoTypeID
		}
	}
	if elem == types.NoTypeID {
		return types.NoTypeID
	}
	n, err := countOf(len(d.Elems))
	if err != nil {
		c.errorf(diag.ChkInvalidOperand, e.Span, "array literal too long").Emit()
		return types.NoTypeID
	}
	return c.in.Array(elem, n)
}

func (c *checker) structLit(e *ast.Expr, d ast.StructLitData) types.TypeID {
	fields, ok := c.e.Fields(d.Type)
	if !ok {
		c.errorf(diag.ChkStructLit, e.Span, "`%s` is not a struct", c.label(d.Type)).Emit()
		return types.NoTypeID
	}
	if !c.e.requireType(c.ctx, d.Type, EdgeIndirect, e.Span) {
		c.ok = false
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, init := range d.Fields {
		idx := -1
		for i, f := range fields {
			if f.Name == init.Name {
				idx = i
				break
			}
		}
		switch {
		case idx < 0:
			c.errorf(diag.ChkUnknownField, init.Span, "no field `%s` on type `%s`", init.Name, c.label(d.Type)).Emit()
			c.expr(init.Value, types.NoTypeID)
			continue
		case seen[init.Name]:
			c.errorf(diag.ChkStructLit, init.Span, "field `%s` specified more than once", init.Name).Emit()
		}
		seen[init.Name] = true
		c.expect(init.Value, fields[idx].Type)
	}
	for _, f := range fields {
		if !seen[f.Name] {
			c.errorf(diag.ChkStructLit, e.Span, "missing field `%s` in initializer of `%s`", f.Name, c.label(d.Type)).Emit()
		}
	}
	return d.Type
}

func (c *checker) enumValue(e *ast.Expr, d ast.EnumValueData) types.TypeID {
	tt, ok := c.in.Lookup(d.Type)
	var item *ast.Item
	if ok && tt.Kind == types.KindNamed {
		item = c.e.prog.Item(tt.Item)
	}
	if item == nil || item.Kind != ast.ItemEnum {
		c.errorf(diag.ChkUnknownVariant, e.Span, "`%s` is not an enum", c.label(d.Type)).Emit()
		return types.NoTypeID
	}
	if !c.e.requireType(c.ctx, d.Type, EdgeIndirect, e.Span) {
		c.ok = false
	}
	for _, v := range item.Variants {
		if v.Name == d.Variant && c.e.sess.Active(v.Cfg) {
			c.info.Variants[e] = v.Value
			return d.Type
		}
	}
	c.errorf(diag.ChkUnknownVariant, e.Span, "no variant `%s` in `%s`", d.Variant, c.label(d.Type)).Emit()
	return types.NoTypeID
}

func (c *checker) assign(e *ast.Expr, d ast.AssignData) types.TypeID {
	target := c.expr(d.Target, types.NoTypeID)
	if !isPlace(d.Target) {
		c.errorf(diag.ChkNotAPlace, d.Target.Span, "invalid left-hand side of assignment").Emit()
		c.expr(d.Value, target)
		return c.bt.Void
	}
	if !c.mutablePlace(d.Target) {
		c.errorf(diag.ChkNotAssignable, d.Target.Span, "cannot assign %s", c.immutableReason(d.Target)).Emit()
	}
	if target == types.NoTypeID {
		c.expr(d.Value, types.NoTypeID)
		return c.bt.Void
	}
	if d.Op == ast.BinNone {
		c.expect(d.Value, target)
		return c.bt.Void
	}
	tt := c.in.MustLookup(target)
	switch {
	case d.Op == ast.BinShl || d.Op == ast.BinShr:
		vt := c.expr(d.Value, types.NoTypeID)
		if vt != types.NoTypeID && (!tt.IsInteger() || !c.in.MustLookup(vt).IsInteger()) {
			c.errorf(diag.ChkInvalidOperand, e.Span, "cannot shift `%s` by `%s`", c.label(target), c.label(vt)).Emit()
		}
	case d.Op.IsComparison() || d.Op.IsLogical():
		c.errorf(diag.ChkInvalidOperand, e.Span, "`%s=` is not an assignment operator", d.Op).Emit()
	default:
		c.expect(d.Value, target)
		if !tt.IsNumeric() && !(tt.Kind == types.KindBool && (d.Op == ast.BinBitAnd || d.Op == ast.BinBitOr || d.Op == ast.BinBitXor)) {
			c.errorf(diag.ChkInvalidOperand, e.Span, "cannot apply `%s=` to `%s`", d.Op, c.label(target)).Emit()
		}
	}
	return c.bt.Void
}

func (c *checker) cast(e *ast.Expr, d ast.CastData) types.TypeID {
	var hint types.TypeID
	if untypedNumber(d.Operand) && c.in.MustLookup(d.Type).IsNumeric() {
		hint = d.Type
	}
	from := c.expr(d.Operand, hint)
	if from == types.NoTypeID {
		return d.Type
	}
	if !c.in.CastAllowed(d.Type, from) {
		c.errorf(diag.ChkInvalidCast, e.Span, "cannot cast `%s` as `%s`", c.label(from), c.label(d.Type)).Emit()
	}
	return d.Type
}

// isPlace reports expressions that denote storage. Consts are globals too;
// mutablePlace rejects writing them.
func isPlace(e *ast.Expr) bool {
	switch d := e.Data.(type) {
	case ast.LocalData, ast.DerefData, ast.GlobalData:
		return true
	case ast.FieldData:
		return isPlace(d.Object) || isPointerValue(d.Object)
	case ast.TupleIndexData:
		return isPlace(d.Object) || isPointerValue(d.Object)
	case ast.IndexData:
		return isPlace(d.Object) || isPointerValue(d.Object)
	}
	return false
}

// isPointerValue is a syntactic guess refined by mutablePlace, which knows
// the checked types.
func isPointerValue(e *ast.Expr) bool {
	switch e.Data.(type) {
	case ast.CallData, ast.MethodCallData, ast.RefData:
		return true
	}
	return false
}

// mutablePlace reports whether a place may be written: locals always,
// globals when they are `static mut`, places reached through a pointer only
// when it is &mut.
func (c *checker) mutablePlace(e *ast.Expr) bool {
	switch d := e.Data.(type) {
	case ast.LocalData:
		return true
	case ast.GlobalData:
		it := c.e.prog.Item(d.Item)
		return it != nil && it.Kind == ast.ItemStatic && it.Mutable
	case ast.DerefData:
		tt, ok := c.in.Lookup(c.info.Types[d.Operand])
		return !ok || tt.Mutable
	case ast.FieldData:
		return c.projMutable(e, d.Object)
	case ast.TupleIndexData:
		return c.projMutable(e, d.Object)
	case ast.IndexData:
		return c.projMutable(e, d.Object)
	}
	return false
}

func (c *checker) projMutable(e, obj *ast.Expr) bool {
	if c.info.Derefs[e] {
		tt, ok := c.in.Lookup(c.info.Types[obj])
		return !ok || tt.Mutable
	}
	return c.mutablePlace(obj)
}

// immutableReason names the root that makes a place read-only.
func (c *checker) immutableReason(e *ast.Expr) string {
	for {
		switch d := e.Data.(type) {
		case ast.GlobalData:
			if it := c.e.prog.Item(d.Item); it != nil && it.Kind == ast.ItemConst {
				return "to constant " + c.e.itemLabel(d.Item)
			}
			return "to immutable static " + c.e.itemLabel(d.Item)
		case ast.FieldData:
			if c.info.Derefs[e] {
				return "through `&` pointer"
			}
			e = d.Object
		case ast.TupleIndexData:
			if c.info.Derefs[e] {
				return "through `&` pointer"
			}
			e = d.Object
		case ast.IndexData:
			if c.info.Derefs[e] {
				return "through `&` pointer"
			}
			e = d.Object
		default:
			return "through `&` pointer"
		}
	}
}
