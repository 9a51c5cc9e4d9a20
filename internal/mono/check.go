package mono

import (
	"context"
	"fmt"

	"fortio.org/safecast"

	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/source"
	"monogen/internal/types"
)

// checker types one substituted function body. Every expression it visits
// gets an entry in BodyInfo.Types; NoTypeID stands for "unknown", either
// because an error was reported or because nothing constrains the value yet.
type checker struct {
	ctx  context.Context
	e    *Engine
	in   *types.Interner
	bt   types.Builtins
	inst *Instance
	info *BodyInfo
	ok   bool
}

func newChecker(ctx context.Context, e *Engine, inst *Instance) *checker {
	return &checker{
		ctx:  ctx,
		e:    e,
		in:   e.types,
		bt:   e.types.Builtins(),
		inst: inst,
		info: newBodyInfo(),
		ok:   true,
	}
}

func (c *checker) errorf(code diag.Code, span source.Span, format string, args ...any) *diag.ReportBuilder {
	c.ok = false
	return diag.ReportError(c.e.sess, code, span, fmt.Sprintf(format, args...))
}

func (c *checker) label(ty types.TypeID) string {
	return c.in.Label(ty)
}

func (c *checker) checkBody() (*BodyInfo, bool) {
	for _, p := range c.inst.Params {
		c.info.Locals[p.Local] = p.Type
	}
	got := c.expr(c.inst.Body, c.inst.Result)
	c.coerce(c.inst.Body, got, c.inst.Result)
	return c.info, c.ok
}

// coerce checks that a value of type got may flow where want is expected and
// records the implicit conversion on e.
func (c *checker) coerce(e *ast.Expr, got, want types.TypeID) bool {
	if got == types.NoTypeID || want == types.NoTypeID {
		return true
	}
	co, ok := c.in.AssignableFrom(want, got)
	if !ok {
		c.errorf(diag.ChkTypeMismatch, e.Span, "mismatched types: expected `%s`, found `%s`", c.label(want), c.label(got)).Emit()
		return false
	}
	if co != types.CoerceNone {
		c.info.Coercions[e] = co
	}
	return true
}

// expect checks e against want, coercing when needed.
func (c *checker) expect(e *ast.Expr, want types.TypeID) types.TypeID {
	got := c.expr(e, want)
	if got == types.NoTypeID {
		return types.NoTypeID
	}
	if !c.coerce(e, got, want) {
		return types.NoTypeID
	}
	return want
}

func (c *checker) expr(e *ast.Expr, expected types.TypeID) types.TypeID {
	if e == nil {
		return c.bt.Void
	}
	ty := c.exprKind(e, expected)
	c.info.Types[e] = ty
	return ty
}

func (c *checker) exprKind(e *ast.Expr, expected types.TypeID) types.TypeID {
	switch d := e.Data.(type) {
	case nil:
		return c.bt.Void
	case ast.LitData:
		return c.literal(d, expected)
	case ast.LocalData:
		ty, ok := c.info.Locals[d.Local]
		if !ok {
			c.errorf(diag.ChkUnknownLocal, e.Span, "unknown local `%s`", d.Name).Emit()
			return types.NoTypeID
		}
		return ty
	case ast.FnRefData:
		return c.fnRef(e, d)
	case ast.GlobalData:
		return c.global(e, d)
	case ast.CallData:
		return c.call(e, d, expected)
	case ast.MethodCallData:
		return c.methodCall(e, d, expected)
	case ast.UnaryData:
		return c.unary(e, d, expected)
	case ast.BinaryData:
		return c.binary(e, d, expected)
	case ast.RefData:
		return c.ref(d, expected)
	case ast.DerefData:
		return c.deref(e, d)
	case ast.FieldData:
		return c.field(e, d)
	case ast.TupleIndexData:
		return c.tupleIndex(e, d)
	case ast.IndexData:
		return c.index(e, d)
	case ast.TupleData:
		return c.tuple(d, expected)
	case ast.ArrayData:
		return c.array(e, d, expected)
	case ast.StructLitData:
		return c.structLit(e, d)
	case ast.EnumValueData:
		return c.enumValue(e, d)
	case ast.AssignData:
		return c.assign(e, d)
	case ast.IfData:
		return c.ifExpr(e, d, expected)
	case ast.WhileData:
		c.expect(d.Cond, c.bt.Bool)
		c.expr(d.Body, types.NoTypeID)
		return c.bt.Void
	case ast.BlockData:
		return c.block(d, expected)
	case ast.ReturnData:
		c.returnExpr(e, d)
		return c.bt.Never
	case ast.CastData:
		return c.cast(e, d)
	case ast.WhenData:
		return c.when(e, d, expected)
	}
	types.Internalf(diag.InternalError, "check", "unexpected expression %s", e.Kind)
	return types.NoTypeID
}

func (c *checker) literal(d ast.LitData, expected types.TypeID) types.TypeID {
	switch d.Kind {
	case ast.LitInt:
		if d.Type != types.NoTypeID {
			return d.Type
		}
		if tt, ok := c.in.Lookup(expected); ok && tt.IsNumeric() {
			return expected
		}
		return c.bt.I32
	case ast.LitFloat:
		if d.Type != types.NoTypeID {
			return d.Type
		}
		if tt, ok := c.in.Lookup(expected); ok && tt.Kind == types.KindFloat {
			return expected
		}
		return c.bt.F64
	case ast.LitBool:
		return c.bt.Bool
	case ast.LitStr:
		return c.in.Ptr(c.in.Slice(c.bt.U8), false)
	}
	return types.NoTypeID
}

// untypedNumber reports literals whose type comes from context.
func untypedNumber(e *ast.Expr) bool {
	d, ok := e.Data.(ast.LitData)
	return ok && d.Type == types.NoTypeID && (d.Kind == ast.LitInt || d.Kind == ast.LitFloat)
}

func (c *checker) block(d ast.BlockData, expected types.TypeID) types.TypeID {
	diverges := false
	for _, s := range d.Stmts {
		var ty types.TypeID
		switch s.Kind {
		case ast.StmtLet:
			ty = c.let(s)
		default:
			ty = c.expr(s.Value, types.NoTypeID)
		}
		if c.in.IsDivergent(ty) {
			diverges = true
		}
	}
	if d.Result != nil {
		ty := c.expr(d.Result, expected)
		if diverges && ty != types.NoTypeID {
			return c.bt.Never
		}
		return ty
	}
	if diverges {
		return c.bt.Never
	}
	return c.bt.Void
}

// let types a binding and returns the initializer type.
func (c *checker) let(s *ast.Stmt) types.TypeID {
	mark := c.e.sess.ErrorMark()
	if s.Value == nil {
		if s.Type == types.NoTypeID {
			c.errorf(diag.ChkCannotInfer, s.Span, "type annotations needed for `%s`", s.Name).Emit()
		}
		c.info.Locals[s.Local] = s.Type
		return c.bt.Void
	}
	got := c.expr(s.Value, s.Type)
	if s.Type != types.NoTypeID {
		c.coerce(s.Value, got, s.Type)
		c.info.Locals[s.Local] = s.Type
		return got
	}
	if got == types.NoTypeID && c.e.sess.ErrorMark() == mark {
		c.errorf(diag.ChkCannotInfer, s.Span, "type annotations needed for `%s`", s.Name).Emit()
	}
	c.info.Locals[s.Local] = got
	return got
}

func (c *checker) returnExpr(e *ast.Expr, d ast.ReturnData) {
	if c.inst.Kind != ast.ItemFn {
		c.errorf(diag.ChkInvalidOperand, e.Span, "`return` in the initializer of `%s`", c.inst.Name).Emit()
		return
	}
	want := c.inst.Result
	if d.Value == nil {
		if want != c.bt.Void && !c.in.IsDivergent(want) {
			c.errorf(diag.ChkMissingValue, e.Span, "`return` without a value in a function returning `%s`", c.label(want)).Emit()
		}
		return
	}
	got := c.expr(d.Value, want)
	c.coerce(d.Value, got, want)
}

func (c *checker) ifExpr(e *ast.Expr, d ast.IfData, expected types.TypeID) types.TypeID {
	c.expect(d.Cond, c.bt.Bool)
	if d.Else == nil {
		c.expr(d.Then, types.NoTypeID)
		return c.bt.Void
	}
	tt := c.expr(d.Then, expected)
	et := c.expr(d.Else, expected)
	if tt == types.NoTypeID || et == types.NoTypeID {
		return types.NoTypeID
	}
	joined, ok := c.in.Join(tt, et)
	if !ok {
		c.errorf(diag.ChkTypeMismatch, e.Span, "`if` and `else` have incompatible types `%s` and `%s`", c.label(tt), c.label(et)).Emit()
		return types.NoTypeID
	}
	c.coerce(d.Then, tt, joined)
	c.coerce(d.Else, et, joined)
	return joined
}

// when resolves a structural type test and splices the taken branch in place
// of the test, so the other branch is never checked or lowered.
func (c *checker) when(e *ast.Expr, d ast.WhenData, expected types.TypeID) types.TypeID {
	if c.in.ContainsPlaceholder(d.Type) {
		types.Internalf(diag.InternalMissingSubst, "check", "`when` on non-concrete type `%s`", c.label(d.Type))
	}
	taken := d.Else
	proto := c.e.prog.Item(d.Bound.Protocol)
	if proto == nil || proto.Kind != ast.ItemProtocol {
		c.errorf(diag.ConfNotAProtocol, d.Bound.Span, "%s is not a protocol", c.e.itemLabel(d.Bound.Protocol)).Emit()
		return types.NoTypeID
	}
	if c.e.conf.Satisfies(c.ctx, d.Type, d.Bound, e.Span).Satisfied() {
		taken = d.Then
	}
	span := e.Span
	if taken == nil {
		*e = ast.Expr{Kind: ast.ExprVoid, Span: span}
	} else {
		*e = *taken
	}
	return c.exprKind(e, expected)
}

func countOf(n int) (uint32, error) {
	return safecast.Conv[uint32](n)
}
