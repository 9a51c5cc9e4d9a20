package ast

import (
	"fmt"

	"fortio.org/safecast"

	"monogen/internal/source"
	"monogen/internal/types"
)

// Builder assembles a Program. It stands in for the upstream name resolver in
// loaders and tests.
type Builder struct {
	prog *Program
}

// NewBuilder starts an empty program sharing the given interner and file set.
func NewBuilder(name string, in *types.Interner, files *source.FileSet) *Builder {
	if in == nil {
		in = types.NewInterner()
	}
	if files == nil {
		files = source.NewFileSet()
	}
	return &Builder{prog: &Program{
		Name:   name,
		Items:  []*Item{nil},
		Types:  in,
		Files:  files,
		Locals: []string{""},
	}}
}

// Types returns the interner of the program under construction.
func (b *Builder) Types() *types.Interner {
	return b.prog.Types
}

// Program returns the program built so far.
func (b *Builder) Program() *Program {
	return b.prog
}

func (b *Builder) newItem(kind ItemKind, name string, owner *Item) *Item {
	n, err := safecast.Conv[uint32](len(b.prog.Items))
	if err != nil {
		panic(fmt.Errorf("item count overflow: %w", err))
	}
	it := &Item{ID: ItemID(n), Kind: kind, Name: name}
	if owner != nil {
		it.Owner = owner.ID
		owner.Methods = append(owner.Methods, it.ID)
	}
	b.prog.Items = append(b.prog.Items, it)
	b.prog.Types.NameItem(it.ID, b.prog.Path(it.ID))
	return it
}

// Fn declares a free function.
func (b *Builder) Fn(name string) *Item {
	return b.newItem(ItemFn, name, nil)
}

// Method declares an associated function of owner.
func (b *Builder) Method(owner *Item, name string) *Item {
	return b.newItem(ItemFn, name, owner)
}

// Struct declares a struct.
func (b *Builder) Struct(name string) *Item {
	return b.newItem(ItemStruct, name, nil)
}

// Enum declares a fieldless enum.
func (b *Builder) Enum(name string) *Item {
	return b.newItem(ItemEnum, name, nil)
}

// Alias declares a type alias of target. Generic parameters declared on the
// alias may occur in target.
func (b *Builder) Alias(name string) *Item {
	return b.newItem(ItemAlias, name, nil)
}

// Expand applies an alias to type arguments.
func (b *Builder) Expand(alias *Item, args ...types.TypeID) types.TypeID {
	if alias.Kind != ItemAlias || alias.Result == types.NoTypeID {
		return types.NoTypeID
	}
	return b.prog.Types.Substituter(types.NewSubst(b.prog.Placeholders(alias.ID), args)).Apply(alias.Result)
}

// Static declares a static of type ty. Without an initializer it is extern.
func (b *Builder) Static(name string, ty types.TypeID) *Item {
	it := b.newItem(ItemStatic, name, nil)
	it.Result = ty
	return it
}

// Const declares a constant of type ty.
func (b *Builder) Const(name string, ty types.TypeID) *Item {
	it := b.newItem(ItemConst, name, nil)
	it.Result = ty
	return it
}

// Protocol declares a protocol; its first generic parameter is Self.
func (b *Builder) Protocol(name string) *Item {
	it := b.newItem(ItemProtocol, name, nil)
	b.Generic(it, "Self")
	return it
}

// SelfType returns the Self placeholder of a protocol.
func (b *Builder) SelfType(proto *Item) types.TypeID {
	return proto.Generics[0].Type
}

// Generic declares the next generic parameter of it and returns its placeholder.
func (b *Builder) Generic(it *Item, name string, bounds ...Bound) types.TypeID {
	index := len(it.Generics)
	if it.Owner != NoItemID {
		index += len(b.prog.Generics(it.Owner))
	}
	ph := b.prog.Types.Placeholder(it.ID, index, name)
	it.Generics = append(it.Generics, GenericParam{Name: name, Type: ph, Bounds: bounds})
	return ph
}

// Bind returns a bound on proto with extra protocol arguments.
func (b *Builder) Bind(proto *Item, args ...types.TypeID) Bound {
	return Bound{Protocol: proto.ID, Args: args}
}

// Named applies a struct/enum/protocol item to type arguments.
func (b *Builder) Named(it *Item, args ...types.TypeID) types.TypeID {
	return b.prog.Types.Named(it.ID, args...)
}

// NewLocal allocates a local id.
func (b *Builder) NewLocal(name string) LocalID {
	n, err := safecast.Conv[uint32](len(b.prog.Locals))
	if err != nil {
		panic(fmt.Errorf("local count overflow: %w", err))
	}
	b.prog.Locals = append(b.prog.Locals, name)
	return LocalID(n)
}

// Param appends a parameter to fn and returns its local.
func (b *Builder) Param(fn *Item, name string, ty types.TypeID) LocalID {
	id := b.NewLocal(name)
	fn.Params = append(fn.Params, Param{Local: id, Name: name, Type: ty})
	return id
}

// Field appends a struct field.
func (b *Builder) Field(st *Item, name string, ty types.TypeID) *Field {
	st.Fields = append(st.Fields, Field{Name: name, Type: ty})
	return &st.Fields[len(st.Fields)-1]
}

// Variant appends an enum variant.
func (b *Builder) Variant(en *Item, name string, value int64) {
	en.Variants = append(en.Variants, Variant{Name: name, Value: value})
}

// Entry marks fn as a program entry point.
func (b *Builder) Entry(fn *Item) {
	b.prog.Entries = append(b.prog.Entries, fn.ID)
}

func expr(kind ExprKind, data ExprData) *Expr {
	return &Expr{Kind: kind, Data: data}
}

func (b *Builder) Void() *Expr { return &Expr{Kind: ExprVoid} }

// Int is an unsuffixed integer literal.
func (b *Builder) Int(v int64) *Expr { return expr(ExprLit, LitData{Kind: LitInt, Int: v}) }

// IntOf is an integer literal with a suffix type.
func (b *Builder) IntOf(v int64, ty types.TypeID) *Expr {
	return expr(ExprLit, LitData{Kind: LitInt, Int: v, Type: ty})
}

func (b *Builder) Float(v float64) *Expr { return expr(ExprLit, LitData{Kind: LitFloat, Float: v}) }
func (b *Builder) Bool(v bool) *Expr     { return expr(ExprLit, LitData{Kind: LitBool, Bool: v}) }
func (b *Builder) Str(s string) *Expr    { return expr(ExprLit, LitData{Kind: LitStr, Str: s}) }

func (b *Builder) Local(id LocalID) *Expr {
	return expr(ExprLocal, LocalData{Local: id, Name: b.prog.LocalName(id)})
}

func (b *Builder) FnRef(fn *Item, typeArgs ...types.TypeID) *Expr {
	return expr(ExprFnRef, FnRefData{Item: fn.ID, TypeArgs: typeArgs})
}

// Global reads a static or const.
func (b *Builder) Global(it *Item, typeArgs ...types.TypeID) *Expr {
	return expr(ExprGlobal, GlobalData{Item: it.ID, TypeArgs: typeArgs})
}

func (b *Builder) Call(callee *Expr, args ...*Expr) *Expr {
	return expr(ExprCall, CallData{Callee: callee, Args: args})
}

// CallFn calls fn directly, inferring its type arguments.
func (b *Builder) CallFn(fn *Item, args ...*Expr) *Expr {
	return b.Call(b.FnRef(fn), args...)
}

func (b *Builder) MethodCall(recv *Expr, name string, args ...*Expr) *Expr {
	return expr(ExprMethodCall, MethodCallData{Receiver: recv, Name: name, Args: args})
}

func (b *Builder) Unary(op UnaryOp, e *Expr) *Expr {
	return expr(ExprUnary, UnaryData{Op: op, Operand: e})
}

func (b *Builder) Binary(op BinaryOp, l, r *Expr) *Expr {
	return expr(ExprBinary, BinaryData{Op: op, Left: l, Right: r})
}

func (b *Builder) Ref(e *Expr, mutable bool) *Expr {
	return expr(ExprRef, RefData{Mutable: mutable, Operand: e})
}

func (b *Builder) Deref(e *Expr) *Expr { return expr(ExprDeref, DerefData{Operand: e}) }

// FieldOf is the field access `obj.name`.
func (b *Builder) FieldOf(obj *Expr, name string) *Expr {
	return expr(ExprField, FieldData{Object: obj, Name: name})
}

func (b *Builder) TupleIndex(obj *Expr, i int) *Expr {
	return expr(ExprTupleIndex, TupleIndexData{Object: obj, Index: i})
}

func (b *Builder) Index(obj, idx *Expr) *Expr {
	return expr(ExprIndex, IndexData{Object: obj, Index: idx})
}

func (b *Builder) Tuple(elems ...*Expr) *Expr { return expr(ExprTuple, TupleData{Elems: elems}) }
func (b *Builder) Array(elems ...*Expr) *Expr { return expr(ExprArray, ArrayData{Elems: elems}) }

func (b *Builder) StructLit(ty types.TypeID, fields ...FieldInit) *Expr {
	return expr(ExprStructLit, StructLitData{Type: ty, Fields: fields})
}

// Init is a struct literal field initializer.
func (b *Builder) Init(name string, v *Expr) FieldInit {
	return FieldInit{Name: name, Value: v}
}

func (b *Builder) EnumValue(ty types.TypeID, variant string) *Expr {
	return expr(ExprEnumValue, EnumValueData{Type: ty, Variant: variant})
}

func (b *Builder) Assign(target, value *Expr) *Expr {
	return expr(ExprAssign, AssignData{Target: target, Value: value})
}

func (b *Builder) AssignOp(op BinaryOp, target, value *Expr) *Expr {
	return expr(ExprAssign, AssignData{Op: op, Target: target, Value: value})
}

func (b *Builder) If(cond, then, els *Expr) *Expr {
	return expr(ExprIf, IfData{Cond: cond, Then: then, Else: els})
}

func (b *Builder) While(cond, body *Expr) *Expr {
	return expr(ExprWhile, WhileData{Cond: cond, Body: body})
}

func (b *Builder) Block(result *Expr, stmts ...*Stmt) *Expr {
	return expr(ExprBlock, BlockData{Stmts: stmts, Result: result})
}

func (b *Builder) Return(v *Expr) *Expr { return expr(ExprReturn, ReturnData{Value: v}) }

func (b *Builder) Cast(e *Expr, ty types.TypeID) *Expr {
	return expr(ExprCast, CastData{Operand: e, Type: ty})
}

func (b *Builder) When(ty types.TypeID, bound Bound, then, els *Expr) *Expr {
	return expr(ExprWhen, WhenData{Type: ty, Bound: bound, Then: then, Else: els})
}

// Let declares a new local; ty may be NoTypeID.
func (b *Builder) Let(name string, ty types.TypeID, value *Expr) (*Stmt, LocalID) {
	id := b.NewLocal(name)
	return &Stmt{Kind: StmtLet, Local: id, Name: name, Type: ty, Value: value}, id
}

func (b *Builder) Do(e *Expr) *Stmt {
	return &Stmt{Kind: StmtExpr, Value: e}
}
