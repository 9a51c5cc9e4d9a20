package ast

import (
	"monogen/internal/source"
	"monogen/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	ExprVoid ExprKind = iota
	ExprLit
	ExprLocal
	// ExprFnRef names a function item, optionally with explicit type arguments.
	ExprFnRef
	// ExprGlobal reads a static or const item.
	ExprGlobal
	ExprCall
	// ExprMethodCall is `recv.name(args)`, resolved against the receiver type.
	ExprMethodCall
	ExprUnary
	ExprBinary
	ExprRef
	ExprDeref
	ExprField
	ExprTupleIndex
	ExprIndex
	ExprTuple
	ExprArray
	ExprStructLit
	ExprEnumValue
	ExprAssign
	ExprIf
	ExprWhile
	ExprBlock
	ExprReturn
	ExprCast
	// ExprWhen is a structural type test: `when T: Bound { a } else { b }`.
	ExprWhen
)

func (k ExprKind) String() string {
	switch k {
	case ExprVoid:
		return "Void"
	case ExprLit:
		return "Lit"
	case ExprLocal:
		return "Local"
	case ExprFnRef:
		return "FnRef"
	case ExprGlobal:
		return "Global"
	case ExprCall:
		return "Call"
	case ExprMethodCall:
		return "MethodCall"
	case ExprUnary:
		return "Unary"
	case ExprBinary:
		return "Binary"
	case ExprRef:
		return "Ref"
	case ExprDeref:
		return "Deref"
	case ExprField:
		return "Field"
	case ExprTupleIndex:
		return "TupleIndex"
	case ExprIndex:
		return "Index"
	case ExprTuple:
		return "Tuple"
	case ExprArray:
		return "Array"
	case ExprStructLit:
		return "StructLit"
	case ExprEnumValue:
		return "EnumValue"
	case ExprAssign:
		return "Assign"
	case ExprIf:
		return "If"
	case ExprWhile:
		return "While"
	case ExprBlock:
		return "Block"
	case ExprReturn:
		return "Return"
	case ExprCast:
		return "Cast"
	case ExprWhen:
		return "When"
	default:
		return "Unknown"
	}
}

// Expr is a resolved expression.
type Expr struct {
	Kind ExprKind
	Span source.Span
	Data ExprData
}

// ExprData is the kind-specific payload.
type ExprData interface {
	exprData()
}

// LitKind enumerates literal kinds.
type LitKind uint8

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitStr
)

// LitData holds a literal. Type is the suffix type (`1u8`) or NoTypeID.
type LitData struct {
	Kind  LitKind
	Int   int64
	Float float64
	Bool  bool
	Str   string
	Type  types.TypeID
}

func (LitData) exprData() {}

type LocalData struct {
	Local LocalID
	Name  string
}

func (LocalData) exprData() {}

// FnRefData names a function item. TypeArgs is empty (infer everything) or
// covers every placeholder of the item, owner's first.
type FnRefData struct {
	Item     ItemID
	TypeArgs []types.TypeID
}

func (FnRefData) exprData() {}

// GlobalData names a static or const. TypeArgs covers every placeholder of
// the item; globals are never inferred.
type GlobalData struct {
	Item     ItemID
	TypeArgs []types.TypeID
}

func (GlobalData) exprData() {}

type CallData struct {
	Callee *Expr
	Args   []*Expr
}

func (CallData) exprData() {}

// MethodCallData is `Receiver.Name::<TypeArgs>(Args)`. TypeArgs covers only
// the method's own generic parameters.
type MethodCallData struct {
	Receiver *Expr
	Name     string
	TypeArgs []types.TypeID
	Args     []*Expr
}

func (MethodCallData) exprData() {}

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnNeg UnaryOp = iota
	UnNot
)

func (op UnaryOp) String() string {
	if op == UnNeg {
		return "-"
	}
	return "!"
}

type UnaryData struct {
	Op      UnaryOp
	Operand *Expr
}

func (UnaryData) exprData() {}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinNone BinaryOp = iota
	BinAnd
	BinOr
	BinBitAnd
	BinBitOr
	BinBitXor
	BinEq
	BinNeq
	BinLt
	BinLEq
	BinGt
	BinGEq
	BinShl
	BinShr
	BinAdd
	BinSub
	BinMul
	BinDiv
	BinMod
)

var binaryOpText = [...]string{
	BinNone:   "",
	BinAnd:    "&&",
	BinOr:     "||",
	BinBitAnd: "&",
	BinBitOr:  "|",
	BinBitXor: "^",
	BinEq:     "==",
	BinNeq:    "!=",
	BinLt:     "<",
	BinLEq:    "<=",
	BinGt:     ">",
	BinGEq:    ">=",
	BinShl:    "<<",
	BinShr:    ">>",
	BinAdd:    "+",
	BinSub:    "-",
	BinMul:    "*",
	BinDiv:    "/",
	BinMod:    "%",
}

func (op BinaryOp) String() string {
	if int(op) < len(binaryOpText) {
		return binaryOpText[op]
	}
	return "?"
}

// ParseBinaryOp maps operator text back to a BinaryOp.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, text := range binaryOpText {
		if text == s && i != int(BinNone) {
			return BinaryOp(i), true
		}
	}
	return BinNone, false
}

// IsComparison reports ==, !=, <, <=, >, >=.
func (op BinaryOp) IsComparison() bool {
	return op >= BinEq && op <= BinGEq
}

// IsLogical reports the short-circuiting && and ||.
func (op BinaryOp) IsLogical() bool {
	return op == BinAnd || op == BinOr
}

type BinaryData struct {
	Op    BinaryOp
	Left  *Expr
	Right *Expr
}

func (BinaryData) exprData() {}

type RefData struct {
	Mutable bool
	Operand *Expr
}

func (RefData) exprData() {}

type DerefData struct {
	Operand *Expr
}

func (DerefData) exprData() {}

type FieldData struct {
	Object *Expr
	Name   string
}

func (FieldData) exprData() {}

type TupleIndexData struct {
	Object *Expr
	Index  int
}

func (TupleIndexData) exprData() {}

type IndexData struct {
	Object *Expr
	Index  *Expr
}

func (IndexData) exprData() {}

type TupleData struct {
	Elems []*Expr
}

func (TupleData) exprData() {}

type ArrayData struct {
	Elems []*Expr
}

func (ArrayData) exprData() {}

// FieldInit is one `name: value` entry of a struct literal.
type FieldInit struct {
	Name  string
	Value *Expr
	Span  source.Span
}

type StructLitData struct {
	Type   types.TypeID
	Fields []FieldInit
}

func (StructLitData) exprData() {}

type EnumValueData struct {
	Type    types.TypeID
	Variant string
}

func (EnumValueData) exprData() {}

// AssignData is `target = value` (Op == BinNone) or `target op= value`.
type AssignData struct {
	Op     BinaryOp
	Target *Expr
	Value  *Expr
}

func (AssignData) exprData() {}

// IfData is `if cond { then } else { else }`; Else may be nil.
type IfData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (IfData) exprData() {}

type WhileData struct {
	Cond *Expr
	Body *Expr
}

func (WhileData) exprData() {}

// BlockData is a sequence of statements with an optional tail expression.
type BlockData struct {
	Stmts  []*Stmt
	Result *Expr
}

func (BlockData) exprData() {}

type ReturnData struct {
	Value *Expr // nil returns void
}

func (ReturnData) exprData() {}

type CastData struct {
	Operand *Expr
	Type    types.TypeID
}

func (CastData) exprData() {}

// WhenData selects Then when Type satisfies Bound, Else otherwise. The test is
// decided after substitution, and the untaken branch is never checked.
type WhenData struct {
	Type  types.TypeID
	Bound Bound
	Then  *Expr
	Else  *Expr
}

func (WhenData) exprData() {}
