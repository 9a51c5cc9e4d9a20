package ir

import (
	"monogen/internal/ast"
	"monogen/internal/types"
)

// InstrKind selects the active payload of an Instr.
type InstrKind uint8

const (
	InstrAssign InstrKind = iota // Dst = Src
	InstrCall                    // [Dst =] Callee(Args...)
	InstrNop
)

// Instr is one straight-line statement of a block.
type Instr struct {
	Kind   InstrKind
	Assign AssignInstr
	Call   CallInstr
}

type AssignInstr struct {
	Dst Place
	Src RValue
}

// CallInstr invokes Callee. Zero-sized arguments never reach Args, and Dst
// is unset for calls whose result has no storage.
type CallInstr struct {
	HasDst bool
	Dst    Place
	Callee Callee
	Args   []Operand
}

type CalleeKind uint8

const (
	CalleeSym   CalleeKind = iota // a materialized instance, by symbol
	CalleeValue                   // a function value held in Value
)

type Callee struct {
	Kind   CalleeKind
	Symbol string
	Name   string // display name for CalleeSym
	Value  Operand
}

type OperandKind uint8

const (
	OperandConst     OperandKind = iota
	OperandCopy                  // read Place
	OperandAddrOf                // &Place
	OperandAddrOfMut             // &mut Place
	OperandZST                   // zero-sized value, no storage
)

// Operand is a value an instruction reads. Place is meaningful for the
// copy and address kinds, Const for OperandConst.
type Operand struct {
	Kind  OperandKind
	Type  types.TypeID
	Const Const
	Place Place
}

type ConstKind uint8

const (
	ConstInt ConstKind = iota
	ConstUint
	ConstFloat
	ConstBool
	ConstString
	ConstEnum // discriminant, held in Int
)

// Const is a literal; only the field matching Kind is set.
type Const struct {
	Kind  ConstKind
	Type  types.TypeID
	Int   int64
	Uint  uint64
	Float float64
	Bool  bool
	Str   string
}

type RValueKind uint8

const (
	RValueUse RValueKind = iota
	RValueUnaryOp
	RValueBinaryOp
	RValueCast
	RValueStructLit
	RValueArrayLit
	RValueTupleLit
)

// RValue is the right-hand side of an assignment.
type RValue struct {
	Kind      RValueKind
	Use       Operand
	Unary     UnaryOp
	Binary    BinaryOp
	Cast      CastOp
	StructLit StructLit
	ArrayLit  ArrayLit
	TupleLit  TupleLit
}

type UnaryOp struct {
	Op      ast.UnaryOp
	Operand Operand
}

// BinaryOp evaluates both sides; && and || are lowered to branches instead.
type BinaryOp struct {
	Op          ast.BinaryOp
	Left, Right Operand
}

// CastKind covers written `as` casts and the coercions lowering makes
// explicit.
type CastKind uint8

const (
	CastIdentity CastKind = iota
	CastNumeric
	CastBoolToInt
	CastPtrToPtr
	CastPtrToInt
	CastIntToPtr
	CastConstPtr // &mut T to &T
	CastUnsize   // &[T; N] to &[T]
)

var castNames = [...]string{
	CastIdentity:  "identity",
	CastNumeric:   "numeric",
	CastBoolToInt: "bool_to_int",
	CastPtrToPtr:  "ptr",
	CastPtrToInt:  "ptr_to_int",
	CastIntToPtr:  "int_to_ptr",
	CastConstPtr:  "const_ptr",
	CastUnsize:    "unsize",
}

func (k CastKind) String() string {
	if int(k) < len(castNames) {
		return castNames[k]
	}
	return "?"
}

type CastOp struct {
	Kind  CastKind
	Value Operand
	To    types.TypeID
}

// StructField is a stored field of a struct literal by declaration index.
// Zero-sized fields are left out.
type StructField struct {
	Index int
	Value Operand
}

type StructLit struct {
	TypeID types.TypeID
	Fields []StructField
}

type ArrayLit struct {
	TypeID types.TypeID
	Elems  []Operand
}

// TupleLit holds the sized elements only; Indices[i] is the tuple position
// of Elems[i].
type TupleLit struct {
	TypeID  types.TypeID
	Elems   []Operand
	Indices []int
}
