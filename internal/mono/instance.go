package mono

import (
	"monogen/internal/ast"
	"monogen/internal/source"
	"monogen/internal/types"
)

// Field is a concrete struct field.
type Field struct {
	Name string
	Type types.TypeID
	Span source.Span
}

// Param is a concrete function parameter.
type Param struct {
	Local ast.LocalID
	Name  string
	Type  types.TypeID
}

// Instance is a fully concrete, cfg-pruned and type-checked item.
type Instance struct {
	Key    Key
	Item   *ast.Item
	Kind   ast.ItemKind
	Subst  types.Subst
	Name   string // display name, e.g. identity<i32>
	Symbol string // mangled, unique
	Type   types.TypeID

	Fields   []Field       // struct
	Variants []ast.Variant // enum

	Params []Param      // fn
	Result types.TypeID // fn result, or the type of a static or const
	Body   *ast.Expr    // fn body or initializer; nil when extern
	Info   *BodyInfo
}

// Adjust is the implicit receiver adjustment of a method call.
type Adjust uint8

const (
	AdjustNone   Adjust = iota
	AdjustRef           // &recv
	AdjustRefMut        // &mut recv
	AdjustDeref         // *recv
)

// MethodInfo records how a method call receiver is passed.
type MethodInfo struct {
	Adjust   Adjust
	Coercion types.Coercion
}

// BodyInfo holds the side tables produced while checking a body. Keys are the
// expressions of the instance's own substituted body.
type BodyInfo struct {
	Types   map[*ast.Expr]types.TypeID
	Callees map[*ast.Expr]Ref
	Globals map[*ast.Expr]Ref // static and const reads
	// Params holds the concrete parameter types of each call, receiver first.
	Params    map[*ast.Expr][]types.TypeID
	Coercions map[*ast.Expr]types.Coercion
	Receivers map[*ast.Expr]MethodInfo
	Derefs    map[*ast.Expr]bool // field/index/tuple access through a pointer
	Fields    map[*ast.Expr]int
	Variants  map[*ast.Expr]int64
	Locals    map[ast.LocalID]types.TypeID
}

func newBodyInfo() *BodyInfo {
	return &BodyInfo{
		Types:     make(map[*ast.Expr]types.TypeID),
		Callees:   make(map[*ast.Expr]Ref),
		Globals:   make(map[*ast.Expr]Ref),
		Params:    make(map[*ast.Expr][]types.TypeID),
		Coercions: make(map[*ast.Expr]types.Coercion),
		Receivers: make(map[*ast.Expr]MethodInfo),
		Derefs:    make(map[*ast.Expr]bool),
		Fields:    make(map[*ast.Expr]int),
		Variants:  make(map[*ast.Expr]int64),
		Locals:    make(map[ast.LocalID]types.TypeID),
	}
}

// TypeOf returns the checked type of e.
func (b *BodyInfo) TypeOf(e *ast.Expr) types.TypeID {
	if b == nil || e == nil {
		return types.NoTypeID
	}
	return b.Types[e]
}
