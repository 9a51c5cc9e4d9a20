package types

import "fmt"

// TypeID names an interned type. IDs are dense and never reused.
type TypeID uint32

// NoTypeID is "no type" and also "not inferred yet".
const NoTypeID TypeID = 0

// ItemID names a struct, enum, protocol or function of the program. Types
// refer to items only through it.
type ItemID uint32

const NoItemID ItemID = 0

// ListID names an interned TypeID list; EmptyList is always 0.
type ListID uint32

const EmptyList ListID = 0

type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindNever
	KindBool
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindArray
	KindSlice
	KindTuple
	KindNamed
	KindFn
	KindPlaceholder
	KindFnItem
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindVoid:        "void",
	KindNever:       "never",
	KindBool:        "bool",
	KindInt:         "int",
	KindUint:        "uint",
	KindFloat:       "float",
	KindPointer:     "pointer",
	KindArray:       "array",
	KindSlice:       "slice",
	KindTuple:       "tuple",
	KindNamed:       "named",
	KindFn:          "fn",
	KindPlaceholder: "placeholder",
	KindFnItem:      "fn item",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Width is the bit size of a numeric primitive. WidthSize is the
// pointer-sized isize/usize.
type Width uint8

const (
	Width8    Width = 8
	Width16   Width = 16
	Width32   Width = 32
	Width64   Width = 64
	Width128  Width = 128
	WidthSize Width = 255
)

// Type is the structural descriptor and the interning key at once. List
// payloads are interned separately so equal types compare equal with ==.
//
// Field use per kind:
//
//	Pointer      Elem, Mutable
//	Array        Elem, Count
//	Slice        Elem
//	Tuple        List
//	Named        Item, List (type arguments)
//	Fn           List (params), Elem (result)
//	FnItem       Item, List (type arguments)
//	Placeholder  Item (owner), Count (parameter index)
type Type struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Mutable bool
	Item    ItemID
	List    ListID
}

func numeric(kind Kind, w Width) Type { return Type{Kind: kind, Width: w} }

func (t Type) IsInteger() bool { return t.Kind == KindInt || t.Kind == KindUint }

func (t Type) IsNumeric() bool { return t.IsInteger() || t.Kind == KindFloat }
