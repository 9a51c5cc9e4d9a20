// Package ast holds the resolved syntax tree the generic resolution engine
// consumes. Names are already bound: items reference each other by ItemID and
// locals by LocalID, and every written type is an interned types.TypeID that
// may still contain placeholders of the enclosing generic items.
package ast

import (
	"monogen/internal/cfg"
	"monogen/internal/source"
	"monogen/internal/types"
)

// ItemID identifies an item of the program.
type ItemID = types.ItemID

// NoItemID marks the absence of an item.
const NoItemID = types.NoItemID

// LocalID identifies a parameter or let binding. Ids are unique per program.
type LocalID uint32

// NoLocalID marks the absence of a local.
const NoLocalID LocalID = 0

// ItemKind enumerates item kinds.
type ItemKind uint8

const (
	ItemFn ItemKind = iota
	ItemStruct
	ItemEnum
	ItemProtocol
	// ItemAlias names a type. Aliases are expanded where they are written and
	// never reach instantiation.
	ItemAlias
	ItemStatic
	ItemConst
)

var itemKindNames = [...]string{
	ItemFn:       "fn",
	ItemStruct:   "struct",
	ItemEnum:     "enum",
	ItemProtocol: "protocol",
	ItemAlias:    "alias",
	ItemStatic:   "static",
	ItemConst:    "const",
}

func (k ItemKind) String() string {
	if int(k) < len(itemKindNames) {
		return itemKindNames[k]
	}
	return "item"
}

// IsGlobal reports statics and consts, the items an expression can read.
func (k ItemKind) IsGlobal() bool {
	return k == ItemStatic || k == ItemConst
}

// Bound requires a generic parameter to satisfy a protocol. Args instantiate
// the protocol's own parameters after Self.
type Bound struct {
	Protocol ItemID
	Args     []types.TypeID
	Span     source.Span
}

// GenericParam is one declared generic parameter.
type GenericParam struct {
	Name   string
	Type   types.TypeID // the placeholder
	Bounds []Bound
	Span   source.Span
}

// Field is a struct field.
type Field struct {
	Name string
	Type types.TypeID
	Cfg  *cfg.Predicate
	Span source.Span
}

// Variant is a fieldless enum variant.
type Variant struct {
	Name  string
	Value int64
	Cfg   *cfg.Predicate
	Span  source.Span
}

// Param is a function parameter.
type Param struct {
	Local LocalID
	Name  string
	Type  types.TypeID
	Span  source.Span
}

// Item is a generic item. Associated functions (methods, protocol
// requirements) are fn items with Owner set; their placeholders are the
// owner's generics followed by their own.
//
// Result is a function's result type, the declared type of a static or
// const, and the target of an alias. Body is a function body or the
// initializer of a static or const.
type Item struct {
	ID       ItemID
	Kind     ItemKind
	Name     string
	Span     source.Span
	Owner    ItemID
	Generics []GenericParam
	Cfg      *cfg.Predicate

	Fields   []Field   // struct
	Variants []Variant // enum
	Methods  []ItemID  // struct, enum, protocol

	Params []Param // fn
	Result types.TypeID
	Body   *Expr // nil for extern functions and statics, protocol requirements

	Mutable bool // static mut
}

// IsGeneric reports whether the item declares its own generic parameters.
func (it *Item) IsGeneric() bool {
	return len(it.Generics) > 0
}

// ParamTypes returns the declared parameter types.
func (it *Item) ParamTypes() []types.TypeID {
	out := make([]types.TypeID, len(it.Params))
	for i, p := range it.Params {
		out[i] = p.Type
	}
	return out
}

// Field returns the index of the named field, or -1.
func (it *Item) Field(name string) int {
	for i := range it.Fields {
		if it.Fields[i].Name == name {
			return i
		}
	}
	return -1
}
