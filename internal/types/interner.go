package types

import (
	"fmt"
	"strconv"
	"strings"

	"fortio.org/safecast"
)

// Builtins holds the TypeIDs of the primitive types.
type Builtins struct {
	Void, Never, Bool              TypeID
	I8, I16, I32, I64, I128, Isize TypeID
	U8, U16, U32, U64, U128, Usize TypeID
	F32, F64                       TypeID
}

// Interner provides stable TypeIDs keyed by structural descriptors. It is
// append-only: a TypeID, once handed out, always denotes the same type.
type Interner struct {
	types     []Type
	index     map[Type]TypeID
	lists     [][]TypeID
	listIndex map[string]ListID
	builtins  Builtins

	itemNames map[ItemID]string
	phNames   map[TypeID]string
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:     make(map[Type]TypeID, 64),
		lists:     [][]TypeID{nil}, // slot 0 is the empty list
		listIndex: map[string]ListID{"": EmptyList},
		itemNames: make(map[ItemID]string),
		phNames:   make(map[TypeID]string),
	}
	in.internRaw(Type{Kind: KindInvalid}) // reserve NoTypeID
	b := &in.builtins
	for _, p := range []struct {
		slot *TypeID
		t    Type
	}{
		{&b.Void, Type{Kind: KindVoid}},
		{&b.Never, Type{Kind: KindNever}},
		{&b.Bool, Type{Kind: KindBool}},
		{&b.I8, numeric(KindInt, Width8)},
		{&b.I16, numeric(KindInt, Width16)},
		{&b.I32, numeric(KindInt, Width32)},
		{&b.I64, numeric(KindInt, Width64)},
		{&b.I128, numeric(KindInt, Width128)},
		{&b.Isize, numeric(KindInt, WidthSize)},
		{&b.U8, numeric(KindUint, Width8)},
		{&b.U16, numeric(KindUint, Width16)},
		{&b.U32, numeric(KindUint, Width32)},
		{&b.U64, numeric(KindUint, Width64)},
		{&b.U128, numeric(KindUint, Width128)},
		{&b.Usize, numeric(KindUint, WidthSize)},
		{&b.F32, numeric(KindFloat, Width32)},
		{&b.F64, numeric(KindFloat, Width64)},
	} {
		*p.slot = in.Intern(p.t)
	}
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Len reports how many types were interned, including NoTypeID.
func (in *Interner) Len() int {
	return len(in.types)
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic(&InternalError{Op: "lookup", Detail: fmt.Sprintf("invalid TypeID %d", id)})
	}
	return tt
}

// Kind is a shortcut for MustLookup(id).Kind that tolerates NoTypeID.
func (in *Interner) Kind(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}

// InternList returns the id of an immutable list equal to ids.
func (in *Interner) InternList(ids []TypeID) ListID {
	if len(ids) == 0 {
		return EmptyList
	}
	key := listKey(ids)
	if id, ok := in.listIndex[key]; ok {
		return id
	}
	slot, err := safecast.Conv[uint32](len(in.lists))
	if err != nil {
		panic(fmt.Errorf("type list overflow: %w", err))
	}
	in.lists = append(in.lists, append([]TypeID(nil), ids...))
	in.listIndex[key] = ListID(slot)
	return ListID(slot)
}

// List returns the elements of an interned list. Callers must not modify it.
func (in *Interner) List(id ListID) []TypeID {
	if int(id) >= len(in.lists) {
		return nil
	}
	return in.lists[id]
}

func listKey(ids []TypeID) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(id), 10))
	}
	return b.String()
}

// NameItem records the display name of an item for labels.
func (in *Interner) NameItem(item ItemID, name string) {
	in.itemNames[item] = name
}

// ItemName returns the display name registered for item.
func (in *Interner) ItemName(item ItemID) string {
	if name, ok := in.itemNames[item]; ok {
		return name
	}
	return fmt.Sprintf("item%d", item)
}
