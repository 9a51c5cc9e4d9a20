package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Ptr interns &T or &mut T.
func (in *Interner) Ptr(elem TypeID, mutable bool) TypeID {
	return in.Intern(Type{Kind: KindPointer, Elem: elem, Mutable: mutable})
}

// Array interns [T; n].
func (in *Interner) Array(elem TypeID, n uint32) TypeID {
	return in.Intern(Type{Kind: KindArray, Elem: elem, Count: n})
}

// Slice interns [T].
func (in *Interner) Slice(elem TypeID) TypeID {
	return in.Intern(Type{Kind: KindSlice, Elem: elem})
}

// Tuple interns (T1, ..., Tn). The empty tuple is a distinct zero-sized type.
func (in *Interner) Tuple(elems ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindTuple, List: in.InternList(elems)})
}

// Named interns a reference to a struct/enum/protocol item applied to args.
func (in *Interner) Named(item ItemID, args ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindNamed, Item: item, List: in.InternList(args)})
}

// Fn interns a function signature type.
func (in *Interner) Fn(params []TypeID, result TypeID) TypeID {
	return in.Intern(Type{Kind: KindFn, Elem: result, List: in.InternList(params)})
}

// FnItem interns the zero-sized type naming one function item applied to args.
func (in *Interner) FnItem(item ItemID, args ...TypeID) TypeID {
	return in.Intern(Type{Kind: KindFnItem, Item: item, List: in.InternList(args)})
}

// Placeholder interns the index-th generic parameter of owner.
func (in *Interner) Placeholder(owner ItemID, index int, name string) TypeID {
	idx, err := safecast.Conv[uint32](index)
	if err != nil {
		panic(fmt.Errorf("placeholder index overflow: %w", err))
	}
	id := in.Intern(Type{Kind: KindPlaceholder, Item: owner, Count: idx})
	if name != "" {
		in.phNames[id] = name
	}
	return id
}

// PlaceholderName returns the declared name of a placeholder type.
func (in *Interner) PlaceholderName(id TypeID) string {
	if name, ok := in.phNames[id]; ok {
		return name
	}
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindPlaceholder {
		return "?"
	}
	return fmt.Sprintf("T%d", tt.Count)
}

// Args returns the type arguments of a named or fn item type.
func (in *Interner) Args(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindNamed && tt.Kind != KindFnItem) {
		return nil
	}
	return in.List(tt.List)
}

// Elems returns the element types of a tuple.
func (in *Interner) Elems(id TypeID) []TypeID {
	tt, ok := in.Lookup(id)
	if !ok || tt.Kind != KindTuple {
		return nil
	}
	return in.List(tt.List)
}

// FnSig returns the parameters and result of a function signature type.
func (in *Interner) FnSig(id TypeID) (params []TypeID, result TypeID, ok bool) {
	tt, found := in.Lookup(id)
	if !found || tt.Kind != KindFn {
		return nil, NoTypeID, false
	}
	return in.List(tt.List), tt.Elem, true
}

// Elem returns the element of pointer, array and slice types.
func (in *Interner) Elem(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok {
		return NoTypeID
	}
	switch tt.Kind {
	case KindPointer, KindArray, KindSlice:
		return tt.Elem
	}
	return NoTypeID
}

// IsDivergent reports whether values of ty never exist.
func (in *Interner) IsDivergent(id TypeID) bool {
	return in.Kind(id) == KindNever
}

// ContainsPlaceholder reports whether any placeholder occurs inside id.
func (in *Interner) ContainsPlaceholder(id TypeID) bool {
	found := false
	in.Walk(id, func(t TypeID, tt Type) bool {
		if tt.Kind == KindPlaceholder {
			found = true
		}
		return !found
	})
	return found
}

// Walk visits id and every type nested in it in pre-order. Returning false
// from visit skips the children of that node.
func (in *Interner) Walk(id TypeID, visit func(TypeID, Type) bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		return
	}
	if !visit(id, tt) {
		return
	}
	switch tt.Kind {
	case KindPointer, KindArray, KindSlice:
		in.Walk(tt.Elem, visit)
	case KindFn:
		for _, p := range in.List(tt.List) {
			in.Walk(p, visit)
		}
		in.Walk(tt.Elem, visit)
	case KindTuple, KindNamed, KindFnItem:
		for _, a := range in.List(tt.List) {
			in.Walk(a, visit)
		}
	}
}
