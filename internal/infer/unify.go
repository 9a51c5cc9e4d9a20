package infer

import (
	"fmt"
	"slices"

	"monogen/internal/types"
)

// Unifier solves structural equations over a fixed set of placeholders. Each
// placeholder owns a slot; slots are union-find nodes that may be bound to a
// type. Any other placeholder is rigid and only equals itself.
type Unifier struct {
	in     *types.Interner
	slotOf map[types.TypeID]int
	phs    []types.TypeID
	parent []int
	value  []types.TypeID
}

// Mismatch explains why two types do not unify.
type Mismatch struct {
	Slot types.TypeID // placeholder with conflicting evidence, or NoTypeID
	Want types.TypeID
	Got  types.TypeID
}

func (m *Mismatch) Error() string {
	return fmt.Sprintf("type mismatch (slot %d): %d vs %d", m.Slot, m.Want, m.Got)
}

// NewUnifier creates one slot per placeholder.
func NewUnifier(in *types.Interner, placeholders []types.TypeID) *Unifier {
	u := &Unifier{
		in:     in,
		slotOf: make(map[types.TypeID]int, len(placeholders)),
		phs:    slices.Clone(placeholders),
		parent: make([]int, len(placeholders)),
		value:  make([]types.TypeID, len(placeholders)),
	}
	for i, ph := range placeholders {
		u.slotOf[ph] = i
		u.parent[i] = i
	}
	return u
}

// Clone copies the solver state so evidence can be tried without committing.
func (u *Unifier) Clone() *Unifier {
	return &Unifier{
		in:     u.in,
		slotOf: u.slotOf,
		phs:    u.phs,
		parent: slices.Clone(u.parent),
		value:  slices.Clone(u.value),
	}
}

func (u *Unifier) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *Unifier) slot(ty types.TypeID) (int, bool) {
	i, ok := u.slotOf[ty]
	if !ok {
		return 0, false
	}
	return u.find(i), true
}

// Unify makes a and b equal, binding slots as needed.
func (u *Unifier) Unify(a, b types.TypeID) error {
	if a == b {
		return nil
	}
	sa, aSlot := u.slot(a)
	sb, bSlot := u.slot(b)
	switch {
	case aSlot && bSlot:
		if sa == sb {
			return nil
		}
		va, vb := u.value[sa], u.value[sb]
		u.parent[sb] = sa
		switch {
		case va == types.NoTypeID:
			u.value[sa] = vb
		case vb != types.NoTypeID:
			return u.Unify(va, vb)
		}
		return nil
	case aSlot:
		return u.bind(sa, b)
	case bSlot:
		return u.bind(sb, a)
	}

	ta, okA := u.in.Lookup(a)
	tb, okB := u.in.Lookup(b)
	if !okA || !okB || ta.Kind != tb.Kind {
		return &Mismatch{Want: a, Got: b}
	}
	switch ta.Kind {
	case types.KindPointer:
		if ta.Mutable != tb.Mutable {
			return &Mismatch{Want: a, Got: b}
		}
		return u.Unify(ta.Elem, tb.Elem)
	case types.KindArray:
		if ta.Count != tb.Count {
			return &Mismatch{Want: a, Got: b}
		}
		return u.Unify(ta.Elem, tb.Elem)
	case types.KindSlice:
		return u.Unify(ta.Elem, tb.Elem)
	case types.KindFn:
		if err := u.unifyLists(a, b, ta.List, tb.List); err != nil {
			return err
		}
		return u.Unify(ta.Elem, tb.Elem)
	case types.KindNamed, types.KindFnItem:
		if ta.Item != tb.Item {
			return &Mismatch{Want: a, Got: b}
		}
		return u.unifyLists(a, b, ta.List, tb.List)
	case types.KindTuple:
		return u.unifyLists(a, b, ta.List, tb.List)
	}
	// distinct primitives or rigid placeholders
	return &Mismatch{Want: a, Got: b}
}

func (u *Unifier) unifyLists(a, b types.TypeID, la, lb types.ListID) error {
	xs, ys := u.in.List(la), u.in.List(lb)
	if len(xs) != len(ys) {
		return &Mismatch{Want: a, Got: b}
	}
	for i := range xs {
		if err := u.Unify(xs[i], ys[i]); err != nil {
			return err
		}
	}
	return nil
}

func (u *Unifier) bind(s int, ty types.TypeID) error {
	if cur := u.value[s]; cur != types.NoTypeID {
		if err := u.Unify(cur, ty); err != nil {
			return &Mismatch{Slot: u.phs[s], Want: u.Resolve(cur), Got: u.Resolve(ty)}
		}
		return nil
	}
	if u.occurs(s, ty) {
		return &Mismatch{Slot: u.phs[s], Want: u.phs[s], Got: ty}
	}
	u.value[s] = ty
	return nil
}

func (u *Unifier) occurs(s int, ty types.TypeID) bool {
	found := false
	u.in.Walk(ty, func(id types.TypeID, _ types.Type) bool {
		if found {
			return false
		}
		if other, ok := u.slot(id); ok {
			if other == s {
				found = true
				return false
			}
			if v := u.value[other]; v != types.NoTypeID && u.occurs(s, v) {
				found = true
			}
		}
		return !found
	})
	return found
}

// Resolve substitutes every bound slot inside ty. Unbound slots stay as their
// placeholder.
func (u *Unifier) Resolve(ty types.TypeID) types.TypeID {
	if ty == types.NoTypeID {
		return ty
	}
	if s, ok := u.slot(ty); ok {
		if v := u.value[s]; v != types.NoTypeID {
			return u.Resolve(v)
		}
		return u.phs[s]
	}
	tt, ok := u.in.Lookup(ty)
	if !ok {
		return ty
	}
	switch tt.Kind {
	case types.KindPointer, types.KindArray, types.KindSlice:
		elem := u.Resolve(tt.Elem)
		if elem == tt.Elem {
			return ty
		}
		tt.Elem = elem
		return u.in.Intern(tt)
	case types.KindFn:
		tt.List = u.resolveList(tt.List)
		tt.Elem = u.Resolve(tt.Elem)
		return u.in.Intern(tt)
	case types.KindTuple, types.KindNamed, types.KindFnItem:
		tt.List = u.resolveList(tt.List)
		return u.in.Intern(tt)
	}
	return ty
}

func (u *Unifier) resolveList(id types.ListID) types.ListID {
	xs := u.in.List(id)
	out := make([]types.TypeID, len(xs))
	for i, x := range xs {
		out[i] = u.Resolve(x)
	}
	return u.in.InternList(out)
}

// Value returns the type bound to placeholder ph once it is free of slots.
func (u *Unifier) Value(ph types.TypeID) (types.TypeID, bool) {
	s, ok := u.slot(ph)
	if !ok || u.value[s] == types.NoTypeID {
		return types.NoTypeID, false
	}
	v := u.Resolve(ph)
	if u.hasSlot(v) {
		return types.NoTypeID, false
	}
	return v, true
}

func (u *Unifier) hasSlot(ty types.TypeID) bool {
	found := false
	u.in.Walk(ty, func(id types.TypeID, _ types.Type) bool {
		if _, ok := u.slotOf[id]; ok {
			found = true
		}
		return !found
	})
	return found
}
