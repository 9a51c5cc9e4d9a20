package types

// Coercion classifies the implicit conversion that makes a value of one type
// usable where another is expected.
type Coercion uint8

const (
	CoerceNone     Coercion = iota // identical types
	CoerceNever                    // never flows into any type
	CoerceConstPtr                 // &mut T -> &T
	CoerceUnsize                   // &[T; N] -> &[T] (and &mut variants)
)

func (c Coercion) String() string {
	switch c {
	case CoerceNone:
		return "none"
	case CoerceNever:
		return "never"
	case CoerceConstPtr:
		return "const"
	case CoerceUnsize:
		return "unsize"
	default:
		return "?"
	}
}

// AssignableFrom reports whether a value of type from can be used where to is
// expected and which coercion that needs.
func (in *Interner) AssignableFrom(to, from TypeID) (Coercion, bool) {
	if to == from {
		return CoerceNone, true
	}
	ft, ok := in.Lookup(from)
	if !ok {
		return CoerceNone, false
	}
	if ft.Kind == KindNever {
		return CoerceNever, true
	}
	tt, ok := in.Lookup(to)
	if !ok || tt.Kind != KindPointer || ft.Kind != KindPointer {
		return CoerceNone, false
	}
	if tt.Mutable && !ft.Mutable {
		return CoerceNone, false
	}
	if tt.Elem == ft.Elem {
		return CoerceConstPtr, true
	}
	te, fe := in.MustLookup(tt.Elem), in.MustLookup(ft.Elem)
	if te.Kind == KindSlice && fe.Kind == KindArray && te.Elem == fe.Elem {
		return CoerceUnsize, true
	}
	return CoerceNone, false
}

// Join returns the type both branch types coerce to, preferring the first
// branch's type.
func (in *Interner) Join(a, b TypeID) (TypeID, bool) {
	if _, ok := in.AssignableFrom(a, b); ok {
		return a, true
	}
	if _, ok := in.AssignableFrom(b, a); ok {
		return b, true
	}
	return NoTypeID, false
}

// CastAllowed reports whether an explicit `as` conversion is valid.
func (in *Interner) CastAllowed(to, from TypeID) bool {
	if _, ok := in.AssignableFrom(to, from); ok {
		return true
	}
	ft, ok1 := in.Lookup(from)
	tt, ok2 := in.Lookup(to)
	if !ok1 || !ok2 {
		return false
	}
	switch {
	case ft.IsNumeric() && tt.IsNumeric():
		return true
	case ft.Kind == KindBool && tt.IsInteger():
		return true
	case ft.Kind == KindPointer && tt.Kind == KindPointer:
		return true
	case ft.Kind == KindPointer && tt.Kind == KindUint && tt.Width == WidthSize:
		return true
	case ft.Kind == KindUint && ft.Width == WidthSize && tt.Kind == KindPointer:
		return true
	}
	return false
}
