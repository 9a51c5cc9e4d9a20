package types

import (
	"errors"
	"testing"
)

func TestSubstituterReplacesNestedPlaceholders(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	const node ItemID = 3
	in.NameItem(node, "Node")
	tp := in.Placeholder(node, 0, "T")
	generic := in.Tuple(in.Ptr(in.Named(node, tp), true), in.Array(tp, 4), in.Fn([]TypeID{tp}, tp))

	s := in.Substituter(NewSubst([]TypeID{tp}, []TypeID{b.I64}))
	got := s.Apply(generic)
	want := in.Tuple(in.Ptr(in.Named(node, b.I64), true), in.Array(b.I64, 4), in.Fn([]TypeID{b.I64}, b.I64))
	if got != want {
		t.Fatalf("got %s, want %s", in.Label(got), in.Label(want))
	}
	if s.Apply(generic) != got {
		t.Fatalf("memoized result differs")
	}
	if s.Apply(b.Bool) != b.Bool {
		t.Fatalf("concrete types must be returned unchanged")
	}
}

func TestSubstituterMissingPlaceholderPanics(t *testing.T) {
	in := NewInterner()
	tp := in.Placeholder(1, 0, "T")
	up := in.Placeholder(1, 1, "U")
	s := in.Substituter(NewSubst([]TypeID{tp}, []TypeID{in.Builtins().I32}))
	defer func() {
		r := recover()
		err, ok := r.(error)
		var ie *InternalError
		if !ok || !errors.As(err, &ie) {
			t.Fatalf("expected InternalError panic, got %v", r)
		}
	}()
	s.Apply(in.Tuple(tp, up))
}

func TestSubstEqualityAndKey(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	tp := in.Placeholder(1, 0, "T")
	a := NewSubst([]TypeID{tp}, []TypeID{in.Slice(b.U8)})
	c := NewSubst([]TypeID{tp}, []TypeID{in.Slice(b.U8)})
	d := NewSubst([]TypeID{tp}, []TypeID{in.Slice(b.I8)})
	if !a.Equal(c) || a.Key() != c.Key() {
		t.Fatalf("equal substitutions must share a key")
	}
	if a.Equal(d) || a.Key() == d.Key() {
		t.Fatalf("different substitutions must not collapse")
	}
}

func TestCanonicalizeResolvesOuterPlaceholders(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	outer := in.Placeholder(1, 0, "T")
	inner := in.Placeholder(2, 0, "U")
	nested := NewSubst([]TypeID{inner}, []TypeID{in.Ptr(outer, false)})
	s := in.Substituter(NewSubst([]TypeID{outer}, []TypeID{b.Bool}))
	got := s.Canonicalize(nested)
	if got.Args[0] != in.Ptr(b.Bool, false) {
		t.Fatalf("unexpected canonical argument %s", in.Label(got.Args[0]))
	}
}
