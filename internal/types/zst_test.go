package types

import "testing"

type fieldMap map[TypeID][]TypeID

func (m fieldMap) StructFields(ty TypeID) ([]TypeID, bool) {
	f, ok := m[ty]
	return f, ok
}

func TestIsZeroSized(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	empty := in.Named(1)
	marker := in.Named(2)
	payload := in.Named(3)
	fields := fieldMap{
		empty:   nil,
		marker:  {empty, in.Tuple()},
		payload: {empty, b.I32},
	}
	cases := []struct {
		name string
		ty   TypeID
		want bool
	}{
		{"void", b.Void, true},
		{"never", b.Never, true},
		{"unit tuple", in.Tuple(), true},
		{"zero length array", in.Array(b.I64, 0), true},
		{"array of zst", in.Array(empty, 8), true},
		{"fn item", in.FnItem(9), true},
		{"empty struct", empty, true},
		{"struct of zst", marker, true},
		{"struct with payload", payload, false},
		{"pointer to zst", in.Ptr(empty, false), false},
		{"slice", in.Slice(empty), false},
		{"fn pointer", in.Fn(nil, b.Void), false},
		{"i32", b.I32, false},
	}
	for _, tc := range cases {
		if got := in.IsZeroSized(tc.ty, fields); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestAssignableFromAndJoin(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	arr := in.Array(b.I32, 3)
	cases := []struct {
		to, from TypeID
		want     Coercion
		ok       bool
	}{
		{b.I32, b.I32, CoerceNone, true},
		{b.I32, b.Never, CoerceNever, true},
		{in.Ptr(b.I32, false), in.Ptr(b.I32, true), CoerceConstPtr, true},
		{in.Ptr(b.I32, true), in.Ptr(b.I32, false), CoerceNone, false},
		{in.Ptr(in.Slice(b.I32), false), in.Ptr(arr, false), CoerceUnsize, true},
		{b.I64, b.I32, CoerceNone, false},
	}
	for i, tc := range cases {
		got, ok := in.AssignableFrom(tc.to, tc.from)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Fatalf("case %d: got (%v, %v) want (%v, %v)", i, got, ok, tc.want, tc.ok)
		}
	}
	if j, ok := in.Join(b.Never, b.Bool); !ok || j != b.Bool {
		t.Fatalf("never must yield to the other branch, got %s", in.Label(j))
	}
	if _, ok := in.Join(b.I32, b.Bool); ok {
		t.Fatalf("unrelated branch types must not join")
	}
}
