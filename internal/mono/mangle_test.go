package mono

import "testing"

func TestMangle(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"main", "main"},
		{"Foo::compare", "Foo..compare"},
		{"identity<i32>", "identity$LT$i32$GT$"},
		{"pair<&[u8], (i32, bool)>", "pair$LT$$RF$$LB$u8$RB$$C$$SP$$LP$i32$C$$SP$bool$RP$$GT$"},
		{"café", "caf$ue9$"},
		{"a:b", "a$u3a$b"},
		{"bad\xff", "bad$xff$"},
	}
	for _, tc := range cases {
		if got := mangle(tc.name); got != tc.want {
			t.Fatalf("mangle(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestMangleKeepsNamesApart(t *testing.T) {
	names := []string{
		"foo", "foo_", "_foo",
		"a::b", "a__b", "a..b", "a:b", "a.:b",
		"f<&i32>", "f<*i32>", "f<i32>", "f_i32_",
		"m<i32, i32>", "m<i32,i32>",
		"g<[i32; 4]>", "g<[i32;4]>",
		"x$LT$", "x<",
	}
	seen := make(map[string]string, len(names))
	for _, n := range names {
		sym := mangle(n)
		if prev, dup := seen[sym]; dup {
			t.Fatalf("%q and %q both mangle to %q", prev, n, sym)
		}
		seen[sym] = n
	}
}
