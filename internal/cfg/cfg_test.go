package cfg

import (
	"errors"
	"testing"
)

func TestEval(t *testing.T) {
	env := NewEnv()
	env.Set("debug")
	env.Set("target_os=linux")
	env.Set("feature=a")
	env.Set("feature=b")

	cases := []struct {
		name string
		p    *Predicate
		want bool
	}{
		{"nil is true", nil, true},
		{"flag present", Key("debug"), true},
		{"flag absent", Key("release"), false},
		{"key with values counts as present", Key("target_os"), true},
		{"value match", KeyValue("target_os", "linux"), true},
		{"value mismatch", KeyValue("target_os", "macos"), false},
		{"flag without value never equals a value", KeyValue("debug", "1"), false},
		{"later value replaces earlier", KeyValue("feature", "b"), true},
		{"replaced value no longer matches", KeyValue("feature", "a"), false},
		{"empty all", All(), true},
		{"empty any", Any(), false},
		{"all", All(Key("debug"), KeyValue("feature", "b")), true},
		{"any", Any(Key("release"), KeyValue("feature", "b")), true},
		{"not", Not(Key("release")), true},
	}
	for _, tc := range cases {
		got, err := env.Eval(tc.p)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestEvalInvalidNot(t *testing.T) {
	env := NewEnv()
	for _, p := range []*Predicate{
		{Op: OpNot},
		{Op: OpNot, Args: []*Predicate{Key("a"), Key("b")}},
		All(Key("x"), &Predicate{Op: OpNot}),
	} {
		_, err := env.Eval(p)
		var inv *InvalidError
		if !errors.As(err, &inv) {
			t.Fatalf("%s: expected InvalidError, got %v", p, err)
		}
	}
}

func TestEntriesSortedAndCloneIndependent(t *testing.T) {
	env := NewEnv()
	env.Set("b")
	env.Set("a=1")
	clone := env.Clone()
	clone.AddFlag("c")
	got := env.Entries()
	if len(got) != 2 || got[0] != "a=1" || got[1] != "b" {
		t.Fatalf("unexpected entries %v", got)
	}
	if len(clone.Entries()) != 3 {
		t.Fatalf("clone must be independent")
	}
}

func TestAddValueKeepsOneValuePerKey(t *testing.T) {
	env := NewEnv()
	env.AddValue("target_os", "linux")
	env.AddValue("target_os", "macos")
	env.Set("target_os=windows")
	got := env.Entries()
	if len(got) != 1 || got[0] != "target_os=windows" {
		t.Fatalf("entries = %v", got)
	}
	clone := env.Clone()
	clone.AddValue("target_os", "linux")
	if ok, _ := env.Eval(KeyValue("target_os", "windows")); !ok {
		t.Fatalf("clone replaced the original's value")
	}
}
