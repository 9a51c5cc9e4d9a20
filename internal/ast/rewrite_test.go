package ast

import (
	"testing"

	"monogen/internal/cfg"
	"monogen/internal/types"
)

func TestRewriterSubstitutesAndPrunes(t *testing.T) {
	b := NewBuilder("t", nil, nil)
	in := b.Types()
	fn := b.Fn("f")
	tp := b.Generic(fn, "T")
	x := b.Param(fn, "x", tp)
	let, y := b.Let("y", tp, b.Local(x))
	dropped := b.Do(b.CallFn(fn, b.Local(x)))
	dropped.Cfg = cfg.Key("never_set")
	fn.Body = b.Block(b.Cast(b.Local(y), in.Ptr(tp, false)), let, dropped)

	subst := in.Substituter(types.NewSubst([]types.TypeID{tp}, []types.TypeID{in.Builtins().I32}))
	env := cfg.NewEnv()
	r := Rewriter{
		Type: subst.Apply,
		Keep: func(s *Stmt) bool {
			ok, err := env.Eval(s.Cfg)
			return err == nil && ok
		},
	}
	out := r.Expr(fn.Body)
	block := out.Data.(BlockData)
	if len(block.Stmts) != 1 {
		t.Fatalf("expected cfg-false statement to be pruned, got %d statements", len(block.Stmts))
	}
	if block.Stmts[0].Type != in.Builtins().I32 {
		t.Fatalf("let annotation not substituted: %s", in.Label(block.Stmts[0].Type))
	}
	cast := block.Result.Data.(CastData)
	if cast.Type != in.Ptr(in.Builtins().I32, false) {
		t.Fatalf("cast target not substituted: %s", in.Label(cast.Type))
	}
	if fn.Body.Data.(BlockData).Stmts[0].Type != tp {
		t.Fatalf("rewriting must not mutate the generic body")
	}

	count := 0
	Inspect(out, func(*Expr) bool { count++; return true })
	if count != 4 {
		t.Fatalf("expected 4 expressions after pruning, got %d", count)
	}
}

func TestProgramGenericsIncludeOwner(t *testing.T) {
	b := NewBuilder("t", nil, nil)
	vec := b.Struct("Vec")
	tp := b.Generic(vec, "T")
	push := b.Method(vec, "map")
	up := b.Generic(push, "U")
	p := b.Program()
	got := p.Placeholders(push.ID)
	if len(got) != 2 || got[0] != tp || got[1] != up {
		t.Fatalf("unexpected placeholders %v", got)
	}
	if p.Path(push.ID) != "Vec::map" {
		t.Fatalf("unexpected path %q", p.Path(push.ID))
	}
	if p.Method(vec.ID, "map") != push {
		t.Fatalf("method lookup failed")
	}
	if p.Types.Label(up) != "U" {
		t.Fatalf("unexpected placeholder label %q", p.Types.Label(up))
	}
}

func TestExpandAppliesAliasArguments(t *testing.T) {
	b := NewBuilder("t", nil, nil)
	in := b.Types()
	bt := in.Builtins()
	pair := b.Alias("Pair")
	tp := b.Generic(pair, "T")
	pair.Result = in.Tuple(tp, in.Ptr(tp, false))
	if got, want := b.Expand(pair, bt.I32), in.Tuple(bt.I32, in.Ptr(bt.I32, false)); got != want {
		t.Fatalf("Pair<i32> = %s, want %s", in.Label(got), in.Label(want))
	}
	if b.Expand(b.Alias("Unresolved")) != types.NoTypeID {
		t.Fatalf("an alias without a target should expand to nothing")
	}
	if !b.Static("s", bt.I32).Kind.IsGlobal() || !b.Const("c", bt.I32).Kind.IsGlobal() || pair.Kind.IsGlobal() {
		t.Fatalf("IsGlobal disagrees with item kinds")
	}
}
