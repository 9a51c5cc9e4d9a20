package ir

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"monogen/internal/ast"
	"monogen/internal/mono"
	"monogen/internal/session"
	"monogen/internal/types"
)

// lowerRoots materializes every root, finishes the engine and lowers all
// function instances.
func lowerRoots(t *testing.T, b *ast.Builder, roots ...*ast.Item) (*Program, *mono.Engine) {
	t.Helper()
	sess := session.New(b.Program(), nil, nil, session.Options{})
	e := mono.New(sess)
	ctx := context.Background()
	for _, fn := range roots {
		if _, ok := e.Materialize(ctx, mono.Request{Item: fn.ID, Edge: mono.EdgeRoot, Span: fn.Span}); !ok {
			t.Fatalf("%s failed: %v", fn.Name, sess.Diagnostics().Items())
		}
	}
	e.Finish(ctx)
	if sess.HasErrors() {
		t.Fatalf("unexpected diagnostics %v", sess.Diagnostics().Items())
	}
	p, err := LowerProgram(ctx, sess, e, e.Instances())
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	if err := Validate(p, sess.Types, e); err != nil {
		t.Fatalf("invalid program: %v", err)
	}
	return p, e
}

func symbolOf(t *testing.T, e *mono.Engine, name string) string {
	t.Helper()
	for _, inst := range e.Instances() {
		if inst.Name == name {
			return inst.Symbol
		}
	}
	t.Fatalf("no instance %s", name)
	return ""
}

func calls(f *Func) []*CallInstr {
	var out []*CallInstr
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			if ins := &f.Blocks[i].Instrs[j]; ins.Kind == InstrCall {
				out = append(out, &ins.Call)
			}
		}
	}
	return out
}

func casts(f *Func, kind CastKind) []*CastOp {
	var out []*CastOp
	for i := range f.Blocks {
		for j := range f.Blocks[i].Instrs {
			ins := &f.Blocks[i].Instrs[j]
			if ins.Kind == InstrAssign && ins.Assign.Src.Kind == RValueCast && ins.Assign.Src.Cast.Kind == kind {
				out = append(out, &ins.Assign.Src.Cast)
			}
		}
	}
	return out
}

func identityFn(b *ast.Builder) *ast.Item {
	fn := b.Fn("identity")
	U := b.Generic(fn, "U")
	x := b.Param(fn, "x", U)
	fn.Result = U
	fn.Body = b.Local(x)
	return fn
}

func TestLowerOneFuncPerInstance(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	ident := identityFn(b)
	m := b.Fn("main")
	m.Body = b.Block(nil,
		b.Do(b.CallFn(ident, b.Int(1))),
		b.Do(b.CallFn(ident, b.Bool(true))),
		b.Do(b.CallFn(ident, b.Int(3))),
	)
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	if len(p.Funcs) != 3 {
		t.Fatalf("funcs = %d, want 3", len(p.Funcs))
	}
	i32Sym := symbolOf(t, e, "identity<i32>")
	boolSym := symbolOf(t, e, "identity<bool>")
	for _, sym := range []string{i32Sym, boolSym, "main"} {
		if p.Func(sym) == nil {
			t.Fatalf("missing function %s", sym)
		}
	}
	var got []string
	for _, c := range calls(p.Func("main")) {
		got = append(got, c.Callee.Symbol)
	}
	want := []string{i32Sym, boolSym, i32Sym}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("callees = %v, want %v", got, want)
	}
	if f := p.Func(i32Sym); len(f.Params) != 1 || f.Locals[0].Type != b.Types().Builtins().I32 {
		t.Fatalf("identity<i32> params = %v locals = %+v", f.Params, f.Locals)
	}
}

func TestLowerShortCircuit(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	// fn pick(a: bool, c: bool) -> bool { a || c }
	pick := b.Fn("pick")
	a := b.Param(pick, "a", bt.Bool)
	c := b.Param(pick, "c", bt.Bool)
	pick.Result = bt.Bool
	pick.Body = b.Binary(ast.BinOr, b.Local(a), b.Local(c))

	p, _ := lowerRoots(t, b, pick)
	f := p.Func("pick")
	if len(f.Blocks) != 4 {
		t.Fatalf("blocks = %d, want 4", len(f.Blocks))
	}
	entry := f.Blocks[f.Entry].Term
	if entry.Kind != TermIf || entry.If.Cond.Place.Local != 0 {
		t.Fatalf("entry terminator = %+v", entry)
	}
	short := f.Blocks[entry.If.Then]
	if len(short.Instrs) != 1 || !short.Instrs[0].Assign.Src.Use.Const.Bool {
		t.Fatalf("short-circuit block does not store true: %+v", short.Instrs)
	}
	rhs := f.Blocks[entry.If.Else]
	if len(rhs.Instrs) != 1 || rhs.Instrs[0].Assign.Src.Use.Place.Local != 1 {
		t.Fatalf("right operand block = %+v", rhs.Instrs)
	}
	for _, bb := range []Block{short, rhs} {
		if bb.Term.Kind != TermGoto || bb.Term.Goto.Target != 3 {
			t.Fatalf("arm does not join: %+v", bb.Term)
		}
	}
}

func TestLowerSpillsReadBeforeLaterEffects(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	// fn f() -> i32 { let x = 1; x + { x = 2; x } }
	f := b.Fn("f")
	f.Result = bt.I32
	let, x := b.Let("x", types.NoTypeID, b.Int(1))
	rhs := b.Block(b.Local(x), b.Do(b.Assign(b.Local(x), b.Int(2))))
	f.Body = b.Block(b.Binary(ast.BinAdd, b.Local(x), rhs), let)

	p, _ := lowerRoots(t, b, f)
	instrs := p.Func("f").Blocks[0].Instrs
	if len(instrs) != 4 {
		t.Fatalf("instrs = %d, want 4", len(instrs))
	}
	spill := instrs[1].Assign
	if spill.Dst.Local == 0 || spill.Src.Kind != RValueUse || spill.Src.Use.Place.Local != 0 {
		t.Fatalf("left operand not spilled: %+v", spill)
	}
	if instrs[2].Assign.Dst.Local != 0 {
		t.Fatalf("assignment out of order: %+v", instrs[2])
	}
	sum := instrs[3].Assign.Src
	if sum.Kind != RValueBinaryOp || sum.Binary.Left.Place.Local != spill.Dst.Local || sum.Binary.Right.Place.Local != 0 {
		t.Fatalf("sum reads %+v", sum.Binary)
	}
}

func TestLowerElidesZeroSizedArguments(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	// fn unit(v: void, n: i32) -> i32 { n }
	unit := b.Fn("unit")
	b.Param(unit, "v", bt.Void)
	n := b.Param(unit, "n", bt.I32)
	unit.Result = bt.I32
	unit.Body = b.Local(n)
	m := b.Fn("main")
	m.Body = b.Block(nil, b.Do(b.CallFn(unit, b.Void(), b.Int(5))))
	b.Entry(m)

	p, _ := lowerRoots(t, b, m)
	if f := p.Func("unit"); len(f.Params) != 1 || len(f.Locals) != 1 {
		t.Fatalf("unit params = %v locals = %d", f.Params, len(f.Locals))
	}
	cs := calls(p.Func("main"))
	if len(cs) != 1 || len(cs[0].Args) != 1 || cs[0].Args[0].Const.Int != 5 {
		t.Fatalf("calls = %+v", cs)
	}
	if !cs[0].HasDst {
		t.Fatalf("sized result not stored")
	}
}

func TestLowerUnsizeIsExplicit(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	in := b.Types()
	bt := in.Builtins()
	first := b.Fn("first")
	T := b.Generic(first, "T")
	xs := b.Param(first, "xs", in.Ptr(in.Slice(T), false))
	first.Result = T
	first.Body = b.Index(b.Local(xs), b.Int(0))

	m := b.Fn("main")
	let, _ := b.Let("x", types.NoTypeID, b.CallFn(first, b.Ref(b.Array(b.IntOf(1, bt.U8), b.Int(2)), false)))
	m.Body = b.Block(nil, let)
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	cs := casts(p.Func("main"), CastUnsize)
	if len(cs) != 1 || cs[0].To != in.Ptr(in.Slice(bt.U8), false) {
		t.Fatalf("unsize casts = %+v", cs)
	}
	f := p.Func(symbolOf(t, e, "first<u8>"))
	ret := f.Blocks[f.Entry].Term.Return
	proj := ret.Value.Place.Proj
	if !ret.HasValue || len(proj) != 2 || proj[0].Kind != PlaceProjDeref || proj[1].Kind != PlaceProjIndex {
		t.Fatalf("first<u8> returns %+v", ret)
	}
}

func TestLowerStopsAfterDivergence(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	// fn f(x: i32) -> i32 { return x; x + 1 }
	f := b.Fn("f")
	x := b.Param(f, "x", bt.I32)
	f.Result = bt.I32
	f.Body = b.Block(b.Binary(ast.BinAdd, b.Local(x), b.Int(1)), b.Do(b.Return(b.Local(x))))

	p, _ := lowerRoots(t, b, f)
	fn := p.Func("f")
	if len(fn.Blocks) != 1 || len(fn.Blocks[0].Instrs) != 0 {
		t.Fatalf("code after return was lowered: %+v", fn.Blocks)
	}
	term := fn.Blocks[0].Term
	if term.Kind != TermReturn || !term.Return.HasValue || term.Return.Value.Place.Local != 0 {
		t.Fatalf("terminator = %+v", term)
	}
}

func TestLowerAddressOfZeroSizedValue(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	m := b.Fn("main")
	letU, u := b.Let("u", types.NoTypeID, b.Tuple())
	letP, _ := b.Let("p", types.NoTypeID, b.Ref(b.Local(u), false))
	m.Body = b.Block(nil, letU, letP)
	b.Entry(m)

	p, _ := lowerRoots(t, b, m)
	f := p.Func("main")
	cs := casts(f, CastIntToPtr)
	if len(cs) != 1 || cs[0].Value.Const.Uint != 1 {
		t.Fatalf("dangling pointer casts = %+v", cs)
	}
	for _, l := range f.Locals {
		if l.Name == "u" {
			t.Fatalf("zero-sized local got storage")
		}
	}
}

func TestValidateReportsBrokenCFG(t *testing.T) {
	in := types.NewInterner()
	i32 := in.Builtins().I32
	f := &Func{
		Name:   "broken",
		Symbol: "broken",
		Result: i32,
		Locals: []Local{{Type: i32}},
		Blocks: []Block{
			{ID: 0, Term: Terminator{Kind: TermGoto, Goto: GotoTerm{Target: 5}}},
			{ID: 1},
			{ID: 2, Instrs: []Instr{{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: 3}}}}, Term: Terminator{Kind: TermReturn}},
		},
	}
	err := ValidateFunc(f, in, nil)
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"goto target bb5", "bb1: unterminated", "local L3 does not exist"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
}

func TestDumpProgram(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	ident := identityFn(b)
	m := b.Fn("main")
	m.Body = b.Block(nil, b.Do(b.CallFn(ident, b.Int(1))))
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	var buf bytes.Buffer
	if err := DumpProgram(&buf, p, b.Types()); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"funcs=2", "fn main [main]", "call " + symbolOf(t, e, "identity<i32>") + "(const 1)", "return copy L0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump lacks %q:\n%s", want, out)
		}
	}
}

func TestEncodeCarriesTypeLabels(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	ident := identityFn(b)
	m := b.Fn("main")
	m.Body = b.Block(nil, b.Do(b.CallFn(ident, b.Str("x"))))
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	var buf bytes.Buffer
	if err := Encode(&buf, p, b.Types()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sym := symbolOf(t, e, "identity<&[u8]>")
	id, ok := got.Program.BySymbol[sym]
	if !ok {
		t.Fatalf("decoded program lacks %s", sym)
	}
	f := got.Program.Funcs[id]
	if label := got.Types[f.Result]; label != "&[u8]" {
		t.Fatalf("result label = %q", label)
	}
}

func TestLowerGlobals(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	origin := b.Static("origin", bt.I32)
	origin.Body = b.IntOf(7, bt.I32)
	counter := b.Static("counter", bt.I32)
	counter.Mutable = true
	counter.Body = b.IntOf(0, bt.I32)
	flags := b.Static("flags", bt.U32)
	limit := b.Const("limit", bt.I32)
	limit.Body = b.IntOf(3, bt.I32)

	// fn main() { counter = counter + limit; let x = origin; let y = flags; }
	m := b.Fn("main")
	letX, _ := b.Let("x", types.NoTypeID, b.Global(origin))
	letY, _ := b.Let("y", types.NoTypeID, b.Global(flags))
	m.Body = b.Block(nil,
		b.Do(b.Assign(b.Global(counter), b.Binary(ast.BinAdd, b.Global(counter), b.Global(limit)))),
		letX, letY,
	)
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	if len(p.Globals) != 4 {
		t.Fatalf("globals = %d, want 4", len(p.Globals))
	}
	g := p.Global(symbolOf(t, e, "counter"))
	if g == nil || !g.Mutable || g.Const || g.Init == nil || g.Init.Result != bt.I32 {
		t.Fatalf("counter = %+v", g)
	}
	if g := p.Global(symbolOf(t, e, "flags")); g == nil || g.Init != nil {
		t.Fatalf("flags should be extern: %+v", g)
	}
	lim := p.Global(symbolOf(t, e, "limit"))
	if lim == nil || !lim.Const || lim.Mutable {
		t.Fatalf("limit = %+v", lim)
	}
	var stored bool
	for _, ins := range p.Func("main").Blocks[0].Instrs {
		if ins.Kind == InstrAssign && ins.Assign.Dst.Global == lim.Symbol {
			t.Fatalf("main stores into a const")
		}
		if ins.Kind == InstrAssign && ins.Assign.Dst.Global == symbolOf(t, e, "counter") {
			stored = true
		}
	}
	if !stored {
		t.Fatalf("no store into counter")
	}

	var buf bytes.Buffer
	if err := DumpProgram(&buf, p, b.Types()); err != nil {
		t.Fatalf("dump: %v", err)
	}
	for _, want := range []string{"static mut counter", "static flags", "extern", "const limit", "@" + symbolOf(t, e, "counter")} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("dump lacks %q:\n%s", want, buf.String())
		}
	}
}

func TestValidateRejectsStoresAndUndefinedCallees(t *testing.T) {
	in := types.NewInterner()
	i32 := in.Builtins().I32
	one := Operand{Kind: OperandConst, Type: i32, Const: Const{Int: 1}}
	f := &Func{
		Name:   "f",
		Symbol: "f",
		Result: in.Builtins().Void,
		Blocks: []Block{{
			Instrs: []Instr{
				{Kind: InstrAssign, Assign: AssignInstr{Dst: GlobalPlace("ro"), Src: RValue{Kind: RValueUse, Use: one}}},
				{Kind: InstrAssign, Assign: AssignInstr{Dst: GlobalPlace("rw"), Src: RValue{Kind: RValueUse, Use: one}}},
				{Kind: InstrAssign, Assign: AssignInstr{Dst: GlobalPlace("gone"), Src: RValue{Kind: RValueUse, Use: one}}},
				{Kind: InstrCall, Call: CallInstr{Callee: Callee{Kind: CalleeSym, Symbol: "nowhere"}}},
				{Kind: InstrCall, Call: CallInstr{Callee: Callee{Kind: CalleeSym, Symbol: "host_exit"}}},
			},
			Term: Terminator{Kind: TermReturn},
		}},
	}
	p := &Program{
		Funcs:    []*Func{f},
		BySymbol: map[string]FuncID{"f": 0},
		Externs:  []string{"host_exit"},
		Globals: []*Global{
			{Name: "ro", Symbol: "ro", Type: i32},
			{Name: "rw", Symbol: "rw", Type: i32, Mutable: true},
		},
	}
	err := Validate(p, in, nil)
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, want := range []string{"store to immutable global ro", "global gone does not exist", "call to undefined symbol nowhere"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %q", err, want)
		}
	}
	for _, unwanted := range []string{"global rw", "host_exit"} {
		if strings.Contains(err.Error(), unwanted) {
			t.Fatalf("error %q mentions %q", err, unwanted)
		}
	}
	if !p.Defines("host_exit") || !p.Defines("f") || p.Defines("nowhere") {
		t.Fatalf("Defines disagrees with the program")
	}
}

func TestLowerExternCallees(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	exit := b.Fn("host_exit")
	b.Param(exit, "code", bt.I32)
	m := b.Fn("main")
	m.Body = b.Block(nil, b.Do(b.CallFn(exit, b.Int(0))))
	b.Entry(m)

	p, e := lowerRoots(t, b, m)
	sym := symbolOf(t, e, "host_exit")
	if len(p.Externs) != 1 || p.Externs[0] != sym || p.Func(sym) != nil {
		t.Fatalf("externs = %v", p.Externs)
	}
	if cs := calls(p.Func("main")); len(cs) != 1 || cs[0].Callee.Symbol != sym {
		t.Fatalf("calls = %+v", cs)
	}
}

func TestLowerLeavesNoCallToFailedInstances(t *testing.T) {
	b := ast.NewBuilder("ir", nil, nil)
	bt := b.Types().Builtins()
	// fn a() { b(); let z: i32 = true; }  fn b() { a() }  fn ok() -> i32 { 1 }
	fa, fb := b.Fn("a"), b.Fn("b")
	bad, _ := b.Let("z", bt.I32, b.Bool(true))
	fa.Body = b.Block(nil, b.Do(b.CallFn(fb)), bad)
	fb.Body = b.Block(nil, b.Do(b.CallFn(fa)))
	ok := b.Fn("ok")
	ok.Result = bt.I32
	ok.Body = b.IntOf(1, bt.I32)

	sess := session.New(b.Program(), nil, nil, session.Options{})
	e := mono.New(sess)
	ctx := context.Background()
	e.Materialize(ctx, mono.Request{Item: fa.ID, Edge: mono.EdgeRoot, Span: fa.Span})
	e.Materialize(ctx, mono.Request{Item: ok.ID, Edge: mono.EdgeRoot, Span: ok.Span})
	e.Finish(ctx)
	if !sess.HasErrors() {
		t.Fatalf("expected the bad let to be reported")
	}
	p, err := LowerProgram(ctx, sess, e, e.Instances())
	if err != nil {
		t.Fatalf("lowering: %v", err)
	}
	if err := Validate(p, sess.Types, e); err != nil {
		t.Fatalf("lowered program calls a failed instance: %v", err)
	}
	if len(p.Funcs) != 1 || p.Func("ok") == nil {
		t.Fatalf("funcs = %d", len(p.Funcs))
	}
}
