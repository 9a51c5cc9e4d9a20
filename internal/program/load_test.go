package program

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/types"
)

const identitySrc = `name: demo
entries: [main]
items:
  - fn: identity
    generics: [T]
    params: {x: T}
    result: T
    body: x
  - fn: main
    result: i32
    body:
      block:
        - let: a
          value: {call: identity, args: [1], types: [i32]}
      result: a
`

func mustParse(t *testing.T, src string) (*ast.Program, *diag.Bag) {
	t.Helper()
	prog, bag, err := Parse("test", []byte(src), nil)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return prog, bag
}

func itemNamed(t *testing.T, prog *ast.Program, path string) *ast.Item {
	t.Helper()
	for _, it := range prog.Items[1:] {
		if prog.Path(it.ID) == path {
			return it
		}
	}
	t.Fatalf("no item %s", path)
	return nil
}

func TestParseResolvesNames(t *testing.T) {
	prog, bag := mustParse(t, identitySrc)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	if prog.Name != "demo" {
		t.Fatalf("name = %q", prog.Name)
	}
	id := itemNamed(t, prog, "identity")
	main := itemNamed(t, prog, "main")
	if len(prog.Entries) != 1 || prog.Entries[0] != main.ID {
		t.Fatalf("entries = %v", prog.Entries)
	}
	if len(id.Generics) != 1 || id.Params[0].Type != id.Generics[0].Type || id.Result != id.Generics[0].Type {
		t.Fatalf("identity signature not bound to T: %+v", id)
	}
	if id.Body.Kind != ast.ExprLocal || id.Body.Data.(ast.LocalData).Local != id.Params[0].Local {
		t.Fatalf("identity body = %+v", id.Body)
	}

	block := main.Body.Data.(ast.BlockData)
	if len(block.Stmts) != 1 || block.Stmts[0].Kind != ast.StmtLet {
		t.Fatalf("main stmts = %+v", block.Stmts)
	}
	call := block.Stmts[0].Value.Data.(ast.CallData)
	ref := call.Callee.Data.(ast.FnRefData)
	if ref.Item != id.ID || len(ref.TypeArgs) != 1 || ref.TypeArgs[0] != prog.Types.Builtins().I32 {
		t.Fatalf("callee = %+v", ref)
	}
	if block.Result.Data.(ast.LocalData).Local != block.Stmts[0].Local {
		t.Fatalf("block result does not name the let binding")
	}
}

func TestParseSpansPointIntoSource(t *testing.T) {
	prog, _ := mustParse(t, identitySrc)
	id := itemNamed(t, prog, "identity")
	f := prog.Files.Get(id.Span.File)
	if got := string(f.Content[id.Span.Start:id.Span.End]); got != "identity" {
		t.Fatalf("item span text = %q", got)
	}
	if got := string(f.Content[id.Body.Span.Start:id.Body.Span.End]); got != "x" {
		t.Fatalf("body span text = %q", got)
	}
}

func TestParseTypes(t *testing.T) {
	src := `items:
  - struct: Box
    generics: [T]
    fields: {v: T}
  - protocol: Eq
  - fn: f
    generics: [U]
`
	prog, bag := mustParse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	in := prog.Types
	bt := in.Builtins()
	box := itemNamed(t, prog, "Box")
	f := itemNamed(t, prog, "f")
	u := f.Generics[0].Type

	// Reuse the loaded program's item table for standalone parses.
	l := &loader{b: ast.NewBuilder("t", in, prog.Files), in: in, bt: bt, file: prog.Files.Get(box.Span.File), bag: diag.NewBag(0), items: map[string]*ast.Item{}}
	for _, it := range prog.Items[1:] {
		l.items[prog.Path(it.ID)] = it
	}
	sc := &scope{item: f, generics: map[string]types.TypeID{"U": u}}

	cases := []struct {
		src  string
		want types.TypeID
	}{
		{"i32", bt.I32},
		{"&u8", in.Ptr(bt.U8, false)},
		{"&mut U", in.Ptr(u, true)},
		{"&[u8]", in.Ptr(in.Slice(bt.U8), false)},
		{"[i64; 4]", in.Array(bt.I64, 4)},
		{"(i32, bool)", in.Tuple(bt.I32, bt.Bool)},
		{"()", bt.Void},
		{"fn(i32) -> bool", in.Fn([]types.TypeID{bt.I32}, bt.Bool)},
		{"fn()", in.Fn(nil, bt.Void)},
		{"Box<U>", in.Named(box.ID, u)},
		{"Box<Box<i32>>", in.Named(box.ID, in.Named(box.ID, bt.I32))},
	}
	for _, tc := range cases {
		got := l.parseType(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: tc.src, Line: 1, Column: 1}, sc)
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.src, in.Label(got), in.Label(tc.want))
		}
	}
	if l.bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", l.bag.Items())
	}

	for _, bad := range []string{"Box", "Eq", "Missing", "[u8; x]", "&", "i32 i32", "Self"} {
		before := l.bag.Len()
		got := l.parseType(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: bad, Line: 1, Column: 1}, sc)
		if got != types.NoTypeID || l.bag.Len() != before+1 {
			t.Errorf("%q: got %s with %d new diagnostics", bad, in.Label(got), l.bag.Len()-before)
		}
	}
}

func TestParseMethodsAndBounds(t *testing.T) {
	src := `items:
  - protocol: Ordered
    methods:
      - fn: less
        params: {a: "&Self", b: "&Self"}
        result: bool
  - struct: Pair
    generics: ["T: Ordered"]
    fields: {a: T, b: T}
    methods:
      - fn: first
        params: {self: "&Self"}
        result: T
        body: {field: a, of: {deref: self}}
`
	prog, bag := mustParse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	ord := itemNamed(t, prog, "Ordered")
	pair := itemNamed(t, prog, "Pair")
	first := itemNamed(t, prog, "Pair::first")
	less := itemNamed(t, prog, "Ordered::less")

	if b := pair.Generics[0].Bounds; len(b) != 1 || b[0].Protocol != ord.ID {
		t.Fatalf("Pair bounds = %+v", b)
	}
	self := prog.Types.Named(pair.ID, pair.Generics[0].Type)
	if first.Params[0].Type != prog.Types.Ptr(self, false) || first.Result != pair.Generics[0].Type {
		t.Fatalf("first signature = %s -> %s", prog.Types.Label(first.Params[0].Type), prog.Types.Label(first.Result))
	}
	if less.Params[0].Type != prog.Types.Ptr(ord.Generics[0].Type, false) || less.Body != nil {
		t.Fatalf("less requirement = %+v", less)
	}
}

func TestParseCfg(t *testing.T) {
	src := `items:
  - fn: unix_only
    cfg: {all: [unix, "arch=x86_64"]}
    body: null
  - fn: main
    body:
      block:
        - let: v
          value: 1
          cfg: {not: debug}
`
	prog, bag := mustParse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	env := cfg.NewEnv()
	env.AddFlag("unix")
	env.AddValue("arch", "x86_64")
	env.AddFlag("debug")

	fn := itemNamed(t, prog, "unix_only")
	if ok, err := env.Eval(fn.Cfg); err != nil || !ok {
		t.Fatalf("unix_only cfg %s = %v, %v", fn.Cfg, ok, err)
	}
	let := itemNamed(t, prog, "main").Body.Data.(ast.BlockData).Stmts[0]
	if ok, err := env.Eval(let.Cfg); err != nil || ok {
		t.Fatalf("let cfg %s = %v, %v", let.Cfg, ok, err)
	}
}

func TestParseReportsMalformedPrograms(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown item key", "items:\n  - fn: f\n    bogus: 1\n", "unknown key `bogus`"},
		{"unknown kind", "items:\n  - class: C\n", "unknown item kind `class`"},
		{"duplicate", "items:\n  - fn: f\n  - fn: f\n", "declared twice"},
		{"missing entry", "entries: [main]\n", "entry `main` is not declared"},
		{"unknown name", "items:\n  - fn: f\n    body: y\n", "unknown name `y`"},
		{"unknown expr", "items:\n  - fn: f\n    body: {frob: 1}\n", "unknown expression `frob`"},
		{"bad operator", "items:\n  - fn: f\n    body: {op: \"<>\", l: 1, r: 2}\n", "unknown operator"},
		{"not a protocol", "items:\n  - struct: S\n  - fn: f\n    generics: [\"T: S\"]\n", "`S` is not a protocol"},
		{"alias cycle", "items:\n  - alias: A\n    type: B\n  - alias: B\n    type: \"&A\"\n", "refers to itself"},
		{"alias bound", "items:\n  - protocol: Eq\n  - alias: Id\n    generics: [\"T: Eq\"]\n    type: T\n", "cannot have bounds"},
		{"const without value", "items:\n  - const: LIMIT\n    type: i32\n", "const `LIMIT` needs a value"},
		{"global as type", "items:\n  - static: S\n    type: i32\n  - fn: f\n    params: {x: S}\n", "unknown type `S`"},
		{"fn as global", "items:\n  - fn: g\n  - fn: f\n    body: {global: g}\n", "`g` is not a static or const"},
		{"equivalent spellings", "items:\n  - fn: caf\u00e9\n  - fn: cafe\u0301\n", "declared twice"},
		{"out of scope", "items:\n  - fn: f\n    body:\n      block:\n        - {block: [{let: a, value: 1}]}\n      result: a\n", "unknown name `a`"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, bag := mustParse(t, tc.src)
			if !bag.HasErrors() {
				t.Fatalf("no diagnostics")
			}
			found := false
			for _, d := range bag.Items() {
				if d.Code != diag.IOProgramInvalid {
					t.Fatalf("code = %v", d.Code)
				}
				found = found || strings.Contains(d.Message, tc.msg)
			}
			if !found {
				t.Fatalf("no diagnostic mentions %q: %v", tc.msg, bag.Items())
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for a missing file")
	}
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("items: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(path, nil); err == nil {
		t.Fatalf("expected a syntax error")
	}
}

func TestLoadNamesProgramAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.yaml")
	if err := os.WriteFile(path, []byte("items:\n  - fn: main\n    body: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	prog, bag, err := Load(path, nil)
	if err != nil || bag.HasErrors() {
		t.Fatalf("load: %v %v", err, bag.Items())
	}
	if prog.Name != "hello" {
		t.Fatalf("name = %q", prog.Name)
	}
}

func TestParseAliasesExpandInPlace(t *testing.T) {
	src := `items:
  - fn: swap
    generics: [U]
    params: {p: Pair<U>}
    result: Pair<U>
  - alias: Pair
    generics: [T]
    type: (T, T)
  - alias: Bytes
    type: "&[u8]"
  - fn: g
    params: {b: Bytes, q: Pair<Bytes>}
`
	prog, bag := mustParse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	in := prog.Types
	bt := in.Builtins()
	swap := itemNamed(t, prog, "swap")
	u := swap.Generics[0].Type
	if want := in.Tuple(u, u); swap.Params[0].Type != want || swap.Result != want {
		t.Fatalf("swap signature = %s -> %s", in.Label(swap.Params[0].Type), in.Label(swap.Result))
	}
	bytes := in.Ptr(in.Slice(bt.U8), false)
	g := itemNamed(t, prog, "g")
	if g.Params[0].Type != bytes || g.Params[1].Type != in.Tuple(bytes, bytes) {
		t.Fatalf("g params = %s, %s", in.Label(g.Params[0].Type), in.Label(g.Params[1].Type))
	}
}

func TestParseGlobals(t *testing.T) {
	src := `items:
  - enum: Tag
    generics: [T]
    variants: [A, B]
  - const: first
    generics: [T]
    type: Tag<T>
    value: {enum: "Tag<T>", variant: A}
  - static: counter
    type: i32
    mut: true
    value: 0
  - static: host_flags
    type: u32
    cfg: unix
  - fn: main
    body:
      block:
        - do: {assign: counter, value: {op: "+", l: counter, r: 1}}
        - let: t
          value: {global: first, types: [bool]}
`
	prog, bag := mustParse(t, src)
	if bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", bag.Items())
	}
	bt := prog.Types.Builtins()
	counter := itemNamed(t, prog, "counter")
	if counter.Kind != ast.ItemStatic || !counter.Mutable || counter.Result != bt.I32 || counter.Body == nil {
		t.Fatalf("counter = %+v", counter)
	}
	flags := itemNamed(t, prog, "host_flags")
	if flags.Mutable || flags.Body != nil || flags.Cfg == nil {
		t.Fatalf("host_flags = %+v", flags)
	}
	first := itemNamed(t, prog, "first")
	if first.Kind != ast.ItemConst || len(first.Generics) != 1 || first.Body == nil {
		t.Fatalf("first = %+v", first)
	}

	block := itemNamed(t, prog, "main").Body.Data.(ast.BlockData)
	assign := block.Stmts[0].Value.Data.(ast.AssignData)
	if d, ok := assign.Target.Data.(ast.GlobalData); !ok || d.Item != counter.ID {
		t.Fatalf("assignment target = %+v", assign.Target)
	}
	ref := block.Stmts[1].Value.Data.(ast.GlobalData)
	if ref.Item != first.ID || len(ref.TypeArgs) != 1 || ref.TypeArgs[0] != bt.Bool {
		t.Fatalf("global ref = %+v", ref)
	}
}
