package program

import (
	"strconv"
	"strings"
	"unicode"

	"fortio.org/safecast"
	"gopkg.in/yaml.v3"

	"monogen/internal/ast"
	"monogen/internal/types"
)

// scope resolves type names inside one item.
type scope struct {
	item     *ast.Item
	generics map[string]types.TypeID
	self     types.TypeID
}

func (l *loader) typeScope(it *ast.Item) *scope {
	prog := l.b.Program()
	sc := &scope{item: it, generics: make(map[string]types.TypeID)}
	for _, g := range prog.Generics(it.ID) {
		sc.generics[g.Name] = g.Type
	}
	owner := it
	if it.Owner != ast.NoItemID {
		owner = prog.Item(it.Owner)
	}
	switch owner.Kind {
	case ast.ItemProtocol:
		sc.self = l.b.SelfType(owner)
		delete(sc.generics, "Self")
	case ast.ItemStruct, ast.ItemEnum:
		sc.self = l.b.Named(owner, prog.Placeholders(owner.ID)...)
	}
	return sc
}

func (l *loader) builtin(name string) (types.TypeID, bool) {
	bt := l.bt
	switch name {
	case "void":
		return bt.Void, true
	case "never", "!":
		return bt.Never, true
	case "bool":
		return bt.Bool, true
	case "i8":
		return bt.I8, true
	case "i16":
		return bt.I16, true
	case "i32":
		return bt.I32, true
	case "i64":
		return bt.I64, true
	case "i128":
		return bt.I128, true
	case "isize":
		return bt.Isize, true
	case "u8":
		return bt.U8, true
	case "u16":
		return bt.U16, true
	case "u32":
		return bt.U32, true
	case "u64":
		return bt.U64, true
	case "u128":
		return bt.U128, true
	case "usize":
		return bt.Usize, true
	case "f32":
		return bt.F32, true
	case "f64":
		return bt.F64, true
	}
	return types.NoTypeID, false
}

// parseType reads a written type from a scalar node. Failures are reported
// and yield NoTypeID.
func (l *loader) parseType(n *yaml.Node, sc *scope) types.TypeID {
	if n == nil || n.Kind != yaml.ScalarNode || strings.TrimSpace(n.Value) == "" {
		l.errorf(n, "expected a type")
		return types.NoTypeID
	}
	p := &typeParser{l: l, sc: sc, node: n, toks: lexType(n.Value)}
	ty := p.parse()
	if !p.failed && p.peek() != "" {
		p.fail("unexpected `%s` after type", p.peek())
	}
	if p.failed {
		return types.NoTypeID
	}
	return ty
}

// parseBound reads `Proto` or `Proto<A, B>`.
func (l *loader) parseBound(n *yaml.Node, sc *scope) (ast.Bound, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" {
		l.errorf(n, "expected a protocol bound")
		return ast.Bound{}, false
	}
	p := &typeParser{l: l, sc: sc, node: n, toks: lexType(n.Value)}
	name := p.next()
	proto := l.lookup(name)
	if proto == nil || proto.Kind != ast.ItemProtocol {
		l.errorf(n, "`%s` is not a protocol", name)
		return ast.Bound{}, false
	}
	var args []types.TypeID
	if p.peek() == "<" {
		args = p.args()
	}
	if !p.failed && p.peek() != "" {
		p.fail("unexpected `%s` after bound", p.peek())
	}
	if p.failed {
		return ast.Bound{}, false
	}
	if want := len(proto.Generics) - 1; len(args) != want {
		l.errorf(n, "protocol `%s` takes %d argument(s), got %d", name, want, len(args))
		return ast.Bound{}, false
	}
	b := l.b.Bind(proto, args...)
	b.Span = l.span(n)
	return b, true
}

// lexType splits a type string into identifiers, integers and punctuation.
// `::` stays inside identifiers so method paths survive.
func lexType(s string) []string {
	var toks []string
	for i := 0; i < len(s); {
		c := rune(s[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '-' && i+1 < len(s) && s[i+1] == '>':
			toks = append(toks, "->")
			i += 2
		case c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c):
			j := i
			for j < len(s) {
				r := rune(s[j])
				if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
					j++
					continue
				}
				if r == ':' && j+2 < len(s) && s[j+1] == ':' {
					j += 2
					continue
				}
				break
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			toks = append(toks, string(c))
			i++
		}
	}
	return toks
}

type typeParser struct {
	l      *loader
	sc     *scope
	node   *yaml.Node
	toks   []string
	pos    int
	failed bool
}

func (p *typeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *typeParser) next() string {
	t := p.peek()
	if t != "" {
		p.pos++
	}
	return t
}

func (p *typeParser) fail(format string, args ...any) {
	if !p.failed {
		p.l.errorf(p.node, format, args...)
	}
	p.failed = true
}

func (p *typeParser) expect(tok string) {
	if got := p.next(); got != tok {
		if got == "" {
			got = "end of type"
		}
		p.fail("expected `%s`, found `%s`", tok, got)
	}
}

func (p *typeParser) parse() types.TypeID {
	if p.failed {
		return types.NoTypeID
	}
	in := p.l.in
	switch tok := p.next(); tok {
	case "&":
		mutable := false
		if p.peek() == "mut" {
			p.next()
			mutable = true
		}
		elem := p.parse()
		if p.failed {
			return types.NoTypeID
		}
		return in.Ptr(elem, mutable)
	case "[":
		elem := p.parse()
		if p.failed {
			return types.NoTypeID
		}
		if p.peek() == ";" {
			p.next()
			lenTok := p.next()
			n, err := strconv.ParseUint(lenTok, 10, 32)
			if err != nil {
				p.fail("bad array length `%s`", lenTok)
				return types.NoTypeID
			}
			p.expect("]")
			size, err := safecast.Conv[uint32](n)
			if err != nil {
				p.fail("array length %d is too large", n)
				return types.NoTypeID
			}
			return in.Array(elem, size)
		}
		p.expect("]")
		return in.Slice(elem)
	case "(":
		elems := p.list(")")
		if p.failed {
			return types.NoTypeID
		}
		if len(elems) == 0 {
			return p.l.bt.Void
		}
		return in.Tuple(elems...)
	case "fn":
		p.expect("(")
		params := p.list(")")
		result := p.l.bt.Void
		if p.peek() == "->" {
			p.next()
			result = p.parse()
		}
		if p.failed {
			return types.NoTypeID
		}
		return in.Fn(params, result)
	case "":
		p.fail("expected a type")
		return types.NoTypeID
	default:
		return p.named(tok)
	}
}

// list parses `T, U, ...` up to and including close.
func (p *typeParser) list(closing string) []types.TypeID {
	var out []types.TypeID
	for !p.failed && p.peek() != closing {
		out = append(out, p.parse())
		if p.peek() != "," {
			break
		}
		p.next()
	}
	p.expect(closing)
	return out
}

func (p *typeParser) args() []types.TypeID {
	p.expect("<")
	return p.list(">")
}

func (p *typeParser) named(name string) types.TypeID {
	if ty, ok := p.l.builtin(name); ok {
		return ty
	}
	if name == "Self" {
		if p.sc == nil || p.sc.self == types.NoTypeID {
			p.fail("`Self` is not available here")
			return types.NoTypeID
		}
		return p.sc.self
	}
	if p.sc != nil {
		if ph, ok := p.sc.generics[name]; ok {
			return ph
		}
	}
	it := p.l.lookup(name)
	if it == nil || it.Kind == ast.ItemFn || it.Kind.IsGlobal() {
		p.fail("unknown type `%s`", name)
		return types.NoTypeID
	}
	if it.Kind == ast.ItemProtocol {
		p.fail("protocol `%s` cannot be used as a type", name)
		return types.NoTypeID
	}
	var args []types.TypeID
	if p.peek() == "<" {
		args = p.args()
	}
	if p.failed {
		return types.NoTypeID
	}
	if len(args) != len(it.Generics) {
		p.fail("`%s` takes %d type argument(s), got %d", name, len(it.Generics), len(args))
		return types.NoTypeID
	}
	if it.Kind == ast.ItemAlias {
		if p.l.aliasTarget(it) == types.NoTypeID {
			p.failed = true
			return types.NoTypeID
		}
		return p.l.b.Expand(it, args...)
	}
	return p.l.b.Named(it, args...)
}
