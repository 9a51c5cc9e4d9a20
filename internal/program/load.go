// Package program loads a resolved program from a YAML document. The document
// stands in for the upstream parser and name resolver: names are resolved
// here, and every node keeps the span of the YAML node it came from.
package program

import (
	"fmt"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"monogen/internal/ast"
	"monogen/internal/cfg"
	"monogen/internal/diag"
	"monogen/internal/source"
	"monogen/internal/types"
)

// Load reads a program file. Malformed content is reported in the returned
// bag; err covers I/O and YAML syntax failures.
func Load(path string, in *types.Interner) (*ast.Program, *diag.Bag, error) {
	files := source.NewFileSet()
	id, err := files.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	return FromFile(files, id, in)
}

// FromFile decodes a file already registered in files. The program is named
// after the file stem.
func FromFile(files *source.FileSet, id source.FileID, in *types.Interner) (*ast.Program, *diag.Bag, error) {
	f := files.Get(id)
	name := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	return parse(name, files, id, in)
}

// Parse reads a program from memory.
func Parse(name string, content []byte, in *types.Interner) (*ast.Program, *diag.Bag, error) {
	files := source.NewFileSet()
	id := files.AddVirtual(name+".yaml", content)
	return parse(name, files, id, in)
}

func parse(name string, files *source.FileSet, id source.FileID, in *types.Interner) (*ast.Program, *diag.Bag, error) {
	f := files.Get(id)
	var doc yaml.Node
	if err := yaml.Unmarshal(f.Content, &doc); err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", f.Path, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil, fmt.Errorf("parse %s: empty document", f.Path)
	}
	l := newLoader(name, files, f, in)
	l.document(doc.Content[0])
	return l.b.Program(), l.bag, nil
}

type loader struct {
	b    *ast.Builder
	in   *types.Interner
	bt   types.Builtins
	file *source.File
	bag  *diag.Bag

	items map[string]*ast.Item // by NFC-normalized path
	decls []*decl

	aliases   map[ast.ItemID]*decl // aliases whose target is not parsed yet
	expanding map[ast.ItemID]bool
}

// decl remembers the node of a declared item until its signature and body
// can be resolved.
type decl struct {
	item     *ast.Item
	node     *yaml.Node
	generics []*yaml.Node // bound lists, parallel to item.Generics
}

func newLoader(name string, files *source.FileSet, f *source.File, in *types.Interner) *loader {
	b := ast.NewBuilder(name, in, files)
	return &loader{
		b:     b,
		in:    b.Types(),
		bt:    b.Types().Builtins(),
		file:  f,
		bag:   diag.NewBag(0),
		items: make(map[string]*ast.Item),

		aliases:   make(map[ast.ItemID]*decl),
		expanding: make(map[ast.ItemID]bool),
	}
}

// lookup finds a declared item. Names are compared in NFC, so canonically
// equivalent spellings name the same item.
func (l *loader) lookup(path string) *ast.Item {
	return l.items[norm.NFC.String(path)]
}

func (l *loader) span(n *yaml.Node) source.Span {
	if n == nil {
		return source.Span{File: l.file.ID}
	}
	line, err1 := safecast.Conv[uint32](n.Line)
	col, err2 := safecast.Conv[uint32](n.Column)
	if err1 != nil || err2 != nil {
		return source.Span{File: l.file.ID}
	}
	start := l.file.Offset(source.LineCol{Line: line, Col: col})
	end := start
	if n.Kind == yaml.ScalarNode {
		if w, err := safecast.Conv[uint32](len(n.Value)); err == nil {
			end = min(start+w, l.file.Offset(source.LineCol{Line: line + 1, Col: 1}))
		}
	}
	return source.Span{File: l.file.ID, Start: start, End: end}
}

func (l *loader) errorf(n *yaml.Node, format string, args ...any) {
	diag.ReportError(l.bag, diag.IOProgramInvalid, l.span(n), fmt.Sprintf(format, args...)).Emit()
}

type pair struct {
	key   string
	keyN  *yaml.Node
	value *yaml.Node
}

// pairs lists the entries of a mapping in document order.
func (l *loader) pairs(n *yaml.Node) []pair {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		out = append(out, pair{key: n.Content[i].Value, keyN: n.Content[i], value: n.Content[i+1]})
	}
	return out
}

// field returns the value of key in a mapping, or nil.
func field(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// known reports keys of n outside allowed.
func (l *loader) known(n *yaml.Node, allowed ...string) {
	for _, p := range l.pairs(n) {
		ok := false
		for _, a := range allowed {
			if p.key == a {
				ok = true
				break
			}
		}
		if !ok {
			l.errorf(p.keyN, "unknown key `%s`", p.key)
		}
	}
}

func (l *loader) list(n *yaml.Node, what string) []*yaml.Node {
	if n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null") {
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		l.errorf(n, "%s must be a list", what)
		return nil
	}
	return n.Content
}

func (l *loader) str(n *yaml.Node, what string) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" {
		l.errorf(n, "%s must be a non-empty string", what)
		return "", false
	}
	return n.Value, true
}

func (l *loader) document(root *yaml.Node) {
	if root.Kind != yaml.MappingNode {
		l.errorf(root, "program must be a mapping")
		return
	}
	l.known(root, "name", "entries", "items")
	if n := field(root, "name"); n != nil {
		if name, ok := l.str(n, "name"); ok {
			l.b.Program().Name = name
		}
	}
	for _, n := range l.list(field(root, "items"), "items") {
		l.declare(n, nil)
	}
	for _, d := range l.decls {
		l.signature(d)
	}
	for _, d := range l.decls {
		switch {
		case d.item.Kind == ast.ItemFn:
			l.body(d)
		case d.item.Kind.IsGlobal():
			l.initializer(d)
		}
	}
	for _, n := range l.list(field(root, "entries"), "entries") {
		name, ok := l.str(n, "entry")
		if !ok {
			continue
		}
		it := l.lookup(name)
		if it == nil {
			l.errorf(n, "entry `%s` is not declared", name)
			continue
		}
		l.b.Entry(it)
	}
}

var itemKinds = []string{"fn", "struct", "enum", "protocol", "alias", "static", "const"}

// declare creates the item for n and its placeholders. Methods are declared
// recursively with owner set.
func (l *loader) declare(n *yaml.Node, owner *ast.Item) {
	if n.Kind != yaml.MappingNode || len(n.Content) < 2 {
		l.errorf(n, "item must be a mapping starting with one of %s", strings.Join(itemKinds, ", "))
		return
	}
	kind, nameN := n.Content[0].Value, n.Content[1]
	name, ok := l.str(nameN, kind+" name")
	if !ok {
		return
	}
	name = norm.NFC.String(name)
	var it *ast.Item
	switch {
	case owner != nil && kind == "fn":
		it = l.b.Method(owner, name)
	case owner != nil:
		l.errorf(n.Content[0], "only fn items may be nested in `%s`", owner.Name)
		return
	case kind == "fn":
		it = l.b.Fn(name)
	case kind == "struct":
		it = l.b.Struct(name)
	case kind == "enum":
		it = l.b.Enum(name)
	case kind == "protocol":
		it = l.b.Protocol(name)
	case kind == "alias":
		it = l.b.Alias(name)
	case kind == "static":
		it = l.b.Static(name, types.NoTypeID)
	case kind == "const":
		it = l.b.Const(name, types.NoTypeID)
	default:
		l.errorf(n.Content[0], "unknown item kind `%s`", kind)
		return
	}
	it.Span = l.span(nameN)

	switch it.Kind {
	case ast.ItemFn:
		l.known(n, kind, "generics", "params", "result", "body", "cfg")
	case ast.ItemStruct:
		l.known(n, kind, "generics", "fields", "methods", "cfg")
	case ast.ItemEnum:
		l.known(n, kind, "generics", "variants", "methods", "cfg")
	case ast.ItemProtocol:
		l.known(n, kind, "generics", "methods", "cfg")
	case ast.ItemAlias:
		l.known(n, kind, "generics", "type")
	case ast.ItemStatic:
		l.known(n, kind, "generics", "type", "mut", "value", "cfg")
	case ast.ItemConst:
		l.known(n, kind, "generics", "type", "value", "cfg")
	}

	path := l.b.Program().Path(it.ID)
	if _, dup := l.items[path]; dup {
		l.errorf(nameN, "`%s` is declared twice", path)
	} else {
		l.items[path] = it
	}

	d := &decl{item: it, node: n}
	for _, g := range l.list(field(n, "generics"), "generics") {
		gname, bounds := l.genericDecl(g)
		if gname == "" {
			continue
		}
		l.b.Generic(it, gname)
		it.Generics[len(it.Generics)-1].Span = l.span(g)
		d.generics = append(d.generics, bounds)
	}
	l.decls = append(l.decls, d)
	if it.Kind == ast.ItemAlias {
		l.aliases[it.ID] = d
	}

	for _, m := range l.list(field(n, "methods"), "methods") {
		l.declare(m, it)
	}
}

// genericDecl accepts `T`, `T: A + B<i32>` or {name: T, bounds: [A]}. The
// bounds are returned unparsed as a node.
func (l *loader) genericDecl(n *yaml.Node) (string, *yaml.Node) {
	switch n.Kind {
	case yaml.ScalarNode:
		name, rest, hasBounds := strings.Cut(n.Value, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			l.errorf(n, "generic parameter needs a name")
			return "", nil
		}
		if !hasBounds {
			return name, nil
		}
		seq := &yaml.Node{Kind: yaml.SequenceNode, Line: n.Line, Column: n.Column}
		for _, b := range strings.Split(rest, "+") {
			seq.Content = append(seq.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: strings.TrimSpace(b), Line: n.Line, Column: n.Column})
		}
		return name, seq
	case yaml.MappingNode:
		l.known(n, "name", "bounds")
		name, ok := l.str(field(n, "name"), "generic name")
		if !ok {
			return "", nil
		}
		return name, field(n, "bounds")
	}
	l.errorf(n, "generic parameter must be a string or mapping")
	return "", nil
}

// signature resolves bounds, cfg, fields, variants, params and results.
func (l *loader) signature(d *decl) {
	it, n := d.item, d.node
	sc := l.typeScope(it)
	own := len(it.Generics) - len(d.generics)
	for i, bn := range d.generics {
		for _, b := range l.list(bn, "bounds") {
			if bound, ok := l.parseBound(b, sc); ok {
				it.Generics[own+i].Bounds = append(it.Generics[own+i].Bounds, bound)
			}
		}
	}
	if c := field(n, "cfg"); c != nil {
		it.Cfg = l.predicate(c)
	}
	switch it.Kind {
	case ast.ItemAlias:
		for i, bn := range d.generics {
			if bn != nil {
				l.errorf(bn, "alias parameter `%s` cannot have bounds", it.Generics[own+i].Name)
			}
		}
		l.aliasTarget(it)
	case ast.ItemStatic, ast.ItemConst:
		it.Result = l.parseType(field(n, "type"), sc)
		if m := field(n, "mut"); m != nil {
			if err := m.Decode(&it.Mutable); err != nil {
				l.errorf(m, "mut: %v", err)
			}
		}
	case ast.ItemFn:
		params := field(n, "params")
		for _, p := range l.namedList(params, "params") {
			ty := l.entryType(p.value, sc)
			l.b.Param(it, p.key, ty)
			it.Params[len(it.Params)-1].Span = l.span(p.keyN)
		}
		if r := field(n, "result"); r != nil {
			it.Result = l.parseType(r, sc)
		}
	case ast.ItemStruct:
		for _, p := range l.namedList(field(n, "fields"), "fields") {
			ty := l.entryType(p.value, sc)
			f := l.b.Field(it, p.key, ty)
			f.Span = l.span(p.keyN)
			if p.value != nil && p.value.Kind == yaml.MappingNode {
				if c := field(p.value, "cfg"); c != nil {
					f.Cfg = l.predicate(c)
				}
			}
		}
	case ast.ItemEnum:
		next := int64(0)
		for _, v := range l.list(field(n, "variants"), "variants") {
			name, value, pred := l.variant(v, next)
			if name == "" {
				continue
			}
			l.b.Variant(it, name, value)
			last := &it.Variants[len(it.Variants)-1]
			last.Span, last.Cfg = l.span(v), pred
			next = value + 1
		}
	}
}

// aliasTarget parses an alias target on first use, so an alias may be used
// before its declaration. A failed or cyclic target leaves NoTypeID.
func (l *loader) aliasTarget(it *ast.Item) types.TypeID {
	d, ok := l.aliases[it.ID]
	if !ok {
		return it.Result
	}
	target := field(d.node, "type")
	if l.expanding[it.ID] {
		l.errorf(target, "alias `%s` refers to itself", it.Name)
		return types.NoTypeID
	}
	l.expanding[it.ID] = true
	ty := l.parseType(target, l.typeScope(it))
	delete(l.expanding, it.ID)
	delete(l.aliases, it.ID)
	it.Result = ty
	return ty
}

// initializer loads the value of a static or const. A static without one is
// extern.
func (l *loader) initializer(d *decl) {
	n := field(d.node, "value")
	if n == nil {
		if d.item.Kind == ast.ItemConst {
			l.errorf(d.node, "const `%s` needs a value", d.item.Name)
		}
		return
	}
	bs := &bodyScope{scope: l.typeScope(d.item)}
	bs.push()
	d.item.Body = l.expr(n, bs)
}

// namedList accepts either an ordered mapping `name: type` or a list of
// {name: x, type: T} mappings.
func (l *loader) namedList(n *yaml.Node, what string) []pair {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case yaml.MappingNode:
		return l.pairs(n)
	case yaml.SequenceNode:
		var out []pair
		for _, e := range n.Content {
			nameN := field(e, "name")
			name, ok := l.str(nameN, what+" name")
			if !ok {
				continue
			}
			out = append(out, pair{key: name, keyN: nameN, value: e})
		}
		return out
	}
	l.errorf(n, "%s must be a mapping or a list", what)
	return nil
}

// entryType reads the type of a params or fields entry: either the value
// itself or its `type` key.
func (l *loader) entryType(n *yaml.Node, sc *scope) types.TypeID {
	if n != nil && n.Kind == yaml.MappingNode {
		l.known(n, "name", "type", "cfg")
		return l.parseType(field(n, "type"), sc)
	}
	return l.parseType(n, sc)
}

func (l *loader) variant(n *yaml.Node, next int64) (string, int64, *cfg.Predicate) {
	if n.Kind == yaml.ScalarNode {
		return n.Value, next, nil
	}
	l.known(n, "name", "value", "cfg")
	name, ok := l.str(field(n, "name"), "variant name")
	if !ok {
		return "", 0, nil
	}
	value := next
	if v := field(n, "value"); v != nil {
		var parsed int64
		if err := v.Decode(&parsed); err != nil {
			l.errorf(v, "variant value: %v", err)
		} else {
			value = parsed
		}
	}
	var pred *cfg.Predicate
	if c := field(n, "cfg"); c != nil {
		pred = l.predicate(c)
	}
	return name, value, pred
}
