package program

import (
	"strconv"

	"gopkg.in/yaml.v3"

	"monogen/internal/ast"
	"monogen/internal/types"
)

// bodyScope tracks let bindings visible at the current point of a body.
type bodyScope struct {
	*scope
	locals []map[string]ast.LocalID
}

func (bs *bodyScope) push() { bs.locals = append(bs.locals, make(map[string]ast.LocalID)) }
func (bs *bodyScope) pop()  { bs.locals = bs.locals[:len(bs.locals)-1] }

func (bs *bodyScope) bind(name string, id ast.LocalID) {
	bs.locals[len(bs.locals)-1][name] = id
}

func (bs *bodyScope) lookup(name string) (ast.LocalID, bool) {
	for i := len(bs.locals) - 1; i >= 0; i-- {
		if id, ok := bs.locals[i][name]; ok {
			return id, true
		}
	}
	return ast.NoLocalID, false
}

func (l *loader) body(d *decl) {
	n := field(d.node, "body")
	if n == nil {
		return
	}
	it := d.item
	bs := &bodyScope{scope: l.typeScope(it)}
	bs.push()
	for _, p := range it.Params {
		bs.bind(p.Name, p.Local)
	}
	it.Body = l.expr(n, bs)
}

// expr decodes one expression node and stamps it with the node's span.
func (l *loader) expr(n *yaml.Node, bs *bodyScope) *ast.Expr {
	e := l.exprNode(n, bs)
	if e == nil {
		e = l.b.Void()
	}
	e.Span = l.span(n)
	return e
}

func (l *loader) exprs(n *yaml.Node, bs *bodyScope, what string) []*ast.Expr {
	nodes := l.list(n, what)
	out := make([]*ast.Expr, 0, len(nodes))
	for _, e := range nodes {
		out = append(out, l.expr(e, bs))
	}
	return out
}

func (l *loader) typeList(n *yaml.Node, sc *scope) []types.TypeID {
	nodes := l.list(n, "types")
	out := make([]types.TypeID, 0, len(nodes))
	for _, t := range nodes {
		out = append(out, l.parseType(t, sc))
	}
	return out
}

func (l *loader) exprNode(n *yaml.Node, bs *bodyScope) *ast.Expr {
	if n == nil {
		return l.b.Void()
	}
	switch n.Kind {
	case yaml.ScalarNode:
		return l.scalar(n, bs)
	case yaml.MappingNode:
		if len(n.Content) < 2 {
			l.errorf(n, "empty expression")
			return nil
		}
		return l.compound(n, n.Content[0].Value, n.Content[1], bs)
	case yaml.AliasNode:
		return l.exprNode(n.Alias, bs)
	}
	l.errorf(n, "expected an expression")
	return nil
}

func (l *loader) scalar(n *yaml.Node, bs *bodyScope) *ast.Expr {
	switch n.Tag {
	case "!!null":
		return l.b.Void()
	case "!!bool":
		v, err := strconv.ParseBool(n.Value)
		if err != nil {
			l.errorf(n, "bad bool literal `%s`", n.Value)
			return nil
		}
		return l.b.Bool(v)
	case "!!int":
		v, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			l.errorf(n, "bad integer literal `%s`", n.Value)
			return nil
		}
		return l.b.Int(v)
	case "!!float":
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			l.errorf(n, "bad float literal `%s`", n.Value)
			return nil
		}
		return l.b.Float(v)
	}
	return l.name(n, n.Value, nil, bs)
}

// name resolves a bare identifier: a local first, then a function, static or
// const.
func (l *loader) name(n *yaml.Node, name string, typeArgs []types.TypeID, bs *bodyScope) *ast.Expr {
	if id, ok := bs.lookup(name); ok {
		if len(typeArgs) > 0 {
			l.errorf(n, "local `%s` takes no type arguments", name)
		}
		return l.b.Local(id)
	}
	it := l.lookup(name)
	switch {
	case it == nil:
		l.errorf(n, "unknown name `%s`", name)
		return nil
	case it.Kind == ast.ItemFn:
		return l.b.FnRef(it, typeArgs...)
	case it.Kind.IsGlobal():
		return l.b.Global(it, typeArgs...)
	}
	l.errorf(n, "`%s` is a %s, not a value", name, it.Kind)
	return nil
}

func (l *loader) compound(n *yaml.Node, key string, v *yaml.Node, bs *bodyScope) *ast.Expr {
	b := l.b
	switch key {
	case "int":
		l.known(n, "int", "type")
		lit := l.scalar(v, bs)
		data, isLit := ast.LitData{}, false
		if lit != nil && lit.Kind == ast.ExprLit {
			data, isLit = lit.Data.(ast.LitData)
		}
		if !isLit || data.Kind != ast.LitInt {
			l.errorf(v, "`int` needs an integer literal")
			return nil
		}
		if t := field(n, "type"); t != nil {
			return b.IntOf(data.Int, l.parseType(t, bs.scope))
		}
		return lit
	case "float":
		l.known(n, "float", "type")
		var f float64
		if err := v.Decode(&f); err != nil {
			l.errorf(v, "bad float literal: %v", err)
			return nil
		}
		e := b.Float(f)
		if t := field(n, "type"); t != nil {
			data := e.Data.(ast.LitData)
			data.Type = l.parseType(t, bs.scope)
			e.Data = data
		}
		return e
	case "str":
		l.known(n, "str")
		return b.Str(v.Value)
	case "fn":
		l.known(n, "fn", "types")
		name, ok := l.str(v, "fn")
		if !ok {
			return nil
		}
		return l.name(v, name, l.typeList(field(n, "types"), bs.scope), bs)
	case "global":
		l.known(n, "global", "types")
		name, ok := l.str(v, "global")
		if !ok {
			return nil
		}
		it := l.lookup(name)
		if it == nil || !it.Kind.IsGlobal() {
			l.errorf(v, "`%s` is not a static or const", name)
			return nil
		}
		return b.Global(it, l.typeList(field(n, "types"), bs.scope)...)
	case "call":
		l.known(n, "call", "args", "types")
		var callee *ast.Expr
		if v.Kind == yaml.ScalarNode && v.Tag == "!!str" {
			callee = l.name(v, v.Value, l.typeList(field(n, "types"), bs.scope), bs)
			if callee == nil {
				return nil
			}
			callee.Span = l.span(v)
		} else {
			if field(n, "types") != nil {
				l.errorf(n, "type arguments need a named callee")
			}
			callee = l.expr(v, bs)
		}
		return b.Call(callee, l.exprs(field(n, "args"), bs, "args")...)
	case "method":
		l.known(n, "method", "recv", "args", "types")
		name, ok := l.str(v, "method")
		if !ok {
			return nil
		}
		recv := l.expr(field(n, "recv"), bs)
		e := b.MethodCall(recv, name, l.exprs(field(n, "args"), bs, "args")...)
		if ts := field(n, "types"); ts != nil {
			data := e.Data.(ast.MethodCallData)
			data.TypeArgs = l.typeList(ts, bs.scope)
			e.Data = data
		}
		return e
	case "neg":
		l.known(n, "neg")
		return b.Unary(ast.UnNeg, l.expr(v, bs))
	case "not":
		l.known(n, "not")
		return b.Unary(ast.UnNot, l.expr(v, bs))
	case "op":
		l.known(n, "op", "l", "r")
		op, ok := ast.ParseBinaryOp(v.Value)
		if !ok {
			l.errorf(v, "unknown operator `%s`", v.Value)
			return nil
		}
		return b.Binary(op, l.expr(field(n, "l"), bs), l.expr(field(n, "r"), bs))
	case "ref":
		l.known(n, "ref")
		return b.Ref(l.expr(v, bs), false)
	case "refmut":
		l.known(n, "refmut")
		return b.Ref(l.expr(v, bs), true)
	case "deref":
		l.known(n, "deref")
		return b.Deref(l.expr(v, bs))
	case "field":
		l.known(n, "field", "of")
		name, ok := l.str(v, "field")
		if !ok {
			return nil
		}
		return b.FieldOf(l.expr(field(n, "of"), bs), name)
	case "tuple_index":
		l.known(n, "tuple_index", "of")
		var i int
		if err := v.Decode(&i); err != nil || i < 0 {
			l.errorf(v, "tuple index must be a non-negative integer")
			return nil
		}
		return b.TupleIndex(l.expr(field(n, "of"), bs), i)
	case "index":
		l.known(n, "index", "of")
		obj := l.expr(field(n, "of"), bs)
		return b.Index(obj, l.expr(v, bs))
	case "tuple":
		l.known(n, "tuple")
		return b.Tuple(l.exprs(v, bs, "tuple")...)
	case "array":
		l.known(n, "array")
		return b.Array(l.exprs(v, bs, "array")...)
	case "struct":
		l.known(n, "struct", "fields")
		ty := l.parseType(v, bs.scope)
		var inits []ast.FieldInit
		for _, p := range l.pairs(field(n, "fields")) {
			init := b.Init(p.key, l.expr(p.value, bs))
			init.Span = l.span(p.keyN)
			inits = append(inits, init)
		}
		return b.StructLit(ty, inits...)
	case "enum":
		l.known(n, "enum", "variant")
		ty := l.parseType(v, bs.scope)
		variant, ok := l.str(field(n, "variant"), "variant")
		if !ok {
			return nil
		}
		return b.EnumValue(ty, variant)
	case "assign":
		l.known(n, "assign", "value", "op")
		target := l.expr(v, bs)
		value := l.expr(field(n, "value"), bs)
		if opN := field(n, "op"); opN != nil {
			op, ok := ast.ParseBinaryOp(opN.Value)
			if !ok || op.IsLogical() || op.IsComparison() {
				l.errorf(opN, "`%s` is not a compound assignment operator", opN.Value)
				return nil
			}
			return b.AssignOp(op, target, value)
		}
		return b.Assign(target, value)
	case "if":
		l.known(n, "if", "then", "else")
		cond := l.expr(v, bs)
		then := l.expr(field(n, "then"), bs)
		var els *ast.Expr
		if e := field(n, "else"); e != nil {
			els = l.expr(e, bs)
		}
		return b.If(cond, then, els)
	case "while":
		l.known(n, "while", "do")
		cond := l.expr(v, bs)
		return b.While(cond, l.expr(field(n, "do"), bs))
	case "block":
		l.known(n, "block", "result")
		return l.block(v, field(n, "result"), bs)
	case "return":
		l.known(n, "return")
		if v.Tag == "!!null" {
			return b.Return(nil)
		}
		return b.Return(l.expr(v, bs))
	case "cast":
		l.known(n, "cast", "to")
		operand := l.expr(v, bs)
		return b.Cast(operand, l.parseType(field(n, "to"), bs.scope))
	case "when":
		l.known(n, "when", "is", "then", "else")
		ty := l.parseType(v, bs.scope)
		bound, ok := l.parseBound(field(n, "is"), bs.scope)
		if !ok {
			return nil
		}
		then := l.expr(field(n, "then"), bs)
		var els *ast.Expr
		if e := field(n, "else"); e != nil {
			els = l.expr(e, bs)
		}
		return b.When(ty, bound, then, els)
	}
	l.errorf(n.Content[0], "unknown expression `%s`", key)
	return nil
}

// block decodes a statement list with its own let scope.
func (l *loader) block(stmts, result *yaml.Node, bs *bodyScope) *ast.Expr {
	bs.push()
	defer bs.pop()
	var out []*ast.Stmt
	for _, s := range l.list(stmts, "block") {
		if st := l.stmt(s, bs); st != nil {
			out = append(out, st)
		}
	}
	var res *ast.Expr
	if result != nil {
		res = l.expr(result, bs)
	}
	return l.b.Block(res, out...)
}

func (l *loader) stmt(n *yaml.Node, bs *bodyScope) *ast.Stmt {
	var st *ast.Stmt
	head := ""
	if n.Kind == yaml.MappingNode && len(n.Content) > 0 {
		head = n.Content[0].Value
	}
	switch head {
	case "let":
		l.known(n, "let", "type", "value", "cfg")
		name, ok := l.str(field(n, "let"), "let")
		if !ok {
			return nil
		}
		ty := types.NoTypeID
		if t := field(n, "type"); t != nil {
			ty = l.parseType(t, bs.scope)
		}
		var value *ast.Expr
		if v := field(n, "value"); v != nil {
			value = l.expr(v, bs)
		}
		var id ast.LocalID
		st, id = l.b.Let(name, ty, value)
		bs.bind(name, id)
	case "do":
		l.known(n, "do", "cfg")
		st = l.b.Do(l.expr(field(n, "do"), bs))
	default:
		st = l.b.Do(l.expr(n, bs))
	}
	st.Span = l.span(n)
	if c := field(n, "cfg"); c != nil && (head == "let" || head == "do") {
		st.Cfg = l.predicate(c)
	}
	return st
}
