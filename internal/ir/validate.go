package ir

import (
	"errors"
	"fmt"
	"slices"

	"monogen/internal/types"
)

// Validate checks the structural invariants of a lowered program and returns
// every violation joined into one error. layout may be nil.
func Validate(p *Program, typesIn *types.Interner, layout Layout) error {
	if p == nil {
		return nil
	}
	var errs []error
	for i, f := range p.Funcs {
		switch {
		case f == nil:
			errs = append(errs, fmt.Errorf("function #%d is nil", i))
			continue
		case int(f.ID) != i:
			errs = append(errs, fmt.Errorf("function %s: id %d at index %d", f.Name, f.ID, i))
		}
		if id, ok := p.BySymbol[f.Symbol]; !ok || id != f.ID {
			errs = append(errs, fmt.Errorf("function %s: symbol %q not indexed", f.Name, f.Symbol))
		}
		c := &funcChecker{f: f, types: typesIn, layout: layout, defined: p.Defines, global: p.Global}
		if err := c.check(); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name, err))
		}
	}
	for i, g := range p.Globals {
		switch {
		case g == nil:
			errs = append(errs, fmt.Errorf("global #%d is nil", i))
			continue
		case i > 0 && p.Globals[i-1] != nil && p.Globals[i-1].Symbol >= g.Symbol:
			errs = append(errs, fmt.Errorf("global %s: out of symbol order", g.Name))
		case g.Const && g.Init == nil:
			errs = append(errs, fmt.Errorf("const %s: no initializer", g.Name))
		}
		if g.Init == nil {
			continue
		}
		if g.Init.Result != g.Type {
			errs = append(errs, fmt.Errorf("global %s: initializer result differs from its type", g.Name))
		}
		c := &funcChecker{f: g.Init, types: typesIn, layout: layout, defined: p.Defines, global: p.Global}
		if err := c.check(); err != nil {
			errs = append(errs, fmt.Errorf("global %s: %w", g.Name, err))
		}
	}
	return errors.Join(errs...)
}

// ValidateFunc checks one function's blocks against its locals and result type.
// Call targets are not resolved without the enclosing program.
func ValidateFunc(f *Func, typesIn *types.Interner, layout Layout) error {
	if f == nil {
		return nil
	}
	c := &funcChecker{f: f, types: typesIn, layout: layout}
	return c.check()
}

func (c *funcChecker) check() error {
	f := c.f
	if !c.block(f.Entry) {
		c.failf("entry bb%d does not exist", f.Entry)
	}
	for _, id := range f.Params {
		if !c.local(id) {
			c.failf("param L%d does not exist", id)
		}
	}
	c.locals()
	for i := range f.Blocks {
		c.checkBlock(i, &f.Blocks[i])
	}
	return errors.Join(c.errs...)
}

type funcChecker struct {
	f      *Func
	types  *types.Interner
	layout Layout
	// defined resolves CalleeSym targets and global resolves global places;
	// nil skips the check
	defined func(symbol string) bool
	global  func(symbol string) *Global
	errs    []error
}

func (c *funcChecker) failf(format string, args ...any) {
	c.errs = append(c.errs, fmt.Errorf(format, args...))
}

func (c *funcChecker) block(id BlockID) bool { return id >= 0 && int(id) < len(c.f.Blocks) }
func (c *funcChecker) local(id LocalID) bool { return id >= 0 && int(id) < len(c.f.Locals) }

func (c *funcChecker) locals() {
	if c.types == nil {
		return
	}
	for i, l := range c.f.Locals {
		switch {
		case l.Type == types.NoTypeID:
			c.failf("L%d: missing type", i)
		case c.types.ContainsPlaceholder(l.Type):
			c.failf("L%d: residual generic type %s", i, c.types.Label(l.Type))
		}
	}
}

func (c *funcChecker) checkBlock(i int, bb *Block) {
	if int(bb.ID) != i {
		c.failf("bb%d: block carries id %d", i, bb.ID)
	}
	for j := range bb.Instrs {
		c.checkInstr(fmt.Sprintf("bb%d.%d", i, j), &bb.Instrs[j])
	}

	at := fmt.Sprintf("bb%d.term", i)
	switch t := &bb.Term; t.Kind {
	case TermNone:
		c.failf("bb%d: unterminated block", i)
	case TermGoto:
		if !c.block(t.Goto.Target) {
			c.failf("bb%d: goto target bb%d does not exist", i, t.Goto.Target)
		}
	case TermIf:
		c.operand(at, &t.If.Cond)
		if !c.block(t.If.Then) {
			c.failf("bb%d: if then target bb%d does not exist", i, t.If.Then)
		}
		if !c.block(t.If.Else) {
			c.failf("bb%d: if else target bb%d does not exist", i, t.If.Else)
		}
	case TermReturn:
		if t.Return.HasValue {
			c.operand(at, &t.Return.Value)
		}
		c.checkReturn(i, &t.Return)
	}
}

func (c *funcChecker) checkInstr(at string, ins *Instr) {
	switch ins.Kind {
	case InstrAssign:
		c.place(at, ins.Assign.Dst)
		c.store(at, ins.Assign.Dst)
		for _, op := range rvalueOperands(&ins.Assign.Src) {
			c.operand(at, op)
		}
	case InstrCall:
		call := &ins.Call
		if call.HasDst {
			c.place(at, call.Dst)
			c.store(at, call.Dst)
		}
		switch call.Callee.Kind {
		case CalleeValue:
			c.operand(at, &call.Callee.Value)
		case CalleeSym:
			if c.defined != nil && !c.defined(call.Callee.Symbol) {
				c.failf("%s: call to undefined symbol %s", at, call.Callee.Symbol)
			}
		}
		for k := range call.Args {
			if call.Args[k].Kind == OperandZST {
				c.failf("%s: zero-sized call argument %d", at, k)
			}
			c.operand(at, &call.Args[k])
		}
	}
}

func (c *funcChecker) place(at string, p Place) {
	switch {
	case p.Global != "":
		if c.global != nil && c.global(p.Global) == nil {
			c.failf("%s: global %s does not exist", at, p.Global)
		}
	case !c.local(p.Local):
		c.failf("%s: local L%d does not exist", at, p.Local)
	}
	for _, step := range p.Proj {
		if step.Kind == PlaceProjIndex && !c.local(step.IndexLocal) {
			c.failf("%s: index local L%d does not exist", at, step.IndexLocal)
		}
	}
}

// store rejects writes into a const or an immutable static. Projections
// through a pointer write elsewhere.
func (c *funcChecker) store(at string, p Place) {
	if p.Global == "" || c.global == nil || slices.ContainsFunc(p.Proj, func(s PlaceProj) bool { return s.Kind == PlaceProjDeref }) {
		return
	}
	if g := c.global(p.Global); g != nil && (g.Const || !g.Mutable) {
		c.failf("%s: store to immutable global %s", at, p.Global)
	}
}

func (c *funcChecker) operand(at string, op *Operand) {
	if _, reads := placeOperandPrefix[op.Kind]; reads {
		c.place(at, op.Place)
	}
}

// checkReturn requires a value exactly when the result type has storage.
// Without a layout only the value type is compared.
func (c *funcChecker) checkReturn(i int, ret *ReturnTerm) {
	if c.types == nil {
		return
	}
	result := c.f.Result
	if ret.HasValue && ret.Value.Type != result {
		c.failf("bb%d: returns %s, want %s", i, c.types.Label(ret.Value.Type), c.types.Label(result))
	}
	if c.layout == nil {
		return
	}
	switch zst := c.layout.IsZeroSized(result); {
	case zst && ret.HasValue:
		c.failf("bb%d: value returned for zero-sized %s", i, c.types.Label(result))
	case !zst && !ret.HasValue:
		c.failf("bb%d: missing return value of type %s", i, c.types.Label(result))
	}
}

// rvalueOperands lists the operands an rvalue reads.
func rvalueOperands(rv *RValue) []*Operand {
	var out []*Operand
	switch rv.Kind {
	case RValueUse:
		out = append(out, &rv.Use)
	case RValueUnaryOp:
		out = append(out, &rv.Unary.Operand)
	case RValueBinaryOp:
		out = append(out, &rv.Binary.Left, &rv.Binary.Right)
	case RValueCast:
		out = append(out, &rv.Cast.Value)
	case RValueStructLit:
		for i := range rv.StructLit.Fields {
			out = append(out, &rv.StructLit.Fields[i].Value)
		}
	case RValueArrayLit:
		for i := range rv.ArrayLit.Elems {
			out = append(out, &rv.ArrayLit.Elems[i])
		}
	case RValueTupleLit:
		for i := range rv.TupleLit.Elems {
			out = append(out, &rv.TupleLit.Elems[i])
		}
	}
	return out
}
