package ir

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"monogen/internal/types"
)

// DumpProgram writes a human-readable representation of a lowered program.
// Functions appear in program order, which is symbol order.
func DumpProgram(w io.Writer, p *Program, typesIn *types.Interner) error {
	if w == nil || p == nil {
		return nil
	}
	pr := printer{types: typesIn}
	fmt.Fprintf(&pr.buf, "funcs=%d\n", len(p.Funcs))
	for _, sym := range p.Externs {
		pr.buf.WriteString("extern " + sym + "\n")
	}
	for _, g := range p.Globals {
		pr.global(g)
	}
	for _, f := range p.Funcs {
		pr.fn(f)
	}
	_, err := io.WriteString(w, pr.buf.String())
	return err
}

// DumpFunc writes one function.
func DumpFunc(w io.Writer, f *Func, typesIn *types.Interner) error {
	if w == nil || f == nil {
		return nil
	}
	pr := printer{types: typesIn}
	pr.fn(f)
	_, err := io.WriteString(w, pr.buf.String())
	return err
}

// printer renders IR text; it only needs the interner for type labels.
type printer struct {
	types *types.Interner
	buf   strings.Builder
}

func (pr *printer) global(g *Global) {
	kind := "static"
	switch {
	case g.Const:
		kind = "const"
	case g.Mutable:
		kind = "static mut"
	}
	fmt.Fprintf(&pr.buf, "\n%s %s [%s]: %s", kind, g.Name, g.Symbol, pr.ty(g.Type))
	if g.Init == nil {
		pr.buf.WriteString(" extern\n")
		return
	}
	pr.buf.WriteString(" =\n")
	pr.body(g.Init)
}

func (pr *printer) fn(f *Func) {
	fmt.Fprintf(&pr.buf, "\nfn %s [%s] -> %s:\n", f.Name, f.Symbol, pr.ty(f.Result))
	pr.body(f)
}

func (pr *printer) body(f *Func) {
	pr.buf.WriteString("  locals:\n")
	for id, l := range f.Locals {
		name := l.Name
		if name == "" {
			name = "_"
		}
		fmt.Fprintf(&pr.buf, "    L%d: %s", id, pr.ty(l.Type))
		if l.Flags != 0 {
			pr.buf.WriteString(" " + l.Flags.String())
		}
		pr.buf.WriteString(" name=" + name + "\n")
	}
	for b := range f.Blocks {
		block := &f.Blocks[b]
		fmt.Fprintf(&pr.buf, "  bb%d:\n", block.ID)
		for i := range block.Instrs {
			pr.buf.WriteString("    " + pr.instr(&block.Instrs[i]) + "\n")
		}
		pr.buf.WriteString("    " + block.Term.String() + "\n")
	}
}

func (pr *printer) instr(ins *Instr) string {
	switch ins.Kind {
	case InstrAssign:
		return ins.Assign.Dst.String() + " = " + pr.rvalue(&ins.Assign.Src)
	case InstrCall:
		c := &ins.Call
		var dst string
		if c.HasDst {
			dst = c.Dst.String() + " = "
		}
		return dst + "call " + c.Callee.String() + "(" + joinOperands(c.Args) + ")"
	case InstrNop:
		return "nop"
	}
	return "<instr?>"
}

func (pr *printer) rvalue(rv *RValue) string {
	switch rv.Kind {
	case RValueUse:
		return rv.Use.String()
	case RValueUnaryOp:
		return fmt.Sprintf("(%v %s)", rv.Unary.Op, rv.Unary.Operand)
	case RValueBinaryOp:
		return fmt.Sprintf("(%s %v %s)", rv.Binary.Left, rv.Binary.Op, rv.Binary.Right)
	case RValueCast:
		return fmt.Sprintf("cast.%s %s to %s", rv.Cast.Kind, rv.Cast.Value, pr.ty(rv.Cast.To))
	case RValueStructLit:
		fields := make([]string, 0, len(rv.StructLit.Fields))
		for _, f := range rv.StructLit.Fields {
			fields = append(fields, "#"+strconv.Itoa(f.Index)+"="+f.Value.String())
		}
		return "struct_lit " + pr.ty(rv.StructLit.TypeID) + " {" + strings.Join(fields, ", ") + "}"
	case RValueArrayLit:
		return "array_lit [" + joinOperands(rv.ArrayLit.Elems) + "]"
	case RValueTupleLit:
		elems := make([]string, 0, len(rv.TupleLit.Elems))
		for i, op := range rv.TupleLit.Elems {
			elems = append(elems, "#"+strconv.Itoa(rv.TupleLit.Indices[i])+"="+op.String())
		}
		return "tuple_lit (" + strings.Join(elems, ", ") + ")"
	}
	return "<rvalue?>"
}

func (pr *printer) ty(id types.TypeID) string {
	switch {
	case id == types.NoTypeID:
		return "?"
	case pr.types == nil:
		return "type#" + strconv.Itoa(int(id))
	}
	return pr.types.Label(id)
}

var localFlagNames = []struct {
	flag LocalFlags
	name string
}{
	{LocalFlagParam, "param"},
	{LocalFlagTemp, "temp"},
	{LocalFlagRef, "ref"},
	{LocalFlagRefMut, "refmut"},
}

// String renders the flags as "[param,temp]".
func (f LocalFlags) String() string {
	var names []string
	for _, n := range localFlagNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return "[" + strings.Join(names, ",") + "]"
}

func (p Place) String() string {
	if !p.IsValid() {
		return "L?"
	}
	s := "L" + strconv.Itoa(int(p.Local))
	if p.Global != "" {
		s = "@" + p.Global
	}
	for _, step := range p.Proj {
		switch step.Kind {
		case PlaceProjDeref:
			s = "(*" + s + ")"
		case PlaceProjField:
			s += ".#" + strconv.Itoa(step.FieldIdx)
		case PlaceProjIndex:
			s += "[L" + strconv.Itoa(int(step.IndexLocal)) + "]"
		default:
			s += ".<?>"
		}
	}
	return s
}

var placeOperandPrefix = map[OperandKind]string{
	OperandCopy:      "copy ",
	OperandAddrOf:    "addr_of ",
	OperandAddrOfMut: "addr_of_mut ",
}

func (op Operand) String() string {
	switch op.Kind {
	case OperandConst:
		return op.Const.String()
	case OperandZST:
		return "zst"
	}
	if prefix, ok := placeOperandPrefix[op.Kind]; ok {
		return prefix + op.Place.String()
	}
	return "<op?>"
}

func joinOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, ", ")
}

func (c Const) String() string {
	switch c.Kind {
	case ConstInt:
		return "const " + strconv.FormatInt(c.Int, 10)
	case ConstUint:
		return "const " + strconv.FormatUint(c.Uint, 10) + ":uint"
	case ConstFloat:
		return fmt.Sprintf("const %g", c.Float)
	case ConstBool:
		return "const " + strconv.FormatBool(c.Bool)
	case ConstString:
		return "const " + strconv.Quote(c.Str)
	case ConstEnum:
		return "const variant#" + strconv.FormatInt(c.Int, 10)
	}
	return "const ?"
}

func (c Callee) String() string {
	switch c.Kind {
	case CalleeSym:
		return c.Symbol
	case CalleeValue:
		return "(" + c.Value.String() + ")"
	}
	return "<callee?>"
}

func (t Terminator) String() string {
	switch t.Kind {
	case TermReturn:
		if t.Return.HasValue {
			return "return " + t.Return.Value.String()
		}
		return "return"
	case TermGoto:
		return "goto bb" + strconv.Itoa(int(t.Goto.Target))
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", t.If.Cond, t.If.Then, t.If.Else)
	}
	return "unreachable"
}
