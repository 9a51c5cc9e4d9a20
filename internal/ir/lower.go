package ir

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"fortio.org/safecast"

	"monogen/internal/ast"
	"monogen/internal/diag"
	"monogen/internal/mono"
	"monogen/internal/session"
	"monogen/internal/source"
	"monogen/internal/trace"
	"monogen/internal/types"
)

// Layout answers the size and field questions lowering needs about concrete
// types. *mono.Engine implements it.
type Layout interface {
	IsZeroSized(ty types.TypeID) bool
	Fields(ty types.TypeID) ([]mono.Field, bool)
}

// LowerProgram lowers every function instance with a body and every static
// and const. Functions and globals keep the order of insts, which the engine
// already sorts by symbol.
func LowerProgram(ctx context.Context, sess *session.Session, layout Layout, insts []*mono.Instance) (*Program, error) {
	span := trace.Begin(sess.Tracer, trace.ScopePass, "lower", trace.CurrentSpan(ctx))
	out := &Program{BySymbol: make(map[string]FuncID)}
	var errs []error
	for _, inst := range insts {
		if inst != nil && inst.Kind.IsGlobal() {
			g, err := lowerGlobal(sess, layout, inst)
			if err != nil {
				errs = append(errs, fmt.Errorf("lowering %s: %w", inst.Name, err))
				continue
			}
			out.Globals = append(out.Globals, g)
			continue
		}
		if inst == nil || inst.Kind != ast.ItemFn {
			continue
		}
		if inst.Body == nil {
			out.Externs = append(out.Externs, inst.Symbol)
			continue
		}
		f, err := Lower(sess, layout, inst)
		if err != nil {
			errs = append(errs, fmt.Errorf("lowering %s: %w", inst.Name, err))
			continue
		}
		id, err := safecast.Conv[int32](len(out.Funcs))
		if err != nil {
			return nil, fmt.Errorf("function count overflow: %w", err)
		}
		f.ID = FuncID(id)
		out.Funcs = append(out.Funcs, f)
		out.BySymbol[f.Symbol] = f.ID
	}
	slices.Sort(out.Externs)
	span.End(fmt.Sprintf("%d funcs, %d globals", len(out.Funcs), len(out.Globals)))
	return out, errors.Join(errs...)
}

func lowerGlobal(sess *session.Session, layout Layout, inst *mono.Instance) (*Global, error) {
	g := &Global{
		Name:    inst.Name,
		Symbol:  inst.Symbol,
		Span:    inst.Item.Span,
		Type:    inst.Type,
		Const:   inst.Kind == ast.ItemConst,
		Mutable: inst.Item.Mutable,
	}
	if sess.Types.ContainsPlaceholder(g.Type) {
		return nil, errorf(g.Span, "global %s has residual generic type `%s`", g.Name, sess.Types.Label(g.Type))
	}
	if inst.Body == nil {
		return g, nil
	}
	init, err := Lower(sess, layout, inst)
	if err != nil {
		return nil, err
	}
	g.Init = init
	return g, nil
}

type funcLowerer struct {
	sess   *session.Session
	types  *types.Interner
	bt     types.Builtins
	layout Layout
	inst   *mono.Instance
	info   *mono.BodyInfo

	f   *Func
	cur BlockID

	// NoLocalID marks zero-sized bindings
	locals map[ast.LocalID]LocalID
}

// Lower builds the control-flow graph of one checked function instance, or of
// the initializer of a static or const.
func Lower(sess *session.Session, layout Layout, inst *mono.Instance) (*Func, error) {
	if inst == nil || inst.Body == nil || inst.Info == nil {
		return nil, errors.New("instance has no checked body")
	}
	l := &funcLowerer{
		sess:   sess,
		types:  sess.Types,
		bt:     sess.Types.Builtins(),
		layout: layout,
		inst:   inst,
		info:   inst.Info,
		locals: make(map[ast.LocalID]LocalID),
	}
	return l.lowerFunc()
}

func (l *funcLowerer) lowerFunc() (*Func, error) {
	inst := l.inst
	l.f = &Func{
		ID:     NoFuncID,
		Name:   inst.Name,
		Symbol: inst.Symbol,
		Span:   inst.Item.Span,
		Result: inst.Result,
	}
	if err := l.concrete(inst.Result, "result"); err != nil {
		return nil, err
	}
	for _, p := range inst.Params {
		if err := l.concrete(p.Type, "parameter "+p.Name); err != nil {
			return nil, err
		}
		if l.zst(p.Type) {
			l.locals[p.Local] = NoLocalID
			continue
		}
		id := l.addLocal(p.Name, p.Type, LocalFlagParam, inst.Item.Span)
		l.locals[p.Local] = id
		l.f.Params = append(l.f.Params, id)
	}

	entry := l.newBlock()
	l.f.Entry = entry
	l.cur = entry

	op, err := l.lowerAs(inst.Body, inst.Result)
	if err != nil {
		return nil, err
	}
	if !l.terminated() {
		if l.zst(inst.Result) {
			l.setTerm(Terminator{Kind: TermReturn})
		} else {
			l.setTerm(Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: op}})
		}
	}
	for i := range l.f.Blocks {
		if l.f.Blocks[i].Term.Kind == TermNone {
			l.f.Blocks[i].Term.Kind = TermUnreachable
		}
	}
	return l.f, nil
}

// loweringError reports a body that reached lowering in a state the checker
// should have rejected.
type loweringError struct {
	span source.Span
	msg  string
}

func (e *loweringError) Error() string {
	return e.msg
}

// Span returns where the problem was found.
func (e *loweringError) Span() source.Span {
	return e.span
}

func errorf(span source.Span, format string, args ...any) error {
	return &loweringError{span: span, msg: fmt.Sprintf(format, args...)}
}

func (l *funcLowerer) concrete(ty types.TypeID, what string) error {
	if ty == types.NoTypeID {
		return errorf(l.inst.Item.Span, "%s of %s has no type", what, l.inst.Name)
	}
	if l.types.ContainsPlaceholder(ty) {
		return errorf(l.inst.Item.Span, "%s of %s has residual generic type `%s`", what, l.inst.Name, l.types.Label(ty))
	}
	return nil
}

func (l *funcLowerer) zst(ty types.TypeID) bool {
	return l.layout.IsZeroSized(ty)
}

func (l *funcLowerer) typeOf(e *ast.Expr) (types.TypeID, error) {
	ty := l.info.TypeOf(e)
	if ty == types.NoTypeID {
		if e.Kind == ast.ExprVoid {
			return l.bt.Void, nil
		}
		return types.NoTypeID, errorf(e.Span, "%s expression has no type", e.Kind)
	}
	if l.types.ContainsPlaceholder(ty) {
		return types.NoTypeID, errorf(e.Span, "%s expression has residual generic type `%s`", e.Kind, l.types.Label(ty))
	}
	return ty, nil
}

func (l *funcLowerer) addLocal(name string, ty types.TypeID, flags LocalFlags, span source.Span) LocalID {
	if tt, ok := l.types.Lookup(ty); ok && tt.Kind == types.KindPointer {
		if tt.Mutable {
			flags |= LocalFlagRefMut
		} else {
			flags |= LocalFlagRef
		}
	}
	id := LocalID(l.nextID(len(l.f.Locals), "local"))
	l.f.Locals = append(l.f.Locals, Local{Type: ty, Flags: flags, Name: name, Span: span})
	return id
}

func (l *funcLowerer) newTemp(ty types.TypeID, span source.Span) LocalID {
	return l.addLocal("", ty, LocalFlagTemp, span)
}

func (l *funcLowerer) newBlock() BlockID {
	id := BlockID(l.nextID(len(l.f.Blocks), "block"))
	l.f.Blocks = append(l.f.Blocks, Block{ID: id})
	return id
}

func (l *funcLowerer) nextID(n int, what string) int32 {
	raw, err := safecast.Conv[int32](n)
	if err != nil {
		types.Internalf(diag.InternalLowering, "lower", "%s id overflow in `%s`: %v", what, l.inst.Name, err)
	}
	return raw
}

func (l *funcLowerer) curBlock() *Block {
	return &l.f.Blocks[l.cur]
}

func (l *funcLowerer) startBlock(id BlockID) {
	l.cur = id
}

func (l *funcLowerer) terminated() bool {
	return l.curBlock().Terminated()
}

func (l *funcLowerer) setTerm(t Terminator) {
	bb := l.curBlock()
	if bb.Terminated() {
		return
	}
	bb.Term = t
}

func (l *funcLowerer) emit(ins Instr) {
	if l.terminated() {
		return
	}
	bb := l.curBlock()
	bb.Instrs = append(bb.Instrs, ins)
}

func (l *funcLowerer) gotoBlock(target BlockID) {
	l.setTerm(Terminator{Kind: TermGoto, Goto: GotoTerm{Target: target}})
}

func zstOperand(ty types.TypeID) Operand {
	return Operand{Kind: OperandZST, Type: ty}
}

func placeOperand(p Place, ty types.TypeID) Operand {
	return Operand{Kind: OperandCopy, Type: ty, Place: p}
}

// assignTemp stores rv into a fresh temporary, or drops it when ty has no
// storage. RValues carry no side effects of their own.
func (l *funcLowerer) assignTemp(ty types.TypeID, rv RValue, span source.Span) Operand {
	if l.zst(ty) {
		return zstOperand(ty)
	}
	tmp := l.newTemp(ty, span)
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: tmp}, Src: rv}})
	return placeOperand(Place{Local: tmp}, ty)
}

// spill copies a place operand into a temporary so later side effects cannot
// change the value already evaluated.
func (l *funcLowerer) spill(op Operand, span source.Span) Operand {
	if op.Kind != OperandCopy {
		return op
	}
	return l.assignTemp(op.Type, RValue{Kind: RValueUse, Use: op}, span)
}

// pure reports expressions whose evaluation has no effects and reads nothing
// that a sibling could change first.
func pure(e *ast.Expr) bool {
	switch e.Data.(type) {
	case nil, ast.LitData, ast.FnRefData, ast.EnumValueData:
		return true
	}
	return false
}

// lowerOperands evaluates es left to right. A place read is spilled when a
// later sibling may have side effects.
func (l *funcLowerer) lowerOperands(es []*ast.Expr, want []types.TypeID) ([]Operand, error) {
	out := make([]Operand, 0, len(es))
	for i, e := range es {
		var (
			op  Operand
			err error
		)
		if want != nil {
			op, err = l.lowerAs(e, want[i])
		} else {
			op, err = l.lowerExpr(e)
		}
		if err != nil || l.terminated() {
			return nil, err
		}
		for _, later := range es[i+1:] {
			if !pure(later) {
				op = l.spill(op, e.Span)
				break
			}
		}
		out = append(out, op)
	}
	return out, nil
}

// sized drops zero-sized operands.
func sized(ops []Operand) []Operand {
	out := ops[:0:0]
	for _, op := range ops {
		if op.Kind != OperandZST {
			out = append(out, op)
		}
	}
	return out
}
