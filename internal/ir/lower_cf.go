package ir

import (
	"monogen/internal/ast"
	"monogen/internal/types"
)

func (l *funcLowerer) lowerIf(e *ast.Expr, d ast.IfData, ty types.TypeID) (Operand, error) {
	cond, err := l.lowerExpr(d.Cond)
	if err != nil || l.terminated() {
		return Operand{}, err
	}

	hasResult := d.Else != nil && !l.zst(ty)
	result := NoLocalID
	if hasResult {
		result = l.newTemp(ty, e.Span)
	}

	thenBB := l.newBlock()
	elseBB := l.newBlock()
	joinBB := l.newBlock()
	l.setTerm(Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: thenBB, Else: elseBB}})

	for _, arm := range []struct {
		bb   BlockID
		body *ast.Expr
	}{{thenBB, d.Then}, {elseBB, d.Else}} {
		l.startBlock(arm.bb)
		if arm.body != nil {
			var op Operand
			if d.Else != nil {
				op, err = l.lowerAs(arm.body, ty)
			} else {
				op, err = l.lowerExpr(arm.body)
			}
			if err != nil {
				return Operand{}, err
			}
			if hasResult {
				l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: result}, Src: RValue{Kind: RValueUse, Use: op}}})
			}
		}
		l.gotoBlock(joinBB)
	}

	l.startBlock(joinBB)
	if !hasResult {
		return zstOperand(ty), nil
	}
	return placeOperand(Place{Local: result}, ty), nil
}

func (l *funcLowerer) lowerWhile(d ast.WhileData) error {
	header := l.newBlock()
	body := l.newBlock()
	exit := l.newBlock()
	l.gotoBlock(header)

	l.startBlock(header)
	cond, err := l.lowerExpr(d.Cond)
	if err != nil {
		return err
	}
	l.setTerm(Terminator{Kind: TermIf, If: IfTerm{Cond: cond, Then: body, Else: exit}})

	l.startBlock(body)
	if _, err := l.lowerExpr(d.Body); err != nil {
		return err
	}
	l.gotoBlock(header)

	l.startBlock(exit)
	return nil
}

// lowerBlock lowers statements until one of them diverges; what follows is
// unreachable and is not lowered.
func (l *funcLowerer) lowerBlock(d ast.BlockData, ty types.TypeID) (Operand, error) {
	for _, s := range d.Stmts {
		var err error
		switch s.Kind {
		case ast.StmtLet:
			err = l.lowerLet(s)
		default:
			_, err = l.lowerExpr(s.Value)
		}
		if err != nil {
			return Operand{}, err
		}
		if l.terminated() {
			return zstOperand(ty), nil
		}
	}
	if d.Result == nil {
		return zstOperand(ty), nil
	}
	return l.lowerExpr(d.Result)
}

func (l *funcLowerer) lowerLet(s *ast.Stmt) error {
	ty, ok := l.info.Locals[s.Local]
	if !ok {
		return errorf(s.Span, "local `%s` was never typed", s.Name)
	}
	if err := l.concrete(ty, "local "+s.Name); err != nil {
		return err
	}
	if l.zst(ty) {
		l.locals[s.Local] = NoLocalID
		if s.Value == nil {
			return nil
		}
		_, err := l.lowerExpr(s.Value)
		return err
	}
	if s.Value == nil {
		l.locals[s.Local] = l.addLocal(s.Name, ty, 0, s.Span)
		return nil
	}
	op, err := l.lowerAs(s.Value, ty)
	if err != nil || l.terminated() {
		return err
	}
	id := l.addLocal(s.Name, ty, 0, s.Span)
	l.locals[s.Local] = id
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: id}, Src: RValue{Kind: RValueUse, Use: op}}})
	return nil
}

func (l *funcLowerer) lowerReturn(d ast.ReturnData) error {
	if d.Value == nil {
		l.setTerm(Terminator{Kind: TermReturn})
		return nil
	}
	op, err := l.lowerAs(d.Value, l.inst.Result)
	if err != nil || l.terminated() {
		return err
	}
	if l.zst(l.inst.Result) {
		l.setTerm(Terminator{Kind: TermReturn})
		return nil
	}
	l.setTerm(Terminator{Kind: TermReturn, Return: ReturnTerm{HasValue: true, Value: op}})
	return nil
}

// lowerLogical lowers && and || with branches so the right operand only runs
// when it decides the result.
func (l *funcLowerer) lowerLogical(e *ast.Expr, d ast.BinaryData, ty types.TypeID) (Operand, error) {
	left, err := l.lowerExpr(d.Left)
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	result := l.newTemp(ty, e.Span)
	rhsBB := l.newBlock()
	shortBB := l.newBlock()
	joinBB := l.newBlock()
	short := d.Op == ast.BinOr
	if short {
		l.setTerm(Terminator{Kind: TermIf, If: IfTerm{Cond: left, Then: shortBB, Else: rhsBB}})
	} else {
		l.setTerm(Terminator{Kind: TermIf, If: IfTerm{Cond: left, Then: rhsBB, Else: shortBB}})
	}

	l.startBlock(shortBB)
	konst := Operand{Kind: OperandConst, Type: ty, Const: Const{Kind: ConstBool, Type: ty, Bool: short}}
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: result}, Src: RValue{Kind: RValueUse, Use: konst}}})
	l.gotoBlock(joinBB)

	l.startBlock(rhsBB)
	right, err := l.lowerExpr(d.Right)
	if err != nil {
		return Operand{}, err
	}
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: result}, Src: RValue{Kind: RValueUse, Use: right}}})
	l.gotoBlock(joinBB)

	l.startBlock(joinBB)
	return placeOperand(Place{Local: result}, ty), nil
}

func (l *funcLowerer) lowerAssign(d ast.AssignData) error {
	target, err := l.typeOf(d.Target)
	if err != nil {
		return err
	}
	if l.zst(target) {
		if err := l.lowerForEffects(d.Target); err != nil || l.terminated() {
			return err
		}
		_, err := l.lowerExpr(d.Value)
		return err
	}
	dst, err := l.lowerPlace(d.Target)
	if err != nil || l.terminated() {
		return err
	}
	if d.Op == ast.BinNone {
		val, err := l.lowerAs(d.Value, target)
		if err != nil || l.terminated() {
			return err
		}
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: dst, Src: RValue{Kind: RValueUse, Use: val}}})
		return nil
	}
	val, err := l.lowerExpr(d.Value)
	if err != nil || l.terminated() {
		return err
	}
	rv := RValue{Kind: RValueBinaryOp, Binary: BinaryOp{Op: d.Op, Left: placeOperand(dst, target), Right: val}}
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: dst, Src: rv}})
	return nil
}
