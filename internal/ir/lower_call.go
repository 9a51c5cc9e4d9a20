package ir

import (
	"monogen/internal/ast"
	"monogen/internal/mono"
	"monogen/internal/types"
)

func (l *funcLowerer) lowerCall(e *ast.Expr, d ast.CallData, ty types.TypeID) (Operand, error) {
	params, ok := l.info.Params[e]
	if !ok || len(params) != len(d.Args) {
		return Operand{}, errorf(e.Span, "call has no resolved signature")
	}
	var callee Callee
	if _, static := d.Callee.Data.(ast.FnRefData); static {
		ref, err := l.staticCallee(e)
		if err != nil {
			return Operand{}, err
		}
		callee = ref
	} else {
		ct, err := l.typeOf(d.Callee)
		if err != nil {
			return Operand{}, err
		}
		fn, err := l.lowerExpr(d.Callee)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		if l.types.Kind(ct) == types.KindFnItem {
			if callee, err = l.staticCallee(e); err != nil {
				return Operand{}, err
			}
		} else {
			// the callee value is read after the arguments run
			if len(d.Args) > 0 {
				fn = l.spill(fn, d.Callee.Span)
			}
			callee = Callee{Kind: CalleeValue, Value: fn}
		}
	}
	args, err := l.lowerOperands(d.Args, params)
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	return l.emitCall(callee, args, ty, e), nil
}

func (l *funcLowerer) staticCallee(e *ast.Expr) (Callee, error) {
	ref, ok := l.info.Callees[e]
	if !ok || ref.Symbol == "" {
		return Callee{}, errorf(e.Span, "call has no resolved callee")
	}
	return Callee{Kind: CalleeSym, Symbol: ref.Symbol, Name: ref.Name}, nil
}

// emitCall drops zero-sized arguments and stores the result only when it
// has storage.
func (l *funcLowerer) emitCall(callee Callee, args []Operand, ty types.TypeID, e *ast.Expr) Operand {
	call := CallInstr{Callee: callee, Args: sized(args)}
	var out Operand
	if l.zst(ty) {
		out = zstOperand(ty)
	} else {
		tmp := l.newTemp(ty, e.Span)
		call.HasDst, call.Dst = true, Place{Local: tmp}
		out = placeOperand(call.Dst, ty)
	}
	l.emit(Instr{Kind: InstrCall, Call: call})
	return out
}

func (l *funcLowerer) lowerMethodCall(e *ast.Expr, d ast.MethodCallData, ty types.TypeID) (Operand, error) {
	params, ok := l.info.Params[e]
	if !ok || len(params) != len(d.Args)+1 {
		return Operand{}, errorf(e.Span, "method call has no resolved signature")
	}
	callee, err := l.staticCallee(e)
	if err != nil {
		return Operand{}, err
	}
	recv, err := l.lowerReceiver(d.Receiver, l.info.Receivers[e], params[0])
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	if len(d.Args) > 0 {
		for _, a := range d.Args {
			if !pure(a) {
				recv = l.spill(recv, d.Receiver.Span)
				break
			}
		}
	}
	args, err := l.lowerOperands(d.Args, params[1:])
	if err != nil || l.terminated() {
		return Operand{}, err
	}
	return l.emitCall(callee, append([]Operand{recv}, args...), ty, e), nil
}

// lowerReceiver applies the implicit borrow or dereference of a method
// receiver and the pointer coercion that follows it.
func (l *funcLowerer) lowerReceiver(recv *ast.Expr, mi mono.MethodInfo, want types.TypeID) (Operand, error) {
	rt, err := l.typeOf(recv)
	if err != nil {
		return Operand{}, err
	}
	var op Operand
	switch mi.Adjust {
	case mono.AdjustRef, mono.AdjustRefMut:
		ptr := l.types.Ptr(rt, mi.Adjust == mono.AdjustRefMut)
		if l.zst(rt) {
			if _, err := l.lowerExpr(recv); err != nil || l.terminated() {
				return Operand{}, err
			}
			op = l.danglingPtr(ptr, recv)
			break
		}
		p, err := l.lowerPlace(recv)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		kind := OperandAddrOf
		if mi.Adjust == mono.AdjustRefMut {
			kind = OperandAddrOfMut
		}
		op = Operand{Kind: kind, Type: ptr, Place: p}
	case mono.AdjustDeref:
		elem := l.types.Elem(rt)
		if l.zst(elem) {
			if _, err := l.lowerExpr(recv); err != nil || l.terminated() {
				return Operand{}, err
			}
			return zstOperand(elem), nil
		}
		p, err := l.pointerPlace(recv)
		if err != nil || l.terminated() {
			return Operand{}, err
		}
		op = placeOperand(p, elem)
	default:
		if op, err = l.lowerExpr(recv); err != nil || l.terminated() {
			return Operand{}, err
		}
	}
	if op.Type == want || op.Kind == OperandZST {
		return op, nil
	}
	var kind CastKind
	switch mi.Coercion {
	case types.CoerceConstPtr:
		kind = CastConstPtr
	case types.CoerceUnsize:
		kind = CastUnsize
	default:
		return Operand{}, errorf(recv.Span, "receiver `%s` does not match `%s`", l.types.Label(op.Type), l.types.Label(want))
	}
	return l.assignTemp(want, RValue{Kind: RValueCast, Cast: CastOp{Kind: kind, Value: op, To: want}}, recv.Span), nil
}

// lowerPlace resolves e to storage. Expressions that are not places are
// evaluated into a temporary first.
func (l *funcLowerer) lowerPlace(e *ast.Expr) (Place, error) {
	switch d := e.Data.(type) {
	case ast.LocalData:
		id, ok := l.locals[d.Local]
		if !ok || id == NoLocalID {
			return Place{}, errorf(e.Span, "local `%s` has no storage", d.Name)
		}
		return Place{Local: id}, nil
	case ast.GlobalData:
		ref, ok := l.info.Globals[e]
		if !ok || ref.Symbol == "" {
			return Place{}, errorf(e.Span, "unresolved global %s", l.sess.Program.Path(d.Item))
		}
		return GlobalPlace(ref.Symbol), nil
	case ast.DerefData:
		return l.pointerPlace(d.Operand)
	case ast.FieldData:
		base, err := l.objectPlace(e, d.Object)
		if err != nil || l.terminated() {
			return Place{}, err
		}
		idx, ok := l.info.Fields[e]
		if !ok {
			return Place{}, errorf(e.Span, "unresolved field `%s`", d.Name)
		}
		return base.Project(PlaceProj{Kind: PlaceProjField, FieldIdx: idx}), nil
	case ast.TupleIndexData:
		base, err := l.objectPlace(e, d.Object)
		if err != nil || l.terminated() {
			return Place{}, err
		}
		return base.Project(PlaceProj{Kind: PlaceProjField, FieldIdx: d.Index}), nil
	case ast.IndexData:
		base, err := l.objectPlace(e, d.Object)
		if err != nil || l.terminated() {
			return Place{}, err
		}
		idx, err := l.lowerExpr(d.Index)
		if err != nil || l.terminated() {
			return Place{}, err
		}
		tmp := l.newTemp(idx.Type, d.Index.Span)
		l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: tmp}, Src: RValue{Kind: RValueUse, Use: idx}}})
		return base.Project(PlaceProj{Kind: PlaceProjIndex, IndexLocal: tmp}), nil
	}
	op, err := l.lowerExpr(e)
	if err != nil || l.terminated() {
		return Place{}, err
	}
	return l.storeTemp(op, e), nil
}

func (l *funcLowerer) objectPlace(access, obj *ast.Expr) (Place, error) {
	if l.info.Derefs[access] {
		return l.pointerPlace(obj)
	}
	return l.lowerPlace(obj)
}

// pointerPlace evaluates a pointer and returns the place it points to.
func (l *funcLowerer) pointerPlace(ptr *ast.Expr) (Place, error) {
	op, err := l.lowerExpr(ptr)
	if err != nil || l.terminated() {
		return Place{}, err
	}
	var base Place
	if op.Kind == OperandCopy {
		base = op.Place
	} else {
		base = l.storeTemp(op, ptr)
	}
	return base.Project(PlaceProj{Kind: PlaceProjDeref}), nil
}

func (l *funcLowerer) storeTemp(op Operand, e *ast.Expr) Place {
	if op.Kind == OperandCopy && len(op.Place.Proj) == 0 {
		return op.Place
	}
	tmp := l.newTemp(op.Type, e.Span)
	l.emit(Instr{Kind: InstrAssign, Assign: AssignInstr{Dst: Place{Local: tmp}, Src: RValue{Kind: RValueUse, Use: op}}})
	return Place{Local: tmp}
}
