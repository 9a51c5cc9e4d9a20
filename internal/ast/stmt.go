package ast

import (
	"monogen/internal/cfg"
	"monogen/internal/source"
	"monogen/internal/types"
)

// StmtKind enumerates statement kinds.
type StmtKind uint8

const (
	StmtExpr StmtKind = iota
	StmtLet
)

// Stmt is a block statement. Statements whose Cfg evaluates to false are
// removed before the body is checked.
type Stmt struct {
	Kind  StmtKind
	Span  source.Span
	Cfg   *cfg.Predicate
	Local LocalID      // let
	Name  string       // let
	Type  types.TypeID // let annotation, NoTypeID when omitted
	Value *Expr        // let initializer (may be nil) or the expression
}
