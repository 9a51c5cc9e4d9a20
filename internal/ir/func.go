package ir

import (
	"slices"
	"strings"

	"monogen/internal/source"
	"monogen/internal/types"
)

// Func is the control-flow graph of one function instance.
type Func struct {
	ID     FuncID
	Name   string
	Symbol string
	Span   source.Span

	Params []LocalID // sized parameters in declaration order
	Result types.TypeID

	Locals []Local
	Blocks []Block
	Entry  BlockID
}

type Block struct {
	ID     BlockID
	Instrs []Instr
	Term   Terminator
}

func (b *Block) Terminated() bool {
	if b == nil {
		return true
	}
	return b.Term.Kind != TermNone
}

// Global is a lowered static or const. Init computes the initial value and
// returns it; it is nil for extern statics.
type Global struct {
	Name    string
	Symbol  string
	Span    source.Span
	Type    types.TypeID
	Const   bool
	Mutable bool
	Init    *Func
}

// Program holds the lowered functions and globals of one compilation, both
// ordered by symbol. Externs lists the sorted symbols of called functions
// that have no body.
type Program struct {
	Funcs    []*Func
	BySymbol map[string]FuncID
	Externs  []string
	Globals  []*Global
}

// Global looks a static or const up by symbol.
func (p *Program) Global(symbol string) *Global {
	if p == nil {
		return nil
	}
	i, ok := slices.BinarySearchFunc(p.Globals, symbol, func(g *Global, sym string) int {
		return strings.Compare(g.Symbol, sym)
	})
	if !ok {
		return nil
	}
	return p.Globals[i]
}

// Defines reports whether symbol is a lowered function or a declared extern.
func (p *Program) Defines(symbol string) bool {
	if p == nil {
		return false
	}
	if _, ok := p.BySymbol[symbol]; ok {
		return true
	}
	_, ok := slices.BinarySearch(p.Externs, symbol)
	return ok
}

// Func looks a function up by symbol.
func (p *Program) Func(symbol string) *Func {
	if p == nil {
		return nil
	}
	id, ok := p.BySymbol[symbol]
	if !ok {
		return nil
	}
	return p.Funcs[id]
}
