package ir

import (
	"monogen/internal/source"
	"monogen/internal/types"
)

type FuncID int32
type BlockID int32
type LocalID int32

const (
	NoFuncID  FuncID  = -1
	NoBlockID BlockID = -1
	NoLocalID LocalID = -1
)

type LocalFlags uint8

const (
	LocalFlagParam LocalFlags = 1 << iota
	LocalFlagTemp
	LocalFlagRef
	LocalFlagRefMut
)

// Local is a storage slot of a function. Zero-sized values never get one.
type Local struct {
	Type  types.TypeID
	Flags LocalFlags
	Name  string
	Span  source.Span
}

type PlaceProjKind uint8

const (
	PlaceProjDeref PlaceProjKind = iota
	PlaceProjField
	PlaceProjIndex
)

// PlaceProj is one projection step. Field covers struct fields and tuple
// elements; Index reads its subscript from IndexLocal.
type PlaceProj struct {
	Kind PlaceProjKind

	FieldIdx   int
	IndexLocal LocalID
}

// Place is a local or a global followed by projections. Global places name
// the symbol of a static or const and leave Local at NoLocalID.
type Place struct {
	Local  LocalID
	Global string
	Proj   []PlaceProj
}

// GlobalPlace is the storage of the global with the given symbol.
func GlobalPlace(symbol string) Place {
	return Place{Local: NoLocalID, Global: symbol}
}

func (p Place) IsValid() bool {
	return p.Local != NoLocalID || p.Global != ""
}

// Project returns p extended by one step without aliasing p's slice.
func (p Place) Project(proj PlaceProj) Place {
	out := make([]PlaceProj, len(p.Proj), len(p.Proj)+1)
	copy(out, p.Proj)
	return Place{Local: p.Local, Global: p.Global, Proj: append(out, proj)}
}
