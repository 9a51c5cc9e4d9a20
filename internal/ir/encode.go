package ir

import (
	"fmt"
	"io"
	"slices"

	"github.com/vmihailenco/msgpack/v5"

	"monogen/internal/types"
)

// encodingSchema is bumped whenever the serialized layout changes.
const encodingSchema uint16 = 2

// Encoded is the serialized form of a program. TypeIDs inside Program refer
// to Types, which maps every id the program mentions to its label; the
// interner that produced them is not needed to read the dump.
type Encoded struct {
	Schema  uint16
	Types   map[types.TypeID]string
	Program *Program
}

// Encode writes p as msgpack.
func Encode(w io.Writer, p *Program, typesIn *types.Interner) error {
	out := Encoded{Schema: encodingSchema, Types: make(map[types.TypeID]string), Program: p}
	labels := printer{types: typesIn}
	for _, id := range programTypes(p) {
		out.Types[id] = labels.ty(id)
	}
	if err := msgpack.NewEncoder(w).Encode(&out); err != nil {
		return fmt.Errorf("encode ir: %w", err)
	}
	return nil
}

// Decode reads a program written by Encode.
func Decode(r io.Reader) (*Encoded, error) {
	var in Encoded
	if err := msgpack.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("decode ir: %w", err)
	}
	if in.Schema != encodingSchema {
		return nil, fmt.Errorf("decode ir: schema %d, want %d", in.Schema, encodingSchema)
	}
	return &in, nil
}

// programTypes lists every type id mentioned by locals, results, casts and
// globals.
func programTypes(p *Program) []types.TypeID {
	if p == nil {
		return nil
	}
	seen := make(map[types.TypeID]struct{})
	add := func(id types.TypeID) {
		if id != types.NoTypeID {
			seen[id] = struct{}{}
		}
	}
	addFunc := func(f *Func) {
		add(f.Result)
		for _, l := range f.Locals {
			add(l.Type)
		}
		for i := range f.Blocks {
			for j := range f.Blocks[i].Instrs {
				ins := &f.Blocks[i].Instrs[j]
				if ins.Kind == InstrAssign && ins.Assign.Src.Kind == RValueCast {
					add(ins.Assign.Src.Cast.To)
				}
			}
		}
	}
	for _, f := range p.Funcs {
		addFunc(f)
	}
	for _, g := range p.Globals {
		add(g.Type)
		if g.Init != nil {
			addFunc(g.Init)
		}
	}
	out := make([]types.TypeID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
