package ast

import (
	"monogen/internal/source"
	"monogen/internal/types"
)

// Program is the resolved input of one compilation.
type Program struct {
	Name    string
	Items   []*Item // indexed by ItemID, slot 0 unused
	Entries []ItemID
	Types   *types.Interner
	Files   *source.FileSet
	Locals  []string // local names indexed by LocalID
}

// Item returns the item with the given id, or nil.
func (p *Program) Item(id ItemID) *Item {
	if id == NoItemID || int(id) >= len(p.Items) {
		return nil
	}
	return p.Items[id]
}

// Generics returns every generic parameter in scope of item: the owner's
// parameters followed by the item's own.
func (p *Program) Generics(id ItemID) []GenericParam {
	it := p.Item(id)
	if it == nil {
		return nil
	}
	if it.Owner == NoItemID {
		return it.Generics
	}
	owner := p.Generics(it.Owner)
	if len(owner) == 0 {
		return it.Generics
	}
	out := make([]GenericParam, 0, len(owner)+len(it.Generics))
	out = append(out, owner...)
	return append(out, it.Generics...)
}

// Placeholders lists the placeholder types of Generics(id).
func (p *Program) Placeholders(id ItemID) []types.TypeID {
	gs := p.Generics(id)
	out := make([]types.TypeID, len(gs))
	for i, g := range gs {
		out[i] = g.Type
	}
	return out
}

// Method finds an associated function of owner by name.
func (p *Program) Method(owner ItemID, name string) *Item {
	it := p.Item(owner)
	if it == nil {
		return nil
	}
	for _, m := range it.Methods {
		if mi := p.Item(m); mi != nil && mi.Name == name {
			return mi
		}
	}
	return nil
}

// Path renders `Owner::name` for associated functions and `name` otherwise.
func (p *Program) Path(id ItemID) string {
	it := p.Item(id)
	if it == nil {
		return "?"
	}
	if it.Owner != NoItemID {
		return p.Path(it.Owner) + "::" + it.Name
	}
	return it.Name
}

// LocalName returns the declared name of a local.
func (p *Program) LocalName(id LocalID) string {
	if int(id) < len(p.Locals) {
		return p.Locals[id]
	}
	return "_"
}
