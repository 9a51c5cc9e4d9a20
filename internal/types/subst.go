package types

import (
	"slices"
	"strconv"
	"strings"

	"monogen/internal/diag"
)

// Subst maps the placeholders of one generic item, in declaration order, to
// types. Two substitutions are equal iff their argument ids are pairwise equal.
type Subst struct {
	Params []TypeID // placeholder types
	Args   []TypeID
}

// NewSubst pairs placeholders with their arguments.
func NewSubst(params, args []TypeID) Subst {
	if len(params) != len(args) {
		Internalf(diag.InternalMissingSubst, "substitution", "%d placeholders paired with %d arguments", len(params), len(args))
	}
	return Subst{Params: slices.Clone(params), Args: slices.Clone(args)}
}

// Len reports the number of mapped placeholders.
func (s Subst) Len() int {
	return len(s.Params)
}

// Lookup returns the argument mapped to placeholder ph.
func (s Subst) Lookup(ph TypeID) (TypeID, bool) {
	for i, p := range s.Params {
		if p == ph {
			return s.Args[i], true
		}
	}
	return NoTypeID, false
}

// Equal compares substitutions by value.
func (s Subst) Equal(other Subst) bool {
	return slices.Equal(s.Params, other.Params) && slices.Equal(s.Args, other.Args)
}

// Key is the canonical cache key of the argument vector.
func (s Subst) Key() string {
	var b strings.Builder
	for i, a := range s.Args {
		if i > 0 {
			b.WriteByte('#')
		}
		b.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	return b.String()
}

// Extend returns s with more placeholder/argument pairs appended.
func (s Subst) Extend(params, args []TypeID) Subst {
	out := NewSubst(s.Params, s.Args)
	tail := NewSubst(params, args)
	out.Params = append(out.Params, tail.Params...)
	out.Args = append(out.Args, tail.Args...)
	return out
}

// Substituter applies one Subst. Results are memoized for the lifetime of the
// substituter, which is one substitution pass.
type Substituter struct {
	in    *Interner
	subst Subst
	memo  map[TypeID]TypeID
}

// Substituter starts a substitution pass.
func (in *Interner) Substituter(s Subst) *Substituter {
	return &Substituter{in: in, subst: s, memo: make(map[TypeID]TypeID, 16)}
}

// Subst returns the substitution being applied.
func (s *Substituter) Subst() Subst {
	return s.subst
}

// Apply replaces every placeholder inside id. Placeholders are unique per
// declaring item, so plain structural replacement is capture-free. A
// placeholder without a mapping is an internal-consistency failure.
func (s *Substituter) Apply(id TypeID) TypeID {
	if id == NoTypeID {
		return NoTypeID
	}
	if out, ok := s.memo[id]; ok {
		return out
	}
	out := s.apply(id)
	s.memo[id] = out
	return out
}

func (s *Substituter) apply(id TypeID) TypeID {
	in := s.in
	tt := in.MustLookup(id)
	switch tt.Kind {
	case KindPlaceholder:
		arg, ok := s.subst.Lookup(id)
		if !ok {
			Internalf(diag.InternalMissingSubst, "substitute", "no argument for placeholder %s of %s", in.PlaceholderName(id), in.ItemName(tt.Item))
		}
		return arg
	case KindPointer, KindArray, KindSlice:
		elem := s.Apply(tt.Elem)
		if elem == tt.Elem {
			return id
		}
		tt.Elem = elem
		return in.Intern(tt)
	case KindFn:
		params := s.ApplyAll(in.List(tt.List))
		tt.Elem = s.Apply(tt.Elem)
		tt.List = in.InternList(params)
		return in.Intern(tt)
	case KindTuple, KindNamed, KindFnItem:
		tt.List = in.InternList(s.ApplyAll(in.List(tt.List)))
		return in.Intern(tt)
	default:
		return id
	}
}

// ApplyAll substitutes every element of ids into a fresh slice.
func (s *Substituter) ApplyAll(ids []TypeID) []TypeID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]TypeID, len(ids))
	for i, id := range ids {
		out[i] = s.Apply(id)
	}
	return out
}

// Canonicalize resolves placeholders of an enclosing context that still occur
// inside the arguments of inner.
func (s *Substituter) Canonicalize(inner Subst) Subst {
	return Subst{Params: slices.Clone(inner.Params), Args: s.ApplyAll(inner.Args)}
}
