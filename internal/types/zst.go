package types

// FieldSource yields the concrete field types of a struct type. ok is false
// for types that are not structs.
type FieldSource interface {
	StructFields(ty TypeID) (fields []TypeID, ok bool)
}

// IsZeroSized reports whether values of id carry no runtime storage: never,
// void, tuples/arrays of zero-sized types, zero-length arrays, structs whose
// fields are all zero-sized, and function item types. Pointers, slices and
// function signatures are always sized.
func (in *Interner) IsZeroSized(id TypeID, fields FieldSource) bool {
	return in.isZeroSized(id, fields, nil)
}

func (in *Interner) isZeroSized(id TypeID, fields FieldSource, visiting map[TypeID]struct{}) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindVoid, KindNever, KindFnItem:
		return true
	case KindArray:
		return tt.Count == 0 || in.isZeroSized(tt.Elem, fields, visiting)
	case KindTuple:
		for _, e := range in.List(tt.List) {
			if !in.isZeroSized(e, fields, visiting) {
				return false
			}
		}
		return true
	case KindNamed:
		if fields == nil {
			return false
		}
		fs, isStruct := fields.StructFields(id)
		if !isStruct {
			return false
		}
		if _, seen := visiting[id]; seen {
			// a value cycle is reported as infinite size elsewhere
			return false
		}
		if visiting == nil {
			visiting = make(map[TypeID]struct{})
		}
		visiting[id] = struct{}{}
		defer delete(visiting, id)
		for _, f := range fs {
			if !in.isZeroSized(f, fields, visiting) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
