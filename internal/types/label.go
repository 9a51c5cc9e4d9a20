package types

import (
	"fmt"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func (in *Interner) Label(id TypeID) string {
	return in.labelDepth(id, 0)
}

func (in *Interner) labelDepth(id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 16 {
		return "..."
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return "?"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindNever:
		return "!"
	case KindBool:
		return "bool"
	case KindInt:
		return formatIntType(tt.Width, true)
	case KindUint:
		return formatIntType(tt.Width, false)
	case KindFloat:
		return fmt.Sprintf("f%d", tt.Width)
	case KindPointer:
		if tt.Mutable {
			return "&mut " + in.labelDepth(tt.Elem, depth+1)
		}
		return "&" + in.labelDepth(tt.Elem, depth+1)
	case KindArray:
		return fmt.Sprintf("[%s; %d]", in.labelDepth(tt.Elem, depth+1), tt.Count)
	case KindSlice:
		return "[" + in.labelDepth(tt.Elem, depth+1) + "]"
	case KindTuple:
		return "(" + in.joinLabels(in.List(tt.List), depth) + ")"
	case KindNamed:
		return in.ItemName(tt.Item) + in.argsLabel(in.List(tt.List), depth)
	case KindFnItem:
		return "fn#" + in.ItemName(tt.Item) + in.argsLabel(in.List(tt.List), depth)
	case KindFn:
		return "fn(" + in.joinLabels(in.List(tt.List), depth) + ") -> " + in.labelDepth(tt.Elem, depth+1)
	case KindPlaceholder:
		return in.PlaceholderName(id)
	default:
		return "?"
	}
}

func (in *Interner) argsLabel(args []TypeID, depth int) string {
	if len(args) == 0 {
		return ""
	}
	return "<" + in.joinLabels(args, depth) + ">"
}

func (in *Interner) joinLabels(ids []TypeID, depth int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = in.labelDepth(id, depth+1)
	}
	return strings.Join(parts, ", ")
}

func formatIntType(width Width, signed bool) string {
	prefix := "u"
	if signed {
		prefix = "i"
	}
	if width == WidthSize {
		return prefix + "size"
	}
	return fmt.Sprintf("%s%d", prefix, width)
}
