package types

import (
	"fmt"
	"strings"
)

// Label returns a user-friendly label for a TypeID.
func Label(typesIn *Interner, id TypeID) string {
	return labelDepth(typesIn, id, 0)
}

func labelDepth(typesIn *Interner, id TypeID, depth int) string {
	if id == NoTypeID {
		return "?"
	}
	if depth > 6 {
		return "..."
	}
	if typesIn == nil {
		return "?"
	}
	tt, ok := typesIn.Lookup(id)
	if !ok {
		return "?"
	}
	if name, ok := typesIn.NameOf(id); ok && tt.Kind != KindPolymorphic {
		return name
	}
	switch tt.Kind {
	case KindScalar:
		return formatScalar(tt)
	case KindZeroSized:
		if tt.Align > 1 {
			return fmt.Sprintf("()@align(%d)", tt.Align)
		}
		return "()"
	case KindUninhabited:
		return "!"
	case KindPointer:
		prefix := "&"
		if tt.Nullable {
			prefix = "*"
		}
		target := labelDepth(typesIn, tt.Elem, depth+1)
		if elem, ok := typesIn.Lookup(tt.Elem); ok && (elem.Kind.IsUnsized() || elem.Kind == KindTail) {
			return prefix + target
		}
		switch tt.Ptr {
		case PtrSequence:
			return prefix + "[" + target + "]"
		case PtrPolymorphic:
			return prefix + "dyn " + target
		default:
			return prefix + target
		}
	case KindArray:
		return fmt.Sprintf("[%s; %d]", labelDepth(typesIn, tt.Elem, depth+1), tt.Count)
	case KindSequence:
		return "[" + labelDepth(typesIn, tt.Elem, depth+1) + "]"
	case KindPolymorphic:
		name, _ := typesIn.NameOf(id)
		return "dyn " + name
	case KindTuple:
		info, ok := typesIn.CompositeInfo(id)
		if !ok {
			return "(?)"
		}
		parts := make([]string, len(info.Members))
		for i, m := range info.Members {
			parts[i] = labelDepth(typesIn, m.Type, depth+1)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case KindComposite, KindTail, KindUnion, KindAlias:
		return fmt.Sprintf("%s#%d", tt.Kind, id)
	default:
		return "?"
	}
}

func formatScalar(tt Type) string {
	if tt.Ranged {
		switch tt.Range {
		case ValidRange{Start: 0, End: 1}:
			if tt.Width == 1 {
				return "bool"
			}
		case ValidRange{Start: 0, End: 0x10FFFF}:
			if tt.Width == 4 {
				return "char"
			}
		case ValidRange{Start: 1, End: WidthMask(tt.Width)}:
			return fmt.Sprintf("nonzero_u%d", 8*int(tt.Width))
		}
		return fmt.Sprintf("u%d[%d..=%d]", 8*int(tt.Width), tt.Range.Start, tt.Range.End)
	}
	if tt.Width == WidthPointer {
		return "usize"
	}
	return fmt.Sprintf("u%d", 8*int(tt.Width))
}
