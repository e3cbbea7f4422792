package types

import "fmt"

// TypeID uniquely identifies a type descriptor inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type (e.g. an empty union variant).
const NoTypeID TypeID = 0

// Kind enumerates the closed set of type descriptors the layout engine understands.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindScalar
	KindPointer
	KindComposite
	KindTuple
	KindArray
	KindUnion
	KindTail
	KindSequence
	KindPolymorphic
	KindUninhabited
	KindZeroSized
	KindAlias
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindScalar:
		return "scalar"
	case KindPointer:
		return "pointer"
	case KindComposite:
		return "composite"
	case KindTuple:
		return "tuple"
	case KindArray:
		return "array"
	case KindUnion:
		return "union"
	case KindTail:
		return "tail"
	case KindSequence:
		return "sequence"
	case KindPolymorphic:
		return "polymorphic"
	case KindUninhabited:
		return "uninhabited"
	case KindZeroSized:
		return "zero-sized"
	case KindAlias:
		return "alias"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// IsUnsized reports whether values of the kind can only live behind a fat pointer.
func (k Kind) IsUnsized() bool {
	return k == KindSequence || k == KindPolymorphic
}

// PointerKind selects the metadata a pointer carries next to the address.
type PointerKind uint8

const (
	PtrThin        PointerKind = iota // address only
	PtrSequence                       // address + element count
	PtrPolymorphic                    // address + dispatch table
)

func (k PointerKind) String() string {
	switch k {
	case PtrThin:
		return "thin"
	case PtrSequence:
		return "sequence"
	case PtrPolymorphic:
		return "polymorphic"
	default:
		return fmt.Sprintf("PointerKind(%d)", k)
	}
}

// ParsePointerKind converts a manifest spelling into a PointerKind.
func ParsePointerKind(s string) (PointerKind, error) {
	switch s {
	case "", "thin":
		return PtrThin, nil
	case "sequence", "slice":
		return PtrSequence, nil
	case "polymorphic", "dyn":
		return PtrPolymorphic, nil
	default:
		return PtrThin, fmt.Errorf("invalid pointer kind %q (expected thin|sequence|polymorphic)", s)
	}
}

// WidthPointer is the scalar width placeholder for pointer-sized integers.
const WidthPointer uint8 = 0

// ValidRange is an inclusive, wrapping range of the bit patterns a scalar may hold.
// Start > End describes a range that wraps around the maximum value.
type ValidRange struct {
	Start uint64
	End   uint64
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind     Kind
	Elem     TypeID      // pointer target, array/sequence element
	Count    uint64      // fixed array length
	Width    uint8       // scalar width in bytes (WidthPointer for usize)
	Ptr      PointerKind // pointer metadata kind
	Nullable bool        // pointer admits the all-zero address
	Ranged   bool        // scalar carries a validity range
	Range    ValidRange  // scalar validity range when Ranged
	Align    uint64      // declared alignment of a zero-sized type (0 means 1)
	Payload  uint32      // slot into the nominal info tables
}

// Descriptor helpers ---------------------------------------------------------

// MakeScalar describes a fixed-width primitive with no forbidden bit patterns.
func MakeScalar(width uint8) Type {
	return Type{Kind: KindScalar, Width: width}
}

// MakeRangedScalar describes a scalar that may only hold values in r.
func MakeRangedScalar(width uint8, r ValidRange) Type {
	return Type{Kind: KindScalar, Width: width, Ranged: true, Range: r}
}

// MakeBool describes a one-byte boolean (0 or 1).
func MakeBool() Type {
	return MakeRangedScalar(1, ValidRange{Start: 0, End: 1})
}

// MakeChar describes a four-byte Unicode scalar value.
func MakeChar() Type {
	return MakeRangedScalar(4, ValidRange{Start: 0, End: 0x10FFFF})
}

// MakeNonZero describes an integer that can never be zero.
func MakeNonZero(width uint8) Type {
	return MakeRangedScalar(width, ValidRange{Start: 1, End: WidthMask(width)})
}

// MakePointer describes a non-null pointer to target.
func MakePointer(target TypeID, kind PointerKind) Type {
	return Type{Kind: KindPointer, Elem: target, Ptr: kind}
}

// MakeRawPointer describes a pointer that may be null.
func MakeRawPointer(target TypeID, kind PointerKind) Type {
	return Type{Kind: KindPointer, Elem: target, Ptr: kind, Nullable: true}
}

// MakeArray describes a fixed-length homogeneous array.
func MakeArray(elem TypeID, count uint64) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeSequence describes an unsized bounded sequence of elem.
func MakeSequence(elem TypeID) Type {
	return Type{Kind: KindSequence, Elem: elem}
}

// MakeZeroSized describes a zero-sized type with the given alignment (0 means 1).
func MakeZeroSized(align uint64) Type {
	if align <= 1 {
		align = 0
	}
	return Type{Kind: KindZeroSized, Align: align}
}

// MakeUninhabited describes a type with no values.
func MakeUninhabited() Type {
	return Type{Kind: KindUninhabited}
}

// WidthMask returns the largest value representable in width bytes.
// Widths of eight bytes and above saturate to the full uint64 range.
func WidthMask(width uint8) uint64 {
	if width == 0 || width >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (8 * uint64(width))) - 1
}
