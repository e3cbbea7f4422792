package layout

import "memlayout/internal/types"

// Resolver derives the size and alignment of primitives from a Profile.
type Resolver struct {
	Profile Profile
}

// ScalarWidth maps a descriptor width to bytes; WidthPointer means pointer-sized.
func (r Resolver) ScalarWidth(width uint8) uint64 {
	if width == types.WidthPointer {
		return r.Profile.PointerWidth
	}
	return uint64(width)
}

// Scalar returns the alignment of a width-byte scalar.
func (r Resolver) Scalar(width uint64) (uint64, *LayoutError) {
	align, ok := r.Profile.ScalarAlign(width)
	if !ok {
		return 0, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: width}
	}
	return align, nil
}

// Pointer returns the alignment of any pointer, thin or fat.
func (r Resolver) Pointer() uint64 {
	return r.Profile.PointerWidth
}

func roundUp(n, align uint64) uint64 {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

// addSize reports false when a+b overflows.
func addSize(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}

// roundUpChecked rounds n up to align, reporting false on overflow.
func roundUpChecked(n, align uint64) (uint64, bool) {
	if align <= 1 {
		return n, true
	}
	r := n % align
	if r == 0 {
		return n, true
	}
	return addSize(n, align-r)
}
