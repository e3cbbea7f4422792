package layout

import (
	"fmt"

	"memlayout/internal/types"
)

// Niche is a scalar field inside a type whose valid values do not cover
// every bit pattern of its width. The free patterns can encode the empty
// variants of an enclosing tagged union.
type Niche struct {
	Offset uint64           // byte offset of the field inside the type
	Width  uint64           // field width in bytes, at most 8
	Valid  types.ValidRange // inclusive and wrapping
}

func (n Niche) mask() uint64 {
	return types.WidthMask(uint8(n.Width)) //nolint:gosec // Width <= 8 by construction
}

// Available returns the number of bit patterns outside the valid range.
func (n Niche) Available() uint64 {
	mask := n.mask()
	return mask - ((n.Valid.End - n.Valid.Start) & mask)
}

// Contains reports whether v is a valid value of the field.
func (n Niche) Contains(v uint64) bool {
	mask := n.mask()
	v &= mask
	return (v-n.Valid.Start)&mask <= (n.Valid.End-n.Valid.Start)&mask
}

// Reserve takes k free values just past the end of the valid range. It returns
// the reserved values in order and the niche left over, which is nil when no
// free value remains.
func (n Niche) Reserve(k uint64) ([]uint64, *Niche, error) {
	if k > n.Available() {
		return nil, nil, fmt.Errorf("niche at offset %d has %d free values, %d requested", n.Offset, n.Available(), k)
	}
	mask := n.mask()
	values := make([]uint64, 0, k)
	for i := uint64(0); i < k; i++ {
		values = append(values, (n.Valid.End+1+i)&mask)
	}
	rest := Niche{
		Offset: n.Offset,
		Width:  n.Width,
		Valid:  types.ValidRange{Start: n.Valid.Start, End: (n.Valid.End + k) & mask},
	}
	if rest.Available() == 0 {
		return values, nil, nil
	}
	return values, &rest, nil
}

func (n Niche) shifted(by uint64) Niche {
	n.Offset += by
	return n
}

func (n Niche) String() string {
	return fmt.Sprintf("@%d:u%d[%d..=%d] (%d free)", n.Offset, 8*n.Width, n.Valid.Start, n.Valid.End, n.Available())
}

// scalarNiche is the niche of a ranged scalar, if any.
func scalarNiche(tt types.Type, width uint64) *Niche {
	if !tt.Ranged || width == 0 || width > 8 {
		return nil
	}
	n := Niche{Width: width, Valid: tt.Range}
	if n.Available() == 0 {
		return nil
	}
	return &n
}

// addressNiche is the niche of a non-null pointer: the all-zero address.
func addressNiche(ptrWidth uint64) *Niche {
	if ptrWidth == 0 || ptrWidth > 8 {
		return nil
	}
	return &Niche{Width: ptrWidth, Valid: types.ValidRange{Start: 1, End: types.WidthMask(uint8(ptrWidth))}} //nolint:gosec // checked above
}

// betterNiche keeps the niche with more free values, preferring the lower offset on ties.
func betterNiche(best, cand *Niche) *Niche {
	if cand == nil {
		return best
	}
	if best == nil {
		return cand
	}
	ba, ca := best.Available(), cand.Available()
	if ca > ba || (ca == ba && cand.Offset < best.Offset) {
		return cand
	}
	return best
}
