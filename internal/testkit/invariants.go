package testkit

import (
	"fmt"
	"math/bits"
	"sort"

	"memlayout/internal/layout"
	"memlayout/internal/types"
)

// CheckLayoutInvariants runs the structural invariants every layout result must satisfy:
// 1) alignment is a power of two and size is a multiple of it
// 2) zero-sized types occupy no bytes
// 3) members fit inside the value, do not overlap and sit on their alignment
// 4) an unattributed composite is aligned to its most aligned member (1 when empty)
// 5) the discriminant and niches lie inside the value
func CheckLayoutInvariants(res layout.Result) error {
	// 1) size and alignment
	if res.Align == 0 || bits.OnesCount64(res.Align) != 1 {
		return fmt.Errorf("alignment %d is not a power of two", res.Align)
	}
	if res.Size%res.Align != 0 {
		return fmt.Errorf("size %d is not a multiple of alignment %d", res.Size, res.Align)
	}

	// 2) zero-sized
	if res.Kind == types.KindZeroSized && res.Size != 0 {
		return fmt.Errorf("zero-sized type has size %d", res.Size)
	}

	// 3) members
	if err := checkMembers(res); err != nil {
		return err
	}

	// 4) composite alignment
	switch res.Kind {
	case types.KindComposite, types.KindTuple, types.KindTail:
		want := uint64(1)
		for _, m := range res.Members {
			want = max(want, m.Align)
		}
		if res.Packed {
			want = 1
		}
		want = max(want, res.AlignOverride)
		if res.Align != want {
			return fmt.Errorf("alignment %d, want max member alignment %d", res.Align, want)
		}
	}

	// 5) tag placement
	if d := res.Discriminant; d != nil {
		if res.Encoding != layout.EncodingExplicit {
			return fmt.Errorf("discriminant present with %s encoding", res.Encoding)
		}
		if d.Offset+d.Width > res.Size {
			return fmt.Errorf("discriminant [%d,%d) outside size %d", d.Offset, d.Offset+d.Width, res.Size)
		}
		for _, v := range res.Variants {
			if v.Payload != types.NoTypeID && (v.PayloadOffset < d.Offset+d.Width || v.PayloadOffset > res.Size) {
				return fmt.Errorf("payload of %q at %d overlaps the discriminant or lies outside size %d", v.Name, v.PayloadOffset, res.Size)
			}
		}
	}
	if res.Encoding == layout.EncodingNiche && res.Discriminant != nil {
		return fmt.Errorf("niche-encoded union stores a discriminant")
	}
	for _, n := range []*layout.Niche{res.Niche, res.TagNiche} {
		if n != nil && n.Offset+n.Width > res.Size {
			return fmt.Errorf("niche %s outside size %d", n, res.Size)
		}
	}
	return nil
}

func checkMembers(res layout.Result) error {
	if len(res.Members) == 0 {
		return nil
	}
	if len(res.Order) != len(res.Members) {
		return fmt.Errorf("order lists %d members, result has %d", len(res.Order), len(res.Members))
	}
	byOffset := make([]layout.MemberLayout, len(res.Members))
	copy(byOffset, res.Members)
	sort.SliceStable(byOffset, func(i, j int) bool { return byOffset[i].Offset < byOffset[j].Offset })

	var end uint64
	for i, m := range res.Members {
		if m.Index != i {
			return fmt.Errorf("member %q reported at position %d with index %d", m.Name, i, m.Index)
		}
	}
	for _, m := range byOffset {
		if m.Offset+m.Size > res.Size {
			return fmt.Errorf("member %q [%d,%d) outside size %d", m.Name, m.Offset, m.Offset+m.Size, res.Size)
		}
		if m.Size > 0 && m.Offset < end {
			return fmt.Errorf("member %q at %d overlaps previous member ending at %d", m.Name, m.Offset, end)
		}
		if m.Align == 0 || m.Offset%m.Align != 0 {
			return fmt.Errorf("member %q at %d is not aligned to %d", m.Name, m.Offset, m.Align)
		}
		end = max(end, m.Offset+m.Size)
	}
	return nil
}
