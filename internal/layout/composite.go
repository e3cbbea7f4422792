package layout

import (
	"fmt"
	"sort"

	"memlayout/internal/trace"
	"memlayout/internal/types"
)

type memberShape struct {
	name string
	typ  types.TypeID
	sh   *shape
}

func (e *Engine) compositeShape(id types.TypeID, policy Policy, parent uint64) (*shape, *LayoutError) {
	info, ok := e.Types.CompositeInfo(id)
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Detail: "composite has no member table"}
	}
	decls := info.Members
	if info.Tail != types.NoTypeID {
		decls = append(decls[:len(decls):len(decls)], types.Member{Name: "tail", Type: info.Tail})
	}
	members := make([]memberShape, len(decls))
	for i, m := range decls {
		sh, err := e.resolve(m.Type, policy, parent)
		if err != nil {
			return nil, err
		}
		members[i] = memberShape{name: m.Name, typ: m.Type, sh: sh}
	}
	return e.placeMembers(members, info.Attrs, policy, parent)
}

// placeMembers assigns offsets. Under PolicyFixed members keep declaration
// order; under PolicyOptimized they are stably sorted by alignment, largest
// first, which leaves no interior padding. A dynamically sized last member
// stays last under both policies and makes the whole composite unsized.
func (e *Engine) placeMembers(members []memberShape, attrs types.LayoutAttrs, policy Policy, parent uint64) (*shape, *LayoutError) {
	if attrs.Packed && attrs.AlignOverride != 0 {
		return nil, &LayoutError{Kind: LayoutErrInvalidAttrs, Detail: "packed conflicts with an alignment override"}
	}
	if attrs.AlignOverride != 0 && !isPowerOfTwo(attrs.AlignOverride) {
		return nil, &LayoutError{Kind: LayoutErrInvalidAttrs, Detail: fmt.Sprintf("alignment override %d is not a power of two", attrs.AlignOverride)}
	}

	out := &shape{}
	for i, m := range members {
		if !m.sh.unsized {
			continue
		}
		if i != len(members)-1 {
			return nil, &LayoutError{
				Kind:   LayoutErrInvalidDstPlacement,
				Member: m.name,
				Detail: "dynamically sized member must be the last member",
			}
		}
		out.unsized = true
		out.meta = m.sh.meta
	}

	order := make([]int, len(members))
	for i := range order {
		order[i] = i
	}
	if policy == PolicyOptimized && !attrs.Packed {
		movable := order
		if out.unsized {
			movable = order[:len(order)-1]
		}
		sort.SliceStable(movable, func(a, b int) bool {
			return members[movable[a]].sh.res.Align > members[movable[b]].sh.res.Align
		})
	}

	res := Result{
		Members:       make([]MemberLayout, len(members)),
		Order:         order,
		Packed:        attrs.Packed,
		AlignOverride: attrs.AlignOverride,
	}
	var (
		offset uint64
		align  uint64 = 1
		ok     bool
	)
	for _, idx := range order {
		m := members[idx]
		mAlign := m.sh.res.Align
		if attrs.Packed {
			mAlign = 1
		}
		start := roundUp(offset, mAlign)
		res.Padding += start - offset
		if offset, ok = addSize(start, m.sh.res.Size); !ok {
			return nil, &LayoutError{Kind: LayoutErrSizeOverflow, Member: m.name}
		}
		align = max(align, mAlign)
		res.Members[idx] = MemberLayout{
			Name:   m.name,
			Index:  idx,
			Type:   m.typ,
			Offset: start,
			Size:   m.sh.res.Size,
			Align:  mAlign,
		}
		if m.sh.res.Uninhabited {
			res.Uninhabited = true
		}
		if m.sh.res.Niche != nil {
			shifted := m.sh.res.Niche.shifted(start)
			res.Niche = betterNiche(res.Niche, &shifted)
		}
		if e.tracer.Enabled() {
			trace.Point(e.tracer, trace.ScopeMember, "place", fmt.Sprintf("%s@%d size=%d align=%d", m.name, start, m.sh.res.Size, mAlign), parent)
		}
	}
	if attrs.AlignOverride > align {
		align = attrs.AlignOverride
	}
	size, ok := roundUpChecked(offset, align)
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrSizeOverflow}
	}
	res.Padding += size - offset
	res.Size = size
	res.Align = align
	out.res = res
	return out, nil
}
