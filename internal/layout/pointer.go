package layout

import (
	"fmt"

	"memlayout/internal/types"
)

// PointerWord is one machine word of a pointer representation.
type PointerWord struct {
	Name   string // "data", "len" or "vtable"
	Offset uint64
	Size   uint64
}

// PointerLayout is the representation of a thin or fat pointer.
type PointerLayout struct {
	Kind  types.PointerKind
	Size  uint64
	Align uint64
	Words []PointerWord
}

// Metadata returns the words carried next to the address.
func (p PointerLayout) Metadata() []PointerWord {
	if len(p.Words) <= 1 {
		return nil
	}
	return p.Words[1:]
}

// IsFat reports whether the pointer carries metadata.
func (p PointerLayout) IsFat() bool {
	return p.Kind != types.PtrThin
}

// FatPointer describes a pointer of the given kind on profile. Thin pointers
// are one word; sequence pointers add an element count and polymorphic
// pointers add a dispatch table address.
func FatPointer(profile Profile, kind types.PointerKind) PointerLayout {
	w := profile.PointerWidth
	out := PointerLayout{
		Kind:  kind,
		Size:  w,
		Align: w,
		Words: []PointerWord{{Name: "data", Offset: 0, Size: w}},
	}
	switch kind {
	case types.PtrSequence:
		out.Size = 2 * w
		out.Words = append(out.Words, PointerWord{Name: "len", Offset: w, Size: w})
	case types.PtrPolymorphic:
		out.Size = 2 * w
		out.Words = append(out.Words, PointerWord{Name: "vtable", Offset: w, Size: w})
	}
	return out
}

func (e *Engine) pointerShape(id types.TypeID, tt types.Type) (*shape, *LayoutError) {
	if meta, unsized := e.pointeeMeta(tt.Elem); unsized && meta != tt.Ptr {
		return nil, &LayoutError{
			Kind:   LayoutErrInvalidDstPlacement,
			Type:   id,
			Detail: fmt.Sprintf("%s pointer to %s, which needs %s metadata", tt.Ptr, e.label(tt.Elem), meta),
		}
	}
	p := FatPointer(e.Profile, tt.Ptr)
	res := Result{Size: p.Size, Align: p.Align}
	if p.IsFat() {
		res.Members = make([]MemberLayout, len(p.Words))
		res.Order = make([]int, len(p.Words))
		usize := e.Types.Builtins().Usize
		for i, w := range p.Words {
			res.Members[i] = MemberLayout{Name: w.Name, Index: i, Type: usize, Offset: w.Offset, Size: w.Size, Align: p.Align}
			res.Order[i] = i
		}
	}
	if !tt.Nullable {
		res.Niche = addressNiche(e.Profile.PointerWidth)
	}
	return &shape{res: res}, nil
}

// pointeeMeta reports whether target is dynamically sized and, if so, which
// metadata a pointer to it must carry. It follows aliases and the last member
// of composites without laying anything out.
func (e *Engine) pointeeMeta(target types.TypeID) (types.PointerKind, bool) {
	seen := make(map[types.TypeID]struct{}, 4)
	id := target
	for id != types.NoTypeID {
		if _, ok := seen[id]; ok {
			return types.PtrThin, false
		}
		seen[id] = struct{}{}
		tt, ok := e.Types.Lookup(id)
		if !ok {
			return types.PtrThin, false
		}
		switch tt.Kind {
		case types.KindSequence:
			return types.PtrSequence, true
		case types.KindPolymorphic:
			return types.PtrPolymorphic, true
		case types.KindAlias:
			next, ok := e.Types.AliasTarget(id)
			if !ok {
				return types.PtrThin, false
			}
			id = next
		case types.KindTail:
			info, ok := e.Types.CompositeInfo(id)
			if !ok {
				return types.PtrThin, false
			}
			id = info.Tail
		case types.KindComposite, types.KindTuple:
			info, ok := e.Types.CompositeInfo(id)
			if !ok || len(info.Members) == 0 {
				return types.PtrThin, false
			}
			id = info.Members[len(info.Members)-1].Type
		default:
			return types.PtrThin, false
		}
	}
	return types.PtrThin, false
}
