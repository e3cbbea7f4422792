package layout

import (
	"fmt"

	"memlayout/internal/types"
)

// TagValue is what must be written to construct a value of one variant.
type TagValue struct {
	Variant  string
	Index    int
	Encoding Encoding
	// Offset and Width locate the tag bytes; Width is 0 when nothing is written.
	Offset uint64
	Width  uint64
	Value  uint64
}

// Variant returns the tag write that constructs variant index of union.
// Indexes outside the declared variants are rejected.
func (e *Engine) Variant(union types.TypeID, index int, policy Policy) (TagValue, error) {
	res, err := e.unionLayout(union, policy)
	if err != nil {
		return TagValue{}, err
	}
	if index < 0 || index >= len(res.Variants) {
		detail := fmt.Sprintf("union declares %d variants", len(res.Variants))
		var value uint64
		if index >= 0 {
			value = uint64(index)
		} else {
			detail = "negative variant index"
		}
		return TagValue{}, &LayoutError{Kind: LayoutErrUndefinedDiscriminant, Type: union, Label: e.label(union), Value: value, Detail: detail}
	}
	tag := res.Variants[index]
	out := TagValue{Variant: tag.Name, Index: index, Encoding: res.Encoding}
	if !tag.Tagged {
		return out, nil
	}
	out.Value = tag.Value
	switch res.Encoding {
	case EncodingExplicit:
		out.Offset = res.Discriminant.Offset
		out.Width = res.Discriminant.Width
	case EncodingNiche:
		out.Offset = res.TagNiche.Offset
		out.Width = res.TagNiche.Width
	}
	return out, nil
}

// DecodeTag maps the raw bytes found at the tag location back to a variant
// index. Values that identify no declared variant are rejected.
func (e *Engine) DecodeTag(union types.TypeID, raw uint64, policy Policy) (int, error) {
	res, err := e.unionLayout(union, policy)
	if err != nil {
		return 0, err
	}
	undefined := &LayoutError{Kind: LayoutErrUndefinedDiscriminant, Type: union, Label: e.label(union), Value: raw}
	switch res.Encoding {
	case EncodingExplicit:
		for _, v := range res.Variants {
			if v.Value == raw {
				return v.Index, nil
			}
		}
	case EncodingNiche:
		dataful := -1
		for _, v := range res.Variants {
			if !v.Tagged {
				dataful = v.Index
				continue
			}
			if v.Value == raw {
				return v.Index, nil
			}
		}
		if dataful >= 0 && res.TagNiche.Contains(raw) {
			return dataful, nil
		}
		undefined.Detail = "value is neither a valid payload nor a reserved niche value"
	default:
		if len(res.Variants) == 1 {
			return 0, nil
		}
		undefined.Detail = "union has no variants"
	}
	return 0, undefined
}

func (e *Engine) unionLayout(union types.TypeID, policy Policy) (Result, error) {
	res, err := e.Layout(union, policy)
	if err != nil {
		return Result{}, err
	}
	if res.Kind != types.KindUnion {
		return Result{}, &LayoutError{Kind: LayoutErrUnknownType, Type: union, Label: e.label(union), Detail: "not a tagged union"}
	}
	return res, nil
}

// Instance supplies what a dynamically sized value carries in its pointer
// metadata: the element count of a sequence tail, or the concrete type
// behind a polymorphic tail.
type Instance struct {
	Count    uint64
	Concrete types.TypeID
}

// Instantiate computes the size of one value of a possibly dynamically sized
// type. Sized types lay out as usual; a sequence tail becomes [T; Count] and a
// polymorphic tail becomes the concrete type. Results are not cached.
func (e *Engine) Instantiate(id types.TypeID, policy Policy, inst Instance) (Result, error) {
	sh, err := e.query(id, policy, 0)
	if err != nil {
		return Result{}, asError(err)
	}
	if !sh.unsized {
		return sh.res.clone(), nil
	}
	if inst.Concrete != types.NoTypeID {
		if err := e.ready(inst.Concrete); err != nil {
			return Result{}, err
		}
		if err := e.checkAcyclic(inst.Concrete); err != nil {
			return Result{}, err
		}
	}
	out, lerr := e.instantiate(id, policy, inst)
	if lerr != nil {
		if lerr.Label == "" {
			lerr.Label = e.label(id)
		}
		return Result{}, lerr
	}
	return out.res.clone(), nil
}

func (e *Engine) instantiate(id types.TypeID, policy Policy, inst Instance) (*shape, *LayoutError) {
	canon, err := e.canonical(id)
	if err != nil {
		return nil, err
	}
	sh, err := e.resolve(canon, policy, 0)
	if err != nil {
		return nil, err
	}
	if !sh.unsized {
		return sh, nil
	}
	tt := e.Types.MustLookup(canon)
	switch tt.Kind {
	case types.KindSequence:
		elem, err := e.resolve(tt.Elem, policy, 0)
		if err != nil {
			return nil, err
		}
		out, err := repeatShape(elem, inst.Count)
		if err != nil {
			return nil, err
		}
		out.res.Type = canon
		out.res.Policy = policy
		return out, nil
	case types.KindPolymorphic:
		if inst.Concrete == types.NoTypeID {
			return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Type: canon, Detail: "polymorphic value needs a concrete type"}
		}
		out, err := e.resolve(inst.Concrete, policy, 0)
		if err != nil {
			return nil, err
		}
		if out.unsized {
			return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Type: inst.Concrete, Label: e.label(inst.Concrete), Detail: "concrete type is itself dynamically sized"}
		}
		return out, nil
	case types.KindComposite, types.KindTuple, types.KindTail:
		info, _ := e.Types.CompositeInfo(canon)
		decls := info.Members
		if info.Tail != types.NoTypeID {
			decls = append(decls[:len(decls):len(decls)], types.Member{Name: "tail", Type: info.Tail})
		}
		members := make([]memberShape, len(decls))
		for i, m := range decls {
			var (
				msh  *shape
				merr *LayoutError
			)
			if i == len(decls)-1 {
				msh, merr = e.instantiate(m.Type, policy, inst)
			} else {
				msh, merr = e.resolve(m.Type, policy, 0)
			}
			if merr != nil {
				return nil, merr
			}
			members[i] = memberShape{name: m.Name, typ: m.Type, sh: msh}
		}
		out, err := e.placeMembers(members, info.Attrs, policy, 0)
		if err != nil {
			return nil, err
		}
		out.res.Type = canon
		out.res.Kind = tt.Kind
		out.res.Policy = policy
		return out, nil
	}
	return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Type: canon, Detail: "type cannot be instantiated"}
}
