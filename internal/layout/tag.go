package layout

import (
	"fmt"

	"memlayout/internal/types"
)

type variantShape struct {
	v  types.Variant
	sh *shape // nil for an empty variant
}

func (e *Engine) unionShape(id types.TypeID, policy Policy, parent uint64) (*shape, *LayoutError) {
	info, ok := e.Types.UnionInfo(id)
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Detail: "union has no variant table"}
	}
	variants := make([]variantShape, len(info.Variants))
	uninhabited := true
	for i, v := range info.Variants {
		variants[i] = variantShape{v: v}
		if !v.HasPayload() {
			uninhabited = false
			continue
		}
		sh, err := e.resolve(v.Payload, policy, parent)
		if err != nil {
			return nil, err
		}
		if sh.unsized {
			return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Member: v.Name, Detail: "variant payload is dynamically sized"}
		}
		variants[i].sh = sh
		if !sh.res.Uninhabited {
			uninhabited = false
		}
	}

	if len(variants) == 0 {
		return &shape{res: Result{Size: 0, Align: 1, Uninhabited: true}}, nil
	}

	sh, err := e.selectTag(variants, info.Repr, policy)
	if err != nil {
		return nil, err
	}
	sh.res.Uninhabited = uninhabited
	return sh, nil
}

// selectTag decides between no tag, niche encoding and an explicit discriminant.
func (e *Engine) selectTag(variants []variantShape, repr types.TagRepr, policy Policy) (*shape, *LayoutError) {
	if len(variants) == 1 && policy == PolicyOptimized && repr.Width == 0 && repr.Strategy == types.TagAuto {
		return untaggedShape(variants[0]), nil
	}
	if repr.Strategy != types.TagExplicit {
		sh, reason := nicheShape(variants)
		if sh != nil {
			return sh, nil
		}
		if repr.Strategy == types.TagNiche {
			return nil, &LayoutError{Kind: LayoutErrNicheExhausted, Detail: reason}
		}
	}
	return e.explicitShape(variants, repr)
}

func untaggedShape(v variantShape) *shape {
	res := Result{
		Size:     0,
		Align:    1,
		Variants: []VariantTag{{Name: v.v.Name, Index: 0, Payload: v.v.Payload}},
	}
	if v.sh != nil {
		res.Size = v.sh.res.Size
		res.Align = v.sh.res.Align
		res.Niche = v.sh.res.Niche
	}
	return &shape{res: res}
}

// nicheShape encodes the empty variants inside the niche of the only dataful
// variant. It returns nil and the reason when the union does not qualify.
func nicheShape(variants []variantShape) (*shape, string) {
	dataful := -1
	empties := uint64(0)
	for i, v := range variants {
		if v.sh == nil {
			empties++
			continue
		}
		if dataful >= 0 {
			return nil, "more than one variant carries a payload"
		}
		dataful = i
	}
	if dataful < 0 {
		return nil, "no variant carries a payload"
	}
	if empties == 0 {
		return nil, "no empty variant to encode"
	}
	payload := variants[dataful].sh.res
	if payload.Niche == nil {
		return nil, fmt.Sprintf("payload of %q has no invalid bit patterns", variants[dataful].v.Name)
	}
	values, rest, err := payload.Niche.Reserve(empties)
	if err != nil {
		return nil, err.Error()
	}
	tagNiche := *payload.Niche
	res := Result{
		Size:     payload.Size,
		Align:    payload.Align,
		Encoding: EncodingNiche,
		TagNiche: &tagNiche,
		Niche:    rest,
		Variants: make([]VariantTag, len(variants)),
	}
	next := 0
	for i, v := range variants {
		tag := VariantTag{Name: v.v.Name, Index: i, Payload: v.v.Payload}
		if i != dataful {
			tag.Value = values[next]
			tag.Tagged = true
			next++
		}
		res.Variants[i] = tag
	}
	return &shape{res: res}, ""
}

// explicitShape stores the discriminant at offset 0. Each payload starts at
// the first offset after the discriminant that satisfies its own alignment.
func (e *Engine) explicitShape(variants []variantShape, repr types.TagRepr) (*shape, *LayoutError) {
	n := uint64(len(variants))
	width, err := e.discriminantWidth(n, uint64(repr.Width))
	if err != nil {
		return nil, err
	}
	discAlign, err := e.resolver.Scalar(width)
	if err != nil {
		return nil, err
	}

	res := Result{
		Encoding:      EncodingExplicit,
		Discriminant:  &Discriminant{Offset: 0, Width: width},
		PayloadOffset: width,
		Variants:      make([]VariantTag, len(variants)),
	}
	align := discAlign
	end, endOffset := width, width
	for i, v := range variants {
		tag := VariantTag{Name: v.v.Name, Index: i, Payload: v.v.Payload, Value: uint64(i), Tagged: true, PayloadOffset: width}
		if v.sh != nil {
			off := roundUp(width, v.sh.res.Align)
			vend, ok := addSize(off, v.sh.res.Size)
			if !ok {
				return nil, &LayoutError{Kind: LayoutErrSizeOverflow, Member: v.v.Name}
			}
			tag.PayloadOffset = off
			align = max(align, v.sh.res.Align)
			res.PayloadOffset = max(res.PayloadOffset, off)
			if vend > end {
				end, endOffset = vend, off
			}
		}
		res.Variants[i] = tag
	}
	size, ok := roundUpChecked(end, align)
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrSizeOverflow}
	}
	res.Size = size
	res.Align = align
	res.Padding = size - end + (endOffset - width)

	disc := Niche{Offset: 0, Width: width, Valid: types.ValidRange{Start: 0, End: n - 1}}
	if width <= 8 && disc.Available() > 0 {
		res.Niche = &disc
	}
	return &shape{res: res}, nil
}

// discriminantWidth picks the tag width for n variants. An explicit request
// must hold n values; the profile default is widened to the next storable
// width when it is too narrow.
func (e *Engine) discriminantWidth(n, requested uint64) (uint64, *LayoutError) {
	if requested != 0 {
		if _, ok := e.Profile.ScalarAlign(requested); !ok || requested > 8 {
			return 0, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: requested}
		}
		if !widthHolds(requested, n) {
			return 0, &LayoutError{
				Kind:   LayoutErrUnsupportedProfile,
				Width:  requested,
				Detail: fmt.Sprintf("a %d-byte discriminant cannot distinguish %d variants", requested, n),
			}
		}
		return requested, nil
	}
	if widthHolds(e.Profile.DefaultDiscriminantWidth, n) {
		return e.Profile.DefaultDiscriminantWidth, nil
	}
	for _, w := range e.Profile.Widths() {
		if w > e.Profile.DefaultDiscriminantWidth && w <= 8 && widthHolds(w, n) {
			return w, nil
		}
	}
	return 0, &LayoutError{
		Kind:   LayoutErrUnsupportedProfile,
		Width:  e.Profile.DefaultDiscriminantWidth,
		Detail: fmt.Sprintf("no storable discriminant width holds %d variants", n),
	}
}

func widthHolds(width, n uint64) bool {
	if n == 0 {
		return true
	}
	return n-1 <= types.WidthMask(uint8(width)) //nolint:gosec // width <= 8
}
