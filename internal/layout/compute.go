package layout

import (
	"math/bits"

	"memlayout/internal/types"
)

// compute lays out a canonical (non-alias) type.
func (e *Engine) compute(id types.TypeID, policy Policy, parent uint64) (*shape, *LayoutError) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return nil, &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}
	var (
		sh  *shape
		err *LayoutError
	)
	switch tt.Kind {
	case types.KindScalar:
		sh, err = e.scalarShape(tt)
	case types.KindZeroSized:
		sh, err = e.zeroSizedShape(tt)
	case types.KindUninhabited:
		sh = &shape{res: Result{Size: 0, Align: 1, Uninhabited: true}}
	case types.KindPointer:
		sh, err = e.pointerShape(id, tt)
	case types.KindArray:
		sh, err = e.arrayShape(tt, policy, parent)
	case types.KindSequence:
		sh, err = e.sequenceShape(tt, policy, parent)
	case types.KindPolymorphic:
		sh = &shape{res: Result{Size: 0, Align: 1}, unsized: true, meta: types.PtrPolymorphic}
	case types.KindComposite, types.KindTuple, types.KindTail:
		sh, err = e.compositeShape(id, policy, parent)
	case types.KindUnion:
		sh, err = e.unionShape(id, policy, parent)
	default:
		err = &LayoutError{Kind: LayoutErrUnknownType, Detail: "unsupported descriptor kind " + tt.Kind.String()}
	}
	if err != nil {
		if err.Type == types.NoTypeID {
			err.Type = id
		}
		if err.Label == "" {
			err.Label = e.label(id)
		}
		return nil, err
	}
	sh.res.Type = id
	sh.res.Kind = tt.Kind
	sh.res.Policy = policy
	return sh, nil
}

func (e *Engine) scalarShape(tt types.Type) (*shape, *LayoutError) {
	width := e.resolver.ScalarWidth(tt.Width)
	align, err := e.resolver.Scalar(width)
	if err != nil {
		return nil, err
	}
	return &shape{res: Result{
		Size:  width,
		Align: align,
		Niche: scalarNiche(tt, width),
	}}, nil
}

func (e *Engine) zeroSizedShape(tt types.Type) (*shape, *LayoutError) {
	align := max(tt.Align, 1)
	if !isPowerOfTwo(align) {
		return nil, &LayoutError{Kind: LayoutErrInvalidAttrs, Detail: "zero-sized alignment must be a power of two"}
	}
	return &shape{res: Result{Size: 0, Align: align}}, nil
}

// arrayShape lays out [T; n] densely: the stride is the element size, which
// is already a multiple of the element alignment.
func (e *Engine) arrayShape(tt types.Type, policy Policy, parent uint64) (*shape, *LayoutError) {
	elem, err := e.resolve(tt.Elem, policy, parent)
	if err != nil {
		return nil, err
	}
	return repeatShape(elem, tt.Count)
}

// repeatShape lays out count consecutive copies of elem.
func repeatShape(elem *shape, count uint64) (*shape, *LayoutError) {
	if elem.unsized {
		return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Detail: "array element is dynamically sized"}
	}
	hi, size := bits.Mul64(elem.res.Size, count)
	if hi != 0 {
		return nil, &LayoutError{Kind: LayoutErrSizeOverflow, Detail: "array byte size overflows 64 bits"}
	}
	res := Result{Kind: types.KindArray, Size: size, Align: elem.res.Align}
	if count > 0 {
		res.Niche = elem.res.Niche
		res.Uninhabited = elem.res.Uninhabited
	}
	return &shape{res: res}, nil
}

// sequenceShape describes [T]: alignment is known, size is not.
func (e *Engine) sequenceShape(tt types.Type, policy Policy, parent uint64) (*shape, *LayoutError) {
	elem, err := e.resolve(tt.Elem, policy, parent)
	if err != nil {
		return nil, err
	}
	if elem.unsized {
		return nil, &LayoutError{Kind: LayoutErrInvalidDstPlacement, Detail: "sequence element is dynamically sized"}
	}
	return &shape{res: Result{Size: 0, Align: elem.res.Align}, unsized: true, meta: types.PtrSequence}, nil
}
