package manifest

import (
	"fmt"
	"math/bits"

	"fortio.org/safecast"

	"memlayout/internal/types"
)

type builder struct {
	in    *types.Interner
	names map[string]types.TypeID
	dyn   map[string]types.TypeID
}

// register allocates the slot a declaration's name binds to. Nominal kinds get
// their own slot; structural kinds bind the name through an alias.
func (b *builder) register(decl *TypeDecl) (types.TypeID, error) {
	switch decl.Kind {
	case "composite", "struct":
		return b.in.RegisterComposite(decl.Name), nil
	case "tail":
		return b.in.RegisterTail(decl.Name), nil
	case "union", "enum":
		return b.in.RegisterUnion(decl.Name), nil
	case "pointer", "array", "sequence", "tuple", "scalar", "zst", "never", "alias", "polymorphic":
		return b.in.RegisterAlias(decl.Name), nil
	case "":
		return types.NoTypeID, fmt.Errorf("missing kind")
	default:
		return types.NoTypeID, fmt.Errorf("unknown kind %q", decl.Kind)
	}
}

func (b *builder) fill(decl *TypeDecl, id types.TypeID) error {
	switch decl.Kind {
	case "composite", "struct":
		members, err := b.members(decl.Members)
		if err != nil {
			return err
		}
		b.in.SetCompositeMembers(id, members)
		return b.attrs(decl, id)

	case "tail":
		if decl.Tail == "" {
			return fmt.Errorf("tail: missing tail type")
		}
		head, err := b.members(decl.Members)
		if err != nil {
			return err
		}
		tail, err := b.resolveRef(decl.Tail)
		if err != nil {
			return fmt.Errorf("tail: %w", err)
		}
		b.in.SetTail(id, head, tail)
		return b.attrs(decl, id)

	case "union", "enum":
		return b.union(decl, id)

	case "pointer":
		if decl.Target == "" {
			return fmt.Errorf("pointer: missing target")
		}
		target, err := b.resolveRef(decl.Target)
		if err != nil {
			return fmt.Errorf("pointer: %w", err)
		}
		kind, err := types.ParsePointerKind(decl.Pointer)
		if err != nil {
			return err
		}
		desc := types.MakePointer(target, kind)
		if decl.Nullable {
			desc = types.MakeRawPointer(target, kind)
		}
		b.in.SetAliasTarget(id, b.in.Intern(desc))

	case "array":
		elem, err := b.elem(decl)
		if err != nil {
			return err
		}
		count, err := safecast.Conv[uint64](decl.Count)
		if err != nil {
			return fmt.Errorf("array: count: %w", err)
		}
		b.in.SetAliasTarget(id, b.in.Intern(types.MakeArray(elem, count)))

	case "sequence":
		elem, err := b.elem(decl)
		if err != nil {
			return err
		}
		b.in.SetAliasTarget(id, b.in.Intern(types.MakeSequence(elem)))

	case "tuple":
		elems := make([]types.TypeID, len(decl.Elems))
		for i, ref := range decl.Elems {
			elem, err := b.resolveRef(ref)
			if err != nil {
				return fmt.Errorf("tuple element %d: %w", i, err)
			}
			elems[i] = elem
		}
		b.in.SetAliasTarget(id, b.in.RegisterTuple(elems))

	case "scalar":
		desc, err := scalarDecl(decl)
		if err != nil {
			return err
		}
		b.in.SetAliasTarget(id, b.in.Intern(desc))

	case "zst":
		align, err := safecast.Conv[uint64](decl.Align)
		if err != nil {
			return fmt.Errorf("zst: align: %w", err)
		}
		if align > 1 && bits.OnesCount64(align) != 1 {
			return fmt.Errorf("zst: align %d is not a power of two", align)
		}
		b.in.SetAliasTarget(id, b.in.Intern(types.MakeZeroSized(align)))

	case "never":
		b.in.SetAliasTarget(id, b.in.Builtins().Never)

	case "alias":
		if decl.Target == "" {
			return fmt.Errorf("alias: missing target")
		}
		target, err := b.resolveRef(decl.Target)
		if err != nil {
			return fmt.Errorf("alias: %w", err)
		}
		b.in.SetAliasTarget(id, target)

	case "polymorphic":
		iface := decl.Interface
		if iface == "" {
			iface = decl.Name
		}
		b.in.SetAliasTarget(id, b.polymorphic(iface))
	}
	return nil
}

func (b *builder) members(decls []MemberDecl) ([]types.Member, error) {
	members := make([]types.Member, len(decls))
	seen := make(map[string]struct{}, len(decls))
	for i, md := range decls {
		if md.Name == "" {
			return nil, fmt.Errorf("member #%d: missing name", i+1)
		}
		if _, dup := seen[md.Name]; dup {
			return nil, fmt.Errorf("member %q declared twice", md.Name)
		}
		seen[md.Name] = struct{}{}
		if md.Type == "" {
			return nil, fmt.Errorf("member %q: missing type", md.Name)
		}
		ty, err := b.resolveRef(md.Type)
		if err != nil {
			return nil, fmt.Errorf("member %q: %w", md.Name, err)
		}
		members[i] = types.Member{Name: md.Name, Type: ty}
	}
	return members, nil
}

func (b *builder) attrs(decl *TypeDecl, id types.TypeID) error {
	if !decl.Packed && decl.Align == 0 {
		return nil
	}
	align, err := safecast.Conv[uint64](decl.Align)
	if err != nil {
		return fmt.Errorf("align: %w", err)
	}
	b.in.SetLayoutAttrs(id, types.LayoutAttrs{Packed: decl.Packed, AlignOverride: align})
	return nil
}

func (b *builder) union(decl *TypeDecl, id types.TypeID) error {
	strategy, err := types.ParseTagStrategy(decl.Tag)
	if err != nil {
		return err
	}
	width, err := safecast.Conv[uint8](decl.TagWidth)
	if err != nil {
		return fmt.Errorf("tag_width: %w", err)
	}
	variants := make([]types.Variant, len(decl.Variants))
	seen := make(map[string]struct{}, len(decl.Variants))
	for i, vd := range decl.Variants {
		if vd.Name == "" {
			return fmt.Errorf("variant #%d: missing name", i+1)
		}
		if _, dup := seen[vd.Name]; dup {
			return fmt.Errorf("variant %q declared twice", vd.Name)
		}
		seen[vd.Name] = struct{}{}
		variants[i] = types.Variant{Name: vd.Name}
		if vd.Type == "" {
			continue
		}
		payload, err := b.resolveRef(vd.Type)
		if err != nil {
			return fmt.Errorf("variant %q: %w", vd.Name, err)
		}
		variants[i].Payload = payload
	}
	b.in.SetUnionVariants(id, variants)
	b.in.SetUnionRepr(id, types.TagRepr{Width: width, Strategy: strategy})
	return nil
}

func (b *builder) elem(decl *TypeDecl) (types.TypeID, error) {
	if decl.Elem == "" {
		return types.NoTypeID, fmt.Errorf("%s: missing elem", decl.Kind)
	}
	elem, err := b.resolveRef(decl.Elem)
	if err != nil {
		return types.NoTypeID, fmt.Errorf("%s: %w", decl.Kind, err)
	}
	return elem, nil
}

func scalarDecl(decl *TypeDecl) (types.Type, error) {
	width, err := safecast.Conv[uint8](decl.Width)
	if err != nil {
		return types.Type{}, fmt.Errorf("scalar: width: %w", err)
	}
	switch width {
	case types.WidthPointer, 1, 2, 4, 8, 16:
	default:
		return types.Type{}, fmt.Errorf("scalar: unsupported width %d", width)
	}
	switch len(decl.Range) {
	case 0:
		return types.MakeScalar(width), nil
	case 2:
		lo, err := safecast.Conv[uint64](decl.Range[0])
		if err != nil {
			return types.Type{}, fmt.Errorf("scalar: range: %w", err)
		}
		hi, err := safecast.Conv[uint64](decl.Range[1])
		if err != nil {
			return types.Type{}, fmt.Errorf("scalar: range: %w", err)
		}
		if width != types.WidthPointer && width <= 8 {
			mask := types.WidthMask(width)
			if lo > mask || hi > mask {
				return types.Type{}, fmt.Errorf("scalar: range [%d, %d] does not fit %d bytes", lo, hi, width)
			}
		}
		return types.MakeRangedScalar(width, types.ValidRange{Start: lo, End: hi}), nil
	default:
		return types.Type{}, fmt.Errorf("scalar: range must be [lo, hi]")
	}
}

func (b *builder) polymorphic(iface string) types.TypeID {
	if b.dyn == nil {
		b.dyn = make(map[string]types.TypeID)
	}
	if id, ok := b.dyn[iface]; ok {
		return id
	}
	id := b.in.RegisterPolymorphic(iface)
	b.dyn[iface] = id
	return id
}
