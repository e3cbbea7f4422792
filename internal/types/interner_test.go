package types

import "testing"

func TestInternerBuiltins(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	if b.Unit == NoTypeID || b.Bool == NoTypeID || b.Never == NoTypeID {
		t.Fatalf("builtins not initialized")
	}
	unit, _ := in.Lookup(b.Unit)
	if unit.Kind != KindZeroSized {
		t.Fatalf("expected zero-sized kind, got %v", unit.Kind)
	}
	never, _ := in.Lookup(b.Never)
	if never.Kind != KindUninhabited {
		t.Fatalf("expected uninhabited kind, got %v", never.Kind)
	}
}

func TestInternerDeduplicatesDescriptors(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().U16
	arr1 := in.Intern(MakeArray(elem, 4))
	arr2 := in.Intern(MakeArray(elem, 4))
	if arr1 != arr2 {
		t.Fatalf("array types should be deduplicated")
	}
	if in.Intern(MakeScalar(4)) != in.Builtins().U32 {
		t.Fatalf("scalar u32 should resolve to the builtin")
	}
}

func TestNullabilityAffectsIdentity(t *testing.T) {
	in := NewInterner()
	elem := in.Builtins().U8
	ref := in.Intern(MakePointer(elem, PtrThin))
	raw := in.Intern(MakeRawPointer(elem, PtrThin))
	if ref == raw {
		t.Fatalf("nullable and non-null pointers must differ")
	}
}

func TestNominalTypesAreDistinct(t *testing.T) {
	in := NewInterner()
	a := in.RegisterComposite("A")
	b := in.RegisterComposite("A")
	if a == b {
		t.Fatalf("nominal registrations must allocate fresh ids")
	}
	got, ok := in.Named("A")
	if !ok || got != a {
		t.Fatalf("first registration should own the name, got %d ok=%v", got, ok)
	}
}

func TestCompositeMembersCanReferToSelf(t *testing.T) {
	in := NewInterner()
	node := in.RegisterComposite("Node")
	next := in.Intern(MakePointer(node, PtrThin))
	in.SetCompositeMembers(node, []Member{{Name: "value", Type: in.Builtins().U32}, {Name: "next", Type: next}})

	info, ok := in.CompositeInfo(node)
	if !ok || len(info.Members) != 2 {
		t.Fatalf("expected two members, got %+v", info)
	}
	if info.Members[1].Type != next {
		t.Fatalf("expected self-referencing pointer member")
	}
	if got := Label(in, next); got != "&Node" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestNamesAreNormalized(t *testing.T) {
	in := NewInterner()
	composed := "caf\u00e9"
	decomposed := "cafe\u0301"
	id := in.RegisterUnion(decomposed)
	got, ok := in.Named(composed)
	if !ok || got != id {
		t.Fatalf("expected NFC lookup to find %q, got %d ok=%v", decomposed, got, ok)
	}
}

func TestWidthMask(t *testing.T) {
	cases := []struct {
		width uint8
		want  uint64
	}{
		{1, 0xFF},
		{2, 0xFFFF},
		{4, 0xFFFFFFFF},
		{8, ^uint64(0)},
		{16, ^uint64(0)},
	}
	for _, tc := range cases {
		if got := WidthMask(tc.width); got != tc.want {
			t.Fatalf("WidthMask(%d) = %#x, want %#x", tc.width, got, tc.want)
		}
	}
}

func TestLabels(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	cases := []struct {
		id   TypeID
		want string
	}{
		{b.Bool, "bool"},
		{b.Char, "char"},
		{b.U64, "u64"},
		{b.Usize, "usize"},
		{b.Unit, "()"},
		{b.Never, "!"},
		{in.Intern(MakeNonZero(4)), "nonzero_u32"},
		{in.Intern(MakeArray(b.U8, 3)), "[u8; 3]"},
		{in.Intern(MakePointer(in.Intern(MakeSequence(b.U8)), PtrSequence)), "&[u8]"},
		{in.RegisterTuple([]TypeID{b.U8, b.U32}), "(u8, u32)"},
	}
	for _, tc := range cases {
		if got := Label(in, tc.id); got != tc.want {
			t.Fatalf("Label(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
}
