package layout_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"memlayout/internal/layout"
	"memlayout/internal/types"
)

func TestComposite_FixedKeepsDeclarationOrder(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	s := f.composite("S", f.b.U8, f.b.U32, f.b.U16)

	res := f.mustLayout(t, s, layout.PolicyFixed)
	if res.Size != 12 || res.Align != 4 {
		t.Fatalf("got size=%d align=%d, want 12/4", res.Size, res.Align)
	}
	wantOffsets := []uint64{0, 4, 8}
	for i, m := range res.Members {
		if m.Offset != wantOffsets[i] {
			t.Fatalf("member %s offset=%d, want %d", m.Name, m.Offset, wantOffsets[i])
		}
	}
	if res.Padding != 5 {
		t.Fatalf("padding=%d, want 5", res.Padding)
	}
}

func TestComposite_OptimizedReorders(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	s := f.composite("S", f.b.U8, f.b.U32, f.b.U16)

	res := f.mustLayout(t, s, layout.PolicyOptimized)
	if res.Size != 8 || res.Align != 4 {
		t.Fatalf("got size=%d align=%d, want 8/4", res.Size, res.Align)
	}
	// Members are still keyed by declaration: a=u8, b=u32, c=u16.
	want := map[string]uint64{"a": 6, "b": 0, "c": 4}
	for name, off := range want {
		m, ok := res.MemberByName(name)
		if !ok || m.Offset != off {
			t.Fatalf("member %s offset=%d ok=%v, want %d", name, m.Offset, ok, off)
		}
	}
	if len(res.Order) != 3 || res.Order[0] != 1 || res.Order[1] != 2 || res.Order[2] != 0 {
		t.Fatalf("physical order = %v, want [1 2 0]", res.Order)
	}
}

func TestComposite_OptimizedTiesKeepDeclarationOrder(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	s := f.composite("S", f.b.U16, f.b.U8, f.b.U16, f.b.U8)

	res := f.mustLayout(t, s, layout.PolicyOptimized)
	want := []int{0, 2, 1, 3}
	for i := range want {
		if res.Order[i] != want[i] {
			t.Fatalf("order = %v, want %v", res.Order, want)
		}
	}
	if res.Size != 6 {
		t.Fatalf("size=%d, want 6", res.Size)
	}
}

func TestComposite_EmptyAndZeroSized(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	empty := f.composite("Empty")
	res := f.mustLayout(t, empty, layout.PolicyFixed)
	if res.Size != 0 || res.Align != 1 {
		t.Fatalf("empty composite: got size=%d align=%d, want 0/1", res.Size, res.Align)
	}

	zstArray := f.in.Intern(types.MakeArray(f.b.Unit, 1000))
	for _, policy := range []layout.Policy{layout.PolicyFixed, layout.PolicyOptimized} {
		res := f.mustLayout(t, zstArray, policy)
		if res.Size != 0 {
			t.Fatalf("[(); 1000] under %s: size=%d, want 0", policy, res.Size)
		}
	}

	aligned := f.in.Intern(types.MakeZeroSized(8))
	res = f.mustLayout(t, aligned, layout.PolicyFixed)
	if res.Size != 0 || res.Align != 8 {
		t.Fatalf("aligned ZST: got size=%d align=%d, want 0/8", res.Size, res.Align)
	}

	// A zero-sized member advances nothing, even under the fixed policy.
	s := f.composite("S", f.b.U8, f.b.Unit, f.b.U8)
	res = f.mustLayout(t, s, layout.PolicyFixed)
	if res.Size != 2 || res.Members[1].Offset != 1 || res.Members[2].Offset != 1 {
		t.Fatalf("ZST member: got size=%d offsets=%d,%d", res.Size, res.Members[1].Offset, res.Members[2].Offset)
	}
}

func TestComposite_WideScalarAlignsBelowSize(t *testing.T) {
	cases := []struct {
		profile layout.Profile
		size    uint64
		align   uint64
	}{
		{layout.X86_64LinuxGNU(), 16, 8},
		{layout.I686LinuxGNU(), 12, 4},
		{layout.AVR(), 9, 1},
	}
	for _, tc := range cases {
		f := newFixture(tc.profile)
		s := f.composite("S", f.b.U8, f.b.U64)
		res := f.mustLayout(t, s, layout.PolicyFixed)
		if res.Size != tc.size || res.Align != tc.align {
			t.Fatalf("%s: got size=%d align=%d, want %d/%d", tc.profile.Name, res.Size, res.Align, tc.size, tc.align)
		}
	}
}

func TestComposite_Attributes(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())

	packed := f.composite("Packed", f.b.U8, f.b.U32)
	f.in.SetLayoutAttrs(packed, types.LayoutAttrs{Packed: true})
	for _, policy := range []layout.Policy{layout.PolicyFixed, layout.PolicyOptimized} {
		res := f.mustLayout(t, packed, policy)
		if res.Size != 5 || res.Align != 1 || res.Members[1].Offset != 1 {
			t.Fatalf("packed under %s: got size=%d align=%d b@%d", policy, res.Size, res.Align, res.Members[1].Offset)
		}
	}

	aligned := f.composite("Aligned", f.b.U8)
	f.in.SetLayoutAttrs(aligned, types.LayoutAttrs{AlignOverride: 16})
	res := f.mustLayout(t, aligned, layout.PolicyFixed)
	if res.Size != 16 || res.Align != 16 {
		t.Fatalf("align(16): got size=%d align=%d", res.Size, res.Align)
	}

	lowered := f.composite("Lowered", f.b.U64)
	f.in.SetLayoutAttrs(lowered, types.LayoutAttrs{AlignOverride: 2})
	res = f.mustLayout(t, lowered, layout.PolicyFixed)
	if res.Align != 8 {
		t.Fatalf("align override must not lower alignment, got %d", res.Align)
	}

	both := f.composite("Both", f.b.U8)
	f.in.SetLayoutAttrs(both, types.LayoutAttrs{Packed: true, AlignOverride: 4})
	_, err := f.eng.Layout(both, layout.PolicyFixed)
	wantKind(t, err, layout.ErrInvalidAttrs, layout.LayoutErrInvalidAttrs)
}

func TestTupleLayout(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	tup := f.in.RegisterTuple([]types.TypeID{f.b.U8, f.b.U32})
	res := f.mustLayout(t, tup, layout.PolicyFixed)
	if res.Size != 8 || res.Members[1].Name != "1" || res.Members[1].Offset != 4 {
		t.Fatalf("tuple: got size=%d members=%+v", res.Size, res.Members)
	}
}

func TestUninhabitedMemberMarksComposite(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	s := f.composite("S", f.b.U32, f.b.Never)
	res := f.mustLayout(t, s, layout.PolicyFixed)
	if !res.Uninhabited {
		t.Fatalf("composite with a never member should be uninhabited")
	}
	if res.Size != 4 {
		t.Fatalf("uninhabited composite keeps its structural size, got %d", res.Size)
	}
}

func TestOptimizedNeverLargerThanFixed(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	pool := []types.TypeID{
		f.b.U8, f.b.U16, f.b.U32, f.b.U64, f.b.U128, f.b.Bool, f.b.Char, f.b.Unit,
		f.in.Intern(types.MakeArray(f.b.U8, 3)),
		f.in.Intern(types.MakeZeroSized(16)),
		f.ref(f.b.U8),
	}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 200 {
		n := rng.IntN(8)
		elems := make([]types.TypeID, n)
		for j := range elems {
			elems[j] = pool[rng.IntN(len(pool))]
		}
		s := f.composite("S", elems...)
		fixed := f.mustLayout(t, s, layout.PolicyFixed)
		opt := f.mustLayout(t, s, layout.PolicyOptimized)
		if opt.Size > fixed.Size {
			t.Fatalf("case %d: optimized size %d > fixed size %d", i, opt.Size, fixed.Size)
		}
		if opt.Align != fixed.Align {
			t.Fatalf("case %d: alignment differs between policies: %d vs %d", i, opt.Align, fixed.Align)
		}
	}
}

func TestArraySizeOverflow(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	huge := f.in.Intern(types.MakeArray(f.b.U64, math.MaxUint64/4))
	_, err := f.eng.Layout(huge, layout.PolicyFixed)
	wantKind(t, err, layout.ErrSizeOverflow, layout.LayoutErrSizeOverflow)
}

func TestUnknownType(t *testing.T) {
	f := newFixture(layout.X86_64LinuxGNU())
	_, err := f.eng.Layout(types.TypeID(9999), layout.PolicyFixed)
	wantKind(t, err, layout.ErrUnknownType, layout.LayoutErrUnknownType)
}

func TestProfileWithoutWidthIsUnsupported(t *testing.T) {
	profile, err := layout.NewProfile("tiny", 4, map[uint64]uint64{1: 1, 2: 2, 4: 4}, 4)
	if err != nil {
		t.Fatalf("NewProfile: %v", err)
	}
	f := newFixture(profile)
	_, err = f.eng.Layout(f.b.U64, layout.PolicyFixed)
	lerr := wantKind(t, err, layout.ErrUnsupportedProfile, layout.LayoutErrUnsupportedProfile)
	if lerr.Width != 8 {
		t.Fatalf("expected missing width 8, got %d", lerr.Width)
	}

	// A composite fails as a whole when one member cannot be aligned.
	s := f.composite("S", f.b.U8, f.b.U64)
	_, err = f.eng.Layout(s, layout.PolicyFixed)
	wantKind(t, err, layout.ErrUnsupportedProfile, layout.LayoutErrUnsupportedProfile)
}

func TestNewProfileValidation(t *testing.T) {
	cases := []struct {
		name  string
		ptr   uint64
		table map[uint64]uint64
		disc  uint64
	}{
		{"empty table", 8, nil, 4},
		{"pointer width missing", 8, map[uint64]uint64{1: 1, 4: 4}, 4},
		{"alignment not a power of two", 4, map[uint64]uint64{1: 1, 4: 3}, 1},
		{"discriminant width missing", 4, map[uint64]uint64{1: 1, 4: 4}, 2},
		{"alignment above width", 8, map[uint64]uint64{1: 2, 8: 8}, 8},
		{"alignment does not divide width", 4, map[uint64]uint64{1: 1, 4: 4, 12: 8}, 4},
	}
	for _, tc := range cases {
		_, err := layout.NewProfile(tc.name, tc.ptr, tc.table, tc.disc)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		wantKind(t, err, layout.ErrUnsupportedProfile, layout.LayoutErrUnsupportedProfile)
	}
}

func TestPresets(t *testing.T) {
	presets := layout.Presets()
	if len(presets) != 5 {
		t.Fatalf("expected 5 presets, got %d", len(presets))
	}
	for i := 1; i < len(presets); i++ {
		if presets[i-1].Name >= presets[i].Name {
			t.Fatalf("presets not sorted: %q before %q", presets[i-1].Name, presets[i].Name)
		}
	}
	p, ok := layout.LookupProfile("i686-linux-gnu")
	if !ok || p.PointerWidth != 4 {
		t.Fatalf("LookupProfile(i686-linux-gnu) = %+v, %v", p, ok)
	}
	if a, _ := p.ScalarAlign(8); a != 4 {
		t.Fatalf("i686 aligns 8-byte scalars to 4, got %d", a)
	}
	if _, ok := layout.LookupProfile("pdp11"); ok {
		t.Fatalf("unexpected profile pdp11")
	}
}

func TestComputeOneShotAndHelpers(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	s := in.RegisterComposite("S")
	in.SetCompositeMembers(s, []types.Member{{Name: "x", Type: b.U8}, {Name: "y", Type: b.U32}})

	res, err := layout.Compute(in, s, layout.PolicyFixed, layout.X86_64LinuxGNU())
	if err != nil || res.Size != 8 {
		t.Fatalf("Compute: size=%d err=%v", res.Size, err)
	}
	eng := layout.New(layout.Wasm32(), in)
	if size, _ := eng.SizeOf(b.Usize, layout.PolicyFixed); size != 4 {
		t.Fatalf("wasm32 usize size=%d, want 4", size)
	}
	if align, _ := eng.AlignOf(s, layout.PolicyFixed); align != 4 {
		t.Fatalf("align=%d, want 4", align)
	}
	if _, err := eng.MemberOffset(s, layout.PolicyFixed, "z"); err == nil {
		t.Fatalf("expected error for missing member")
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]layout.Policy{"optimized": layout.PolicyOptimized, "FIXED": layout.PolicyFixed, "c": layout.PolicyFixed} {
		got, err := layout.ParsePolicy(in)
		if err != nil || got != want {
			t.Fatalf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := layout.ParsePolicy("packed"); err == nil {
		t.Fatalf("expected error")
	}
}
