package layout_test

import (
	"errors"
	"testing"

	"memlayout/internal/layout"
	"memlayout/internal/testkit"
	"memlayout/internal/types"
)

type fixture struct {
	in  *types.Interner
	b   types.Builtins
	eng *layout.Engine
}

func newFixture(profile layout.Profile) *fixture {
	in := types.NewInterner()
	return &fixture{in: in, b: in.Builtins(), eng: layout.New(profile, in)}
}

func (f *fixture) composite(name string, elems ...types.TypeID) types.TypeID {
	id := f.in.RegisterComposite(name)
	members := make([]types.Member, len(elems))
	for i, e := range elems {
		members[i] = types.Member{Name: string(rune('a' + i)), Type: e}
	}
	f.in.SetCompositeMembers(id, members)
	return id
}

func (f *fixture) union(name string, repr types.TagRepr, variants ...types.Variant) types.TypeID {
	id := f.in.RegisterUnion(name)
	f.in.SetUnionVariants(id, variants)
	f.in.SetUnionRepr(id, repr)
	return id
}

func (f *fixture) option(payload types.TypeID) types.TypeID {
	return f.union("Option", types.TagRepr{}, types.Variant{Name: "None"}, types.Variant{Name: "Some", Payload: payload})
}

func (f *fixture) ref(target types.TypeID) types.TypeID {
	return f.in.Intern(types.MakePointer(target, types.PtrThin))
}

func (f *fixture) mustLayout(t *testing.T, id types.TypeID, policy layout.Policy) layout.Result {
	t.Helper()
	res, err := f.eng.Layout(id, policy)
	if err != nil {
		t.Fatalf("layout %s (%s): %v", types.Label(f.in, id), policy, err)
	}
	if err := testkit.CheckLayoutInvariants(res); err != nil {
		t.Fatalf("layout %s (%s) breaks invariants: %v", types.Label(f.in, id), policy, err)
	}
	return res
}

func wantKind(t *testing.T, err error, sentinel error, kind layout.LayoutErrorKind) *layout.LayoutError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", sentinel)
	}
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected errors.Is(%v), got %T (%v)", sentinel, err, err)
	}
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) {
		t.Fatalf("expected *layout.LayoutError, got %T (%v)", err, err)
	}
	if lerr.Kind != kind {
		t.Fatalf("expected kind %v, got %v (%v)", kind, lerr.Kind, lerr)
	}
	return lerr
}
