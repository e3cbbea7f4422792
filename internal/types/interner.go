package types

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/text/unicode/norm"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid TypeID
	Unit    TypeID
	Never   TypeID
	Bool    TypeID
	Char    TypeID
	U8      TypeID
	U16     TypeID
	U32     TypeID
	U64     TypeID
	U128    TypeID
	Usize   TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors and
// allocating fresh slots for nominal ones (composites, unions, tails, aliases).
//
// Nominal types are registered first and filled later, which is how cyclic
// member graphs are expressed. The interner is safe for concurrent readers;
// writers must not race with layout queries over the same types.
type Interner struct {
	mu         sync.RWMutex
	types      []Type
	index      map[Type]TypeID
	builtins   Builtins
	composites []CompositeInfo
	unions     []UnionInfo
	aliases    []AliasInfo
	polys      []PolymorphicInfo
	byName     map[string]TypeID
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index:  make(map[Type]TypeID, 64),
		byName: make(map[string]TypeID, 32),
	}
	in.composites = append(in.composites, CompositeInfo{}) // reserve 0 as invalid sentinel
	in.unions = append(in.unions, UnionInfo{})
	in.aliases = append(in.aliases, AliasInfo{})
	in.polys = append(in.polys, PolymorphicInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unit = in.Intern(MakeZeroSized(1))
	in.builtins.Never = in.Intern(MakeUninhabited())
	in.builtins.Bool = in.Intern(MakeBool())
	in.builtins.Char = in.Intern(MakeChar())
	in.builtins.U8 = in.Intern(MakeScalar(1))
	in.builtins.U16 = in.Intern(MakeScalar(2))
	in.builtins.U32 = in.Intern(MakeScalar(4))
	in.builtins.U64 = in.Intern(MakeScalar(8))
	in.builtins.U128 = in.Intern(MakeScalar(16))
	in.builtins.Usize = in.Intern(MakeScalar(WidthPointer))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided structural descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRawLocked(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.internRawLocked(t)
}

// internRawLocked adds the descriptor to the storage without consulting the map.
func (in *Interner) internRawLocked(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	if t.Payload == 0 {
		in.index[t] = id
	}
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID {
		return Type{}, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	if int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Len returns the number of descriptors, including the invalid sentinel.
func (in *Interner) Len() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.types)
}

// Named returns the nominal type registered under name.
func (in *Interner) Named(name string) (TypeID, bool) {
	if in == nil {
		return NoTypeID, false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	id, ok := in.byName[norm.NFC.String(name)]
	return id, ok
}

// NameOf returns the declared name of a nominal type.
func (in *Interner) NameOf(id TypeID) (string, bool) {
	tt, ok := in.Lookup(id)
	if !ok {
		return "", false
	}
	in.mu.RLock()
	defer in.mu.RUnlock()
	var name string
	switch tt.Kind {
	case KindComposite, KindTuple, KindTail:
		name = in.composites[tt.Payload].Name
	case KindUnion:
		name = in.unions[tt.Payload].Name
	case KindAlias:
		name = in.aliases[tt.Payload].Name
	case KindPolymorphic:
		name = in.polys[tt.Payload].Interface
	}
	return name, name != ""
}

// bindNameLocked records a nominal name; the first registration wins.
func (in *Interner) bindNameLocked(name string, id TypeID) {
	if name == "" {
		return
	}
	if _, exists := in.byName[name]; exists {
		return
	}
	in.byName[name] = id
}

func normalizeName(name string) string {
	return norm.NFC.String(name)
}

func slotOf(n int, what string) uint32 {
	slot, err := safecast.Conv[uint32](n - 1)
	if err != nil {
		panic(fmt.Errorf("%s info overflow: %w", what, err))
	}
	return slot
}
