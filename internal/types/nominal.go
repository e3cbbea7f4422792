package types

import (
	"slices"
	"strconv"
)

// Member describes a single named member of a composite, tuple or tail head.
type Member struct {
	Name string
	Type TypeID
}

// CompositeInfo stores metadata for composites, tuples and generic-tail composites.
type CompositeInfo struct {
	Name    string
	Members []Member
	Tail    TypeID // KindTail only: the possibly unsized last member
	Attrs   LayoutAttrs
}

// AliasInfo stores metadata for a nominal alias type.
type AliasInfo struct {
	Name   string
	Target TypeID
}

// PolymorphicInfo names the dispatch interface of an unsized polymorphic value.
type PolymorphicInfo struct {
	Interface string
}

// RegisterComposite allocates a nominal composite slot and returns its TypeID.
// Members are attached later with SetCompositeMembers so that member graphs
// may refer back to the composite.
func (in *Interner) RegisterComposite(name string) TypeID {
	return in.registerComposite(KindComposite, CompositeInfo{Name: normalizeName(name)})
}

// RegisterTuple allocates an anonymous composite whose members are named by position.
func (in *Interner) RegisterTuple(elems []TypeID) TypeID {
	members := make([]Member, len(elems))
	for i, elem := range elems {
		members[i] = Member{Name: strconv.Itoa(i), Type: elem}
	}
	return in.registerComposite(KindTuple, CompositeInfo{Members: members})
}

// RegisterTail allocates a generic-tail composite: head members followed by a
// last member that may be dynamically sized.
func (in *Interner) RegisterTail(name string) TypeID {
	return in.registerComposite(KindTail, CompositeInfo{Name: normalizeName(name)})
}

func (in *Interner) registerComposite(kind Kind, info CompositeInfo) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	info.Members = cloneMembers(info.Members)
	in.composites = append(in.composites, info)
	slot := slotOf(len(in.composites), "composite")
	id := in.internRawLocked(Type{Kind: kind, Payload: slot})
	in.bindNameLocked(info.Name, id)
	return id
}

// SetCompositeMembers stores the resolved members for a composite or tuple.
func (in *Interner) SetCompositeMembers(typeID TypeID, members []Member) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.compositeInfoLocked(typeID)
	if info == nil {
		return
	}
	info.Members = cloneMembers(members)
}

// SetTail stores the head members and the tail of a generic-tail composite.
func (in *Interner) SetTail(typeID TypeID, head []Member, tail TypeID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.compositeInfoLocked(typeID)
	if info == nil {
		return
	}
	info.Members = cloneMembers(head)
	info.Tail = tail
}

// CompositeInfo returns a snapshot of the metadata for a composite, tuple or tail.
func (in *Interner) CompositeInfo(typeID TypeID) (CompositeInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.compositeInfoLocked(typeID)
	if info == nil {
		return CompositeInfo{}, false
	}
	return *info, true
}

// RegisterAlias allocates a nominal alias slot and returns its TypeID.
func (in *Interner) RegisterAlias(name string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	name = normalizeName(name)
	in.aliases = append(in.aliases, AliasInfo{Name: name})
	id := in.internRawLocked(Type{Kind: KindAlias, Payload: slotOf(len(in.aliases), "alias")})
	in.bindNameLocked(name, id)
	return id
}

// SetAliasTarget sets the aliased target type for the provided alias TypeID.
func (in *Interner) SetAliasTarget(typeID, target TypeID) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.aliasInfoLocked(typeID)
	if info == nil {
		return
	}
	info.Target = target
}

// AliasTarget retrieves the aliased target type.
func (in *Interner) AliasTarget(typeID TypeID) (TypeID, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.aliasInfoLocked(typeID)
	if info == nil || info.Target == NoTypeID {
		return NoTypeID, false
	}
	return info.Target, true
}

// RegisterPolymorphic allocates an unsized value erased behind the named interface.
func (in *Interner) RegisterPolymorphic(iface string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	iface = normalizeName(iface)
	in.polys = append(in.polys, PolymorphicInfo{Interface: iface})
	return in.internRawLocked(Type{Kind: KindPolymorphic, Payload: slotOf(len(in.polys), "polymorphic")})
}

func (in *Interner) compositeInfoLocked(typeID TypeID) *CompositeInfo {
	if typeID == NoTypeID || int(typeID) >= len(in.types) {
		return nil
	}
	tt := in.types[typeID]
	if tt.Kind != KindComposite && tt.Kind != KindTuple && tt.Kind != KindTail {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.composites) {
		return nil
	}
	return &in.composites[tt.Payload]
}

func (in *Interner) aliasInfoLocked(typeID TypeID) *AliasInfo {
	if typeID == NoTypeID || int(typeID) >= len(in.types) {
		return nil
	}
	tt := in.types[typeID]
	if tt.Kind != KindAlias {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.aliases) {
		return nil
	}
	return &in.aliases[tt.Payload]
}

func cloneMembers(members []Member) []Member {
	if len(members) == 0 {
		return nil
	}
	out := slices.Clone(members)
	for i := range out {
		out[i].Name = normalizeName(out[i].Name)
	}
	return out
}
