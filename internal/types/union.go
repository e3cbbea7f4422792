package types

import (
	"fmt"
	"slices"
)

// TagStrategy constrains how a tagged union encodes its active variant.
type TagStrategy uint8

const (
	// TagAuto picks niche encoding when possible and an explicit discriminant otherwise.
	TagAuto TagStrategy = iota
	// TagNiche demands niche encoding and fails when no niche is available.
	TagNiche
	// TagExplicit always stores a discriminant field.
	TagExplicit
)

func (s TagStrategy) String() string {
	switch s {
	case TagAuto:
		return "auto"
	case TagNiche:
		return "niche"
	case TagExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("TagStrategy(%d)", s)
	}
}

// ParseTagStrategy converts a manifest spelling into a TagStrategy.
func ParseTagStrategy(s string) (TagStrategy, error) {
	switch s {
	case "", "auto":
		return TagAuto, nil
	case "niche":
		return TagNiche, nil
	case "explicit":
		return TagExplicit, nil
	default:
		return TagAuto, fmt.Errorf("invalid tag strategy %q (expected auto|niche|explicit)", s)
	}
}

// TagRepr carries representation requests for a tagged union.
type TagRepr struct {
	Width    uint8 // explicit discriminant width in bytes, 0 for the profile default
	Strategy TagStrategy
}

// Variant describes a single alternative of a tagged union.
type Variant struct {
	Name    string
	Payload TypeID // NoTypeID for an empty variant
}

// HasPayload reports whether the variant carries data.
func (v Variant) HasPayload() bool {
	return v.Payload != NoTypeID
}

// UnionInfo stores metadata for a tagged union type.
type UnionInfo struct {
	Name     string
	Variants []Variant
	Repr     TagRepr
}

// RegisterUnion allocates a nominal tagged-union slot and returns its TypeID.
func (in *Interner) RegisterUnion(name string) TypeID {
	in.mu.Lock()
	defer in.mu.Unlock()
	name = normalizeName(name)
	in.unions = append(in.unions, UnionInfo{Name: name})
	id := in.internRawLocked(Type{Kind: KindUnion, Payload: slotOf(len(in.unions), "union")})
	in.bindNameLocked(name, id)
	return id
}

// SetUnionVariants stores the resolved variants for the union type.
func (in *Interner) SetUnionVariants(typeID TypeID, variants []Variant) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.unionInfoLocked(typeID)
	if info == nil {
		return
	}
	info.Variants = slices.Clone(variants)
	for i := range info.Variants {
		info.Variants[i].Name = normalizeName(info.Variants[i].Name)
	}
}

// SetUnionRepr stores representation requests for the union type.
func (in *Interner) SetUnionRepr(typeID TypeID, repr TagRepr) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.unionInfoLocked(typeID)
	if info == nil {
		return
	}
	info.Repr = repr
}

// UnionInfo returns a snapshot of the metadata for the provided union TypeID.
func (in *Interner) UnionInfo(typeID TypeID) (UnionInfo, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.unionInfoLocked(typeID)
	if info == nil {
		return UnionInfo{}, false
	}
	return *info, true
}

func (in *Interner) unionInfoLocked(typeID TypeID) *UnionInfo {
	if typeID == NoTypeID || int(typeID) >= len(in.types) {
		return nil
	}
	tt := in.types[typeID]
	if tt.Kind != KindUnion {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.unions) {
		return nil
	}
	return &in.unions[tt.Payload]
}
