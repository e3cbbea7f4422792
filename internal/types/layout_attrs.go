package types //nolint:revive

// LayoutAttrs describes layout-affecting attributes applied to a composite declaration.
//
// Attributes are stored as declared; the layout engine rejects invalid combinations.
type LayoutAttrs struct {
	Packed        bool
	AlignOverride uint64 // 0 when no explicit alignment is declared
}

// IsZero reports whether no attribute is set.
func (a LayoutAttrs) IsZero() bool {
	return !a.Packed && a.AlignOverride == 0
}

// LayoutAttrs returns the layout-affecting attributes recorded for the composite.
func (in *Interner) LayoutAttrs(id TypeID) (LayoutAttrs, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	info := in.compositeInfoLocked(id)
	if info == nil || info.Attrs.IsZero() {
		return LayoutAttrs{}, false
	}
	return info.Attrs, true
}

// SetLayoutAttrs stores layout-affecting attributes for the composite.
func (in *Interner) SetLayoutAttrs(id TypeID, attrs LayoutAttrs) {
	in.mu.Lock()
	defer in.mu.Unlock()
	info := in.compositeInfoLocked(id)
	if info == nil {
		return
	}
	info.Attrs = attrs
}
