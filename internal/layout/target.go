package layout

import (
	"fmt"
	"math/bits"
	"slices"
	"sort"
)

// Profile describes the deployment platform: pointer width, the scalar
// alignment table and the default discriminant width.
//
// A Profile is immutable once constructed; copies share the alignment table.
type Profile struct {
	Name                     string
	PointerWidth             uint64 // bytes
	DefaultDiscriminantWidth uint64 // bytes

	scalarAlign map[uint64]uint64
}

// NewProfile validates and constructs a Profile. The alignment table is copied.
func NewProfile(name string, pointerWidth uint64, scalarAlign map[uint64]uint64, discriminantWidth uint64) (Profile, error) {
	if len(scalarAlign) == 0 {
		return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Detail: fmt.Sprintf("profile %q has an empty scalar alignment table", name)}
	}
	table := make(map[uint64]uint64, len(scalarAlign))
	for width, align := range scalarAlign {
		if width == 0 {
			return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Detail: fmt.Sprintf("profile %q declares a zero scalar width", name)}
		}
		if !isPowerOfTwo(align) {
			return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: width, Detail: fmt.Sprintf("profile %q: alignment %d of %d-byte scalars is not a power of two", name, align, width)}
		}
		if width%align != 0 {
			return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: width, Detail: fmt.Sprintf("profile %q: alignment %d does not divide the %d-byte scalar width", name, align, width)}
		}
		table[width] = align
	}
	if _, ok := table[pointerWidth]; !ok {
		return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: pointerWidth, Detail: fmt.Sprintf("profile %q: pointer width %d has no alignment entry", name, pointerWidth)}
	}
	if _, ok := table[discriminantWidth]; !ok || discriminantWidth > 8 {
		return Profile{}, &LayoutError{Kind: LayoutErrUnsupportedProfile, Width: discriminantWidth, Detail: fmt.Sprintf("profile %q: default discriminant width %d is not a storable width", name, discriminantWidth)}
	}
	return Profile{
		Name:                     name,
		PointerWidth:             pointerWidth,
		DefaultDiscriminantWidth: discriminantWidth,
		scalarAlign:              table,
	}, nil
}

func mustProfile(name string, pointerWidth uint64, scalarAlign map[uint64]uint64, discriminantWidth uint64) Profile {
	p, err := NewProfile(name, pointerWidth, scalarAlign, discriminantWidth)
	if err != nil {
		panic(err)
	}
	return p
}

// ScalarAlign returns the alignment of width-byte scalars.
func (p Profile) ScalarAlign(width uint64) (uint64, bool) {
	align, ok := p.scalarAlign[width]
	return align, ok
}

// Widths returns the scalar widths present in the alignment table, ascending.
func (p Profile) Widths() []uint64 {
	out := make([]uint64, 0, len(p.scalarAlign))
	for w := range p.scalarAlign {
		out = append(out, w)
	}
	slices.Sort(out)
	return out
}

// IsZero reports whether the profile was never constructed.
func (p Profile) IsZero() bool {
	return p.scalarAlign == nil
}

// X86_64LinuxGNU is the LP64 System V profile.
func X86_64LinuxGNU() Profile {
	return mustProfile("x86_64-linux-gnu", 8, map[uint64]uint64{1: 1, 2: 2, 4: 4, 8: 8, 16: 16}, 4)
}

// I686LinuxGNU is the 32-bit x86 System V profile, where 8-byte scalars are 4-byte aligned.
func I686LinuxGNU() Profile {
	return mustProfile("i686-linux-gnu", 4, map[uint64]uint64{1: 1, 2: 2, 4: 4, 8: 4, 16: 16}, 4)
}

// AArch64LinuxGNU is the 64-bit Arm profile.
func AArch64LinuxGNU() Profile {
	return mustProfile("aarch64-linux-gnu", 8, map[uint64]uint64{1: 1, 2: 2, 4: 4, 8: 8, 16: 16}, 4)
}

// Wasm32 is the 32-bit WebAssembly profile.
func Wasm32() Profile {
	return mustProfile("wasm32", 4, map[uint64]uint64{1: 1, 2: 2, 4: 4, 8: 8, 16: 16}, 4)
}

// AVR is an 8-bit microcontroller profile with byte alignment everywhere.
func AVR() Profile {
	return mustProfile("avr", 2, map[uint64]uint64{1: 1, 2: 1, 4: 1, 8: 1}, 1)
}

// Presets returns the built-in profiles sorted by name.
func Presets() []Profile {
	out := []Profile{X86_64LinuxGNU(), I686LinuxGNU(), AArch64LinuxGNU(), Wasm32(), AVR()}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupProfile returns the built-in profile with the given name.
func LookupProfile(name string) (Profile, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && bits.OnesCount64(n) == 1
}
