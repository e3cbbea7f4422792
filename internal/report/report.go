// Package report turns engine results into serializable summaries and renders
// them as text, JSON, or msgpack.
package report

import (
	"errors"

	"memlayout/internal/layout"
	"memlayout/internal/types"
)

// ScalarAlign is one row of a profile's alignment table.
type ScalarAlign struct {
	Width uint64 `json:"width"`
	Align uint64 `json:"align"`
}

// Profile describes a target profile.
type Profile struct {
	Name                     string        `json:"name"`
	PointerWidth             uint64        `json:"pointer_width"`
	DefaultDiscriminantWidth uint64        `json:"default_discriminant_width"`
	ScalarAlign              []ScalarAlign `json:"scalar_align"`
}

// Member is the placement of one member.
type Member struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
	Align  uint64 `json:"align"`
}

// Variant is one variant of a tagged union.
type Variant struct {
	Name    string `json:"name"`
	Payload string `json:"payload,omitempty"`
	Value   uint64 `json:"value"`
	Tagged  bool   `json:"tagged"`
	// PayloadOffset is set for payload-carrying variants of explicitly tagged unions.
	PayloadOffset uint64 `json:"payload_offset,omitempty"`
}

// Niche is a free bit-pattern range.
type Niche struct {
	Offset    uint64 `json:"offset"`
	Width     uint64 `json:"width"`
	Start     uint64 `json:"valid_start"`
	End       uint64 `json:"valid_end"`
	Available uint64 `json:"available"`
}

// Discriminant locates an explicit tag.
type Discriminant struct {
	Offset uint64 `json:"offset"`
	Width  uint64 `json:"width"`
}

// Type is the layout of one declared type under one policy, or the reason it
// has none.
type Type struct {
	Name          string        `json:"name"`
	Label         string        `json:"label"`
	Kind          string        `json:"kind"`
	Policy        string        `json:"policy"`
	Size          uint64        `json:"size"`
	Align         uint64        `json:"align"`
	Padding       uint64        `json:"padding"`
	Packed        bool          `json:"packed,omitempty"`
	Members       []Member      `json:"members,omitempty"`
	Order         []int         `json:"order,omitempty"`
	Encoding      string        `json:"encoding,omitempty"`
	Discriminant  *Discriminant `json:"discriminant,omitempty"`
	PayloadOffset uint64        `json:"payload_offset,omitempty"`
	Variants      []Variant     `json:"variants,omitempty"`
	Niche         *Niche        `json:"niche,omitempty"`
	Uninhabited   bool          `json:"uninhabited,omitempty"`
	Error         string        `json:"error,omitempty"`
	ErrorKind     string        `json:"error_kind,omitempty"`
}

// Report is the rendered outcome of a layout run.
type Report struct {
	Source  string  `json:"source,omitempty"`
	Profile Profile `json:"profile"`
	Types   []Type  `json:"types"`
	Errors  int     `json:"errors"`
}

// New starts an empty report for source laid out against profile.
func New(source string, profile layout.Profile) *Report {
	return &Report{Source: source, Profile: DescribeProfile(profile), Types: make([]Type, 0, 16)}
}

// DescribeProfile flattens a profile into its serializable form.
func DescribeProfile(p layout.Profile) Profile {
	out := Profile{
		Name:                     p.Name,
		PointerWidth:             p.PointerWidth,
		DefaultDiscriminantWidth: p.DefaultDiscriminantWidth,
	}
	for _, w := range p.Widths() {
		align, _ := p.ScalarAlign(w)
		out.ScalarAlign = append(out.ScalarAlign, ScalarAlign{Width: w, Align: align})
	}
	return out
}

// Add appends the outcome of laying out the type declared as name.
func (r *Report) Add(in *types.Interner, name string, policy layout.Policy, out layout.Outcome) {
	entry := Type{
		Name:   name,
		Label:  types.Label(in, out.Type),
		Policy: policy.String(),
	}
	if out.Err != nil {
		r.Errors++
		entry.Error = out.Err.Error()
		var lerr *layout.LayoutError
		if errors.As(out.Err, &lerr) {
			entry.ErrorKind = lerr.Kind.String()
		}
		if tt, ok := in.Lookup(out.Type); ok {
			entry.Kind = tt.Kind.String()
		}
		r.Types = append(r.Types, entry)
		return
	}
	res := out.Result
	if res.Type != types.NoTypeID {
		entry.Label = types.Label(in, res.Type)
	}
	entry.Kind = res.Kind.String()
	entry.Size = res.Size
	entry.Align = res.Align
	entry.Padding = res.Padding
	entry.Packed = res.Packed
	entry.Uninhabited = res.Uninhabited
	if len(res.Members) > 0 {
		entry.Members = make([]Member, len(res.Members))
		for i, m := range res.Members {
			entry.Members[i] = Member{Name: m.Name, Type: types.Label(in, m.Type), Offset: m.Offset, Size: m.Size, Align: m.Align}
		}
		entry.Order = append([]int(nil), res.Order...)
	}
	if res.Kind == types.KindUnion {
		entry.Encoding = res.Encoding.String()
		entry.PayloadOffset = res.PayloadOffset
		if res.Discriminant != nil {
			entry.Discriminant = &Discriminant{Offset: res.Discriminant.Offset, Width: res.Discriminant.Width}
		}
		entry.Variants = make([]Variant, len(res.Variants))
		for i, v := range res.Variants {
			entry.Variants[i] = Variant{Name: v.Name, Value: v.Value, Tagged: v.Tagged}
			if v.Payload != types.NoTypeID {
				entry.Variants[i].Payload = types.Label(in, v.Payload)
				if res.Encoding == layout.EncodingExplicit {
					entry.Variants[i].PayloadOffset = v.PayloadOffset
				}
			}
		}
	}
	if res.Niche != nil {
		entry.Niche = describeNiche(*res.Niche)
	}
	r.Types = append(r.Types, entry)
}

func describeNiche(n layout.Niche) *Niche {
	return &Niche{Offset: n.Offset, Width: n.Width, Start: n.Valid.Start, End: n.Valid.End, Available: n.Available()}
}
