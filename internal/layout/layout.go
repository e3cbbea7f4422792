package layout

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"memlayout/internal/trace"
	"memlayout/internal/types"
)

// Policy selects how composite members are placed.
type Policy uint8

const (
	// PolicyOptimized may reorder members to minimize size.
	PolicyOptimized Policy = iota
	// PolicyFixed keeps declaration order and matches the platform C ABI.
	PolicyFixed
)

func (p Policy) String() string {
	switch p {
	case PolicyOptimized:
		return "optimized"
	case PolicyFixed:
		return "fixed"
	default:
		return fmt.Sprintf("Policy(%d)", p)
	}
}

// ParsePolicy converts a flag or manifest spelling into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "optimized", "opt", "rust":
		return PolicyOptimized, nil
	case "fixed", "c", "interop":
		return PolicyFixed, nil
	default:
		return PolicyOptimized, fmt.Errorf("invalid layout policy %q (expected optimized|fixed)", s)
	}
}

// Encoding says how a tagged union identifies its active variant.
type Encoding uint8

const (
	EncodingNone     Encoding = iota // no tag: zero or one variant, or not a union
	EncodingExplicit                 // hidden discriminant field
	EncodingNiche                    // empty variants live in a payload niche
)

func (e Encoding) String() string {
	switch e {
	case EncodingNone:
		return "none"
	case EncodingExplicit:
		return "explicit"
	case EncodingNiche:
		return "niche"
	default:
		return fmt.Sprintf("Encoding(%d)", e)
	}
}

// MemberLayout is the placement of one member, reported in declaration order.
type MemberLayout struct {
	Name   string
	Index  int // declaration index
	Type   types.TypeID
	Offset uint64
	Size   uint64
	Align  uint64
}

// Discriminant locates the hidden tag field of an explicitly tagged union.
type Discriminant struct {
	Offset uint64
	Width  uint64
}

// VariantTag records how one union variant is identified.
type VariantTag struct {
	Name    string
	Index   int
	Payload types.TypeID // NoTypeID for an empty variant
	// Value is the discriminant or niche value written for the variant.
	// It is meaningless when Tagged is false (the dataful variant of a
	// niche-encoded union, or the only variant of an untagged union).
	Value  uint64
	Tagged bool
	// PayloadOffset is where the variant's payload starts under explicit
	// encoding. Payloads with different alignments start at different offsets.
	PayloadOffset uint64
}

// Result is the layout of a type under one policy.
type Result struct {
	Type   types.TypeID
	Kind   types.Kind
	Policy Policy

	Size  uint64
	Align uint64

	// Members are reported by declaration index; Order lists declaration
	// indices in physical order.
	Members []MemberLayout
	Order   []int
	Padding uint64

	Packed        bool
	AlignOverride uint64

	// Tagged unions.
	Encoding      Encoding
	Discriminant  *Discriminant
	TagNiche      *Niche // niche holding the empty variants when Encoding is EncodingNiche
	Variants []VariantTag
	// PayloadOffset is the largest per-variant payload offset.
	PayloadOffset uint64

	// Niche is the best free bit-pattern range left for an enclosing union.
	Niche       *Niche
	Uninhabited bool
}

// MemberByName returns the member with the given declared name.
func (r Result) MemberByName(name string) (MemberLayout, bool) {
	for _, m := range r.Members {
		if m.Name == name {
			return m, true
		}
	}
	return MemberLayout{}, false
}

func (r Result) clone() Result {
	r.Members = slices.Clone(r.Members)
	r.Order = slices.Clone(r.Order)
	r.Variants = slices.Clone(r.Variants)
	if r.Discriminant != nil {
		d := *r.Discriminant
		r.Discriminant = &d
	}
	if r.TagNiche != nil {
		n := *r.TagNiche
		r.TagNiche = &n
	}
	if r.Niche != nil {
		n := *r.Niche
		r.Niche = &n
	}
	return r
}

// shape is the engine's internal view of a type: its Result plus whether the
// type is dynamically sized and, if so, which pointer metadata it needs.
type shape struct {
	res     Result
	unsized bool
	meta    types.PointerKind
}

// Engine computes memory layout for types of one interner under one Profile.
// It is safe for concurrent use; results are memoized per (type, policy).
type Engine struct {
	Profile Profile
	Types   *types.Interner

	resolver Resolver
	tracer   trace.Tracer
	cache    *cache

	computed atomic.Uint64
	hits     atomic.Uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer routes engine trace events to t.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// New creates a new Engine for the specified profile.
func New(profile Profile, typesIn *types.Interner, opts ...Option) *Engine {
	e := &Engine{
		Profile:  profile,
		Types:    typesIn,
		resolver: Resolver{Profile: profile},
		tracer:   trace.Nop,
		cache:    newCache(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute is a one-shot query without a long-lived engine.
func Compute(typesIn *types.Interner, id types.TypeID, policy Policy, profile Profile) (Result, error) {
	return New(profile, typesIn).Layout(id, policy)
}

// Stats reports cache behaviour.
type Stats struct {
	Computed uint64 // shapes computed from scratch
	Hits     uint64 // queries answered from the cache
	Cached   int    // entries currently cached
}

// Stats returns a snapshot of cache counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Computed: e.computed.Load(),
		Hits:     e.hits.Load(),
		Cached:   e.cache.len(),
	}
}

// Layout computes and caches the layout of a type. Dynamically sized types
// have no standalone layout and yield an InvalidDstPlacement error; use
// Instantiate for a concrete value.
func (e *Engine) Layout(id types.TypeID, policy Policy) (Result, error) {
	return e.layoutFrom(id, policy, 0)
}

func (e *Engine) layoutFrom(id types.TypeID, policy Policy, parent uint64) (Result, error) {
	sh, err := e.query(id, policy, parent)
	if err != nil {
		return Result{}, asError(err)
	}
	if sh.unsized {
		return Result{}, &LayoutError{
			Kind:   LayoutErrInvalidDstPlacement,
			Type:   id,
			Label:  e.label(id),
			Detail: "dynamically sized type has no standalone size; it may only be stored behind a pointer or instantiated",
		}
	}
	return sh.res.clone(), nil
}

// SizeOf returns the size of a type in bytes.
func (e *Engine) SizeOf(id types.TypeID, policy Policy) (uint64, error) {
	l, err := e.Layout(id, policy)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *Engine) AlignOf(id types.TypeID, policy Policy) (uint64, error) {
	l, err := e.Layout(id, policy)
	return l.Align, err
}

// MemberOffset returns the byte offset of the named member.
func (e *Engine) MemberOffset(id types.TypeID, policy Policy, member string) (uint64, error) {
	l, err := e.Layout(id, policy)
	if err != nil {
		return 0, err
	}
	m, ok := l.MemberByName(member)
	if !ok {
		return 0, fmt.Errorf("%s has no member %q", e.label(id), member)
	}
	return m.Offset, nil
}

// query is the entry point shared by every public operation: it rejects
// member cycles on the path from id, then resolves through the cache.
func (e *Engine) query(id types.TypeID, policy Policy, parent uint64) (*shape, *LayoutError) {
	if err := e.ready(id); err != nil {
		return nil, err
	}
	span := trace.Begin(e.tracer, trace.ScopeQuery, e.spanName("layout", id), parent)
	span.WithExtra("policy", policy.String())
	if err := e.checkAcyclic(id); err != nil {
		span.Fail(err)
		return nil, err
	}
	sh, err := e.resolve(id, policy, span.ID())
	if err != nil {
		span.Fail(err)
		return nil, err
	}
	span.EndLayout(sh.res.Size, sh.res.Align)
	return sh, nil
}

func (e *Engine) ready(id types.TypeID) *LayoutError {
	if e == nil || e.Types == nil {
		return &LayoutError{Kind: LayoutErrUnknownType, Type: id, Detail: "engine has no type interner"}
	}
	if e.Profile.IsZero() {
		return &LayoutError{Kind: LayoutErrUnsupportedProfile, Type: id, Detail: "engine has no target profile"}
	}
	if _, ok := e.Types.Lookup(id); !ok {
		return &LayoutError{Kind: LayoutErrUnknownType, Type: id}
	}
	return nil
}

// spanName avoids building labels when nobody listens.
func (e *Engine) spanName(verb string, id types.TypeID) string {
	if !e.tracer.Enabled() {
		return verb
	}
	return verb + " " + e.label(id)
}

func (e *Engine) label(id types.TypeID) string {
	if e == nil {
		return "?"
	}
	return types.Label(e.Types, id)
}
