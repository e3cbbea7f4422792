package layout

import (
	"errors"
	"fmt"
	"strings"

	"memlayout/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrCyclic indicates a member cycle with no pointer indirection (unbounded size).
	LayoutErrCyclic LayoutErrorKind = iota + 1
	// LayoutErrInvalidDstPlacement indicates a dynamically sized type stored inline
	// outside the last member position, or sized without an instantiation.
	LayoutErrInvalidDstPlacement
	// LayoutErrUndefinedDiscriminant indicates a tag value that names no declared variant.
	LayoutErrUndefinedDiscriminant
	// LayoutErrNicheExhausted indicates niche encoding was demanded but no free bit pattern exists.
	LayoutErrNicheExhausted
	// LayoutErrUnsupportedProfile indicates the profile lacks an entry for a requested width.
	LayoutErrUnsupportedProfile
	LayoutErrSizeOverflow
	LayoutErrInvalidAttrs
	LayoutErrUnknownType
)

func (k LayoutErrorKind) String() string {
	switch k {
	case LayoutErrCyclic:
		return "cyclic layout"
	case LayoutErrInvalidDstPlacement:
		return "invalid dynamically sized placement"
	case LayoutErrUndefinedDiscriminant:
		return "undefined discriminant"
	case LayoutErrNicheExhausted:
		return "niche exhausted"
	case LayoutErrUnsupportedProfile:
		return "unsupported profile"
	case LayoutErrSizeOverflow:
		return "size overflow"
	case LayoutErrInvalidAttrs:
		return "invalid layout attributes"
	case LayoutErrUnknownType:
		return "unknown type"
	default:
		return fmt.Sprintf("LayoutErrorKind(%d)", k)
	}
}

// Sentinels matched by errors.Is against a *LayoutError of the same kind.
var (
	ErrCyclicLayout          = errors.New("cyclic layout")
	ErrInvalidDstPlacement   = errors.New("invalid dynamically sized placement")
	ErrUndefinedDiscriminant = errors.New("undefined discriminant")
	ErrNicheExhausted        = errors.New("niche exhausted")
	ErrUnsupportedProfile    = errors.New("unsupported profile")
	ErrSizeOverflow          = errors.New("size overflow")
	ErrInvalidAttrs          = errors.New("invalid layout attributes")
	ErrUnknownType           = errors.New("unknown type")
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind   LayoutErrorKind
	Type   types.TypeID
	Label  string         // human-readable type label, when known
	Cycle  []types.TypeID // for LayoutErrCyclic
	Path   []string       // labels of Cycle, when known
	Member string         // offending member or variant name
	Width  uint64         // for LayoutErrUnsupportedProfile
	Value  uint64         // for LayoutErrUndefinedDiscriminant
	Detail string
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	subject := e.subject()
	switch e.Kind {
	case LayoutErrCyclic:
		if len(e.Path) > 0 {
			return fmt.Sprintf("type has unbounded size: member cycle without pointer indirection (cycle: %s)", strings.Join(e.Path, " -> "))
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		if len(parts) == 0 {
			return fmt.Sprintf("type has unbounded size: member cycle without pointer indirection (%s)", subject)
		}
		return fmt.Sprintf("type has unbounded size: member cycle without pointer indirection (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrUnsupportedProfile:
		if e.Detail != "" {
			return fmt.Sprintf("unsupported profile: %s", e.Detail)
		}
		return fmt.Sprintf("unsupported profile: no alignment entry for %d-byte scalars (%s)", e.Width, subject)
	case LayoutErrUndefinedDiscriminant:
		if e.Detail != "" {
			return fmt.Sprintf("undefined discriminant %d for %s: %s", e.Value, subject, e.Detail)
		}
		return fmt.Sprintf("undefined discriminant %d for %s", e.Value, subject)
	}
	msg := e.Kind.String()
	if e.Member != "" {
		msg += fmt.Sprintf(" at member %q", e.Member)
	}
	msg += " (" + subject + ")"
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *LayoutError) subject() string {
	if e.Label != "" {
		return e.Label
	}
	return fmt.Sprintf("type#%d", e.Type)
}

// Is matches the sentinel error for the error's kind.
func (e *LayoutError) Is(target error) bool {
	if e == nil {
		return false
	}
	return target == e.Kind.sentinel()
}

func (k LayoutErrorKind) sentinel() error {
	switch k {
	case LayoutErrCyclic:
		return ErrCyclicLayout
	case LayoutErrInvalidDstPlacement:
		return ErrInvalidDstPlacement
	case LayoutErrUndefinedDiscriminant:
		return ErrUndefinedDiscriminant
	case LayoutErrNicheExhausted:
		return ErrNicheExhausted
	case LayoutErrUnsupportedProfile:
		return ErrUnsupportedProfile
	case LayoutErrSizeOverflow:
		return ErrSizeOverflow
	case LayoutErrInvalidAttrs:
		return ErrInvalidAttrs
	case LayoutErrUnknownType:
		return ErrUnknownType
	default:
		return nil
	}
}

// asError converts a possibly nil *LayoutError into an error without
// producing a typed-nil interface value.
func asError(err *LayoutError) error {
	if err == nil {
		return nil
	}
	return err
}
