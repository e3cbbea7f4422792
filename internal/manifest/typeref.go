package manifest

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"memlayout/internal/types"
)

// resolveRef turns a type reference into a TypeID. References are a declared
// or builtin name, or one of the shorthands
//
//	&T  *T  &[T]  &dyn I  [T; N]  [T]  (A, B)  dyn I
//
// where & is a non-null pointer and * a nullable one.
func (b *builder) resolveRef(ref string) (types.TypeID, error) {
	s := strings.TrimSpace(ref)
	if s == "" {
		return types.NoTypeID, fmt.Errorf("empty type reference")
	}
	switch {
	case s[0] == '&' || s[0] == '*':
		return b.pointerRef(s[1:], s[0] == '*')
	case s[0] == '[':
		if !strings.HasSuffix(s, "]") {
			return types.NoTypeID, fmt.Errorf("unterminated %q", s)
		}
		inner := s[1 : len(s)-1]
		if elem, count, ok := splitTop(inner, ';'); ok {
			elemID, err := b.resolveRef(elem)
			if err != nil {
				return types.NoTypeID, err
			}
			n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
			if err != nil {
				return types.NoTypeID, fmt.Errorf("array length in %q: %w", s, err)
			}
			return b.in.Intern(types.MakeArray(elemID, n)), nil
		}
		elemID, err := b.resolveRef(inner)
		if err != nil {
			return types.NoTypeID, err
		}
		return b.in.Intern(types.MakeSequence(elemID)), nil
	case s[0] == '(':
		if !strings.HasSuffix(s, ")") {
			return types.NoTypeID, fmt.Errorf("unterminated %q", s)
		}
		inner := strings.TrimSpace(s[1 : len(s)-1])
		if inner == "" {
			return b.in.Builtins().Unit, nil
		}
		parts := splitAll(inner, ',')
		elems := make([]types.TypeID, 0, len(parts))
		for _, p := range parts {
			if strings.TrimSpace(p) == "" {
				continue
			}
			id, err := b.resolveRef(p)
			if err != nil {
				return types.NoTypeID, err
			}
			elems = append(elems, id)
		}
		return b.in.RegisterTuple(elems), nil
	case strings.HasPrefix(s, "dyn "):
		return b.polymorphic(norm.NFC.String(strings.TrimSpace(s[len("dyn "):]))), nil
	}

	name := norm.NFC.String(s)
	if id, ok := builtin(b.in, name); ok {
		return id, nil
	}
	if id, ok := b.names[name]; ok {
		return id, nil
	}
	return types.NoTypeID, fmt.Errorf("unknown type %q", s)
}

func (b *builder) pointerRef(rest string, nullable bool) (types.TypeID, error) {
	rest = strings.TrimSpace(rest)
	kind := types.PtrThin
	var (
		target types.TypeID
		err    error
	)
	switch {
	case strings.HasPrefix(rest, "[") && strings.HasSuffix(rest, "]") && !containsTop(rest[1:len(rest)-1], ';'):
		kind = types.PtrSequence
		target, err = b.resolveRef(rest)
	case strings.HasPrefix(rest, "dyn "):
		kind = types.PtrPolymorphic
		target, err = b.resolveRef(rest)
	default:
		target, err = b.resolveRef(rest)
	}
	if err != nil {
		return types.NoTypeID, err
	}
	if nullable {
		return b.in.Intern(types.MakeRawPointer(target, kind)), nil
	}
	return b.in.Intern(types.MakePointer(target, kind)), nil
}

// splitTop splits s at the first sep outside brackets and parentheses.
func splitTop(s string, sep byte) (string, string, bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

func containsTop(s string, sep byte) bool {
	_, _, ok := splitTop(s, sep)
	return ok
}

func splitAll(s string, sep byte) []string {
	var out []string
	for {
		head, tail, ok := splitTop(s, sep)
		out = append(out, head)
		if !ok {
			return out
		}
		s = tail
	}
}

// builtin resolves the primitive type names.
func builtin(in *types.Interner, name string) (types.TypeID, bool) {
	bt := in.Builtins()
	switch name {
	case "u8", "i8":
		return bt.U8, true
	case "u16", "i16":
		return bt.U16, true
	case "u32", "i32", "f32":
		return bt.U32, true
	case "u64", "i64", "f64":
		return bt.U64, true
	case "u128", "i128":
		return bt.U128, true
	case "usize", "isize":
		return bt.Usize, true
	case "bool":
		return bt.Bool, true
	case "char":
		return bt.Char, true
	case "unit", "()":
		return bt.Unit, true
	case "never", "!":
		return bt.Never, true
	}
	if bitsStr, ok := strings.CutPrefix(name, "nonzero_u"); ok {
		switch bitsStr {
		case "8":
			return in.Intern(types.MakeNonZero(1)), true
		case "16":
			return in.Intern(types.MakeNonZero(2)), true
		case "32":
			return in.Intern(types.MakeNonZero(4)), true
		case "64":
			return in.Intern(types.MakeNonZero(8)), true
		}
	}
	return types.NoTypeID, false
}
