package manifest_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"memlayout/internal/layout"
	"memlayout/internal/manifest"
	"memlayout/internal/types"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "types.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func mustLoad(t *testing.T, content string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load(writeManifest(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func layoutOf(t *testing.T, m *manifest.Manifest, name string, policy layout.Policy) layout.Result {
	t.Helper()
	id, ok := m.Lookup(name)
	if !ok {
		t.Fatalf("type %q not declared", name)
	}
	res, err := layout.New(m.Profile, m.Types).Layout(id, policy)
	if err != nil {
		t.Fatalf("Layout(%s): %v", name, err)
	}
	return res
}

const scenarios = `
[[type]]
name = "S"
kind = "composite"
members = [
  { name = "a", type = "u8" },
  { name = "b", type = "u32" },
  { name = "c", type = "u16" },
]

[[type]]
name = "Option"
kind = "union"
variants = [
  { name = "None" },
  { name = "Some", type = "&u32" },
]

[[type]]
name = "Slice"
kind = "alias"
target = "&[u8]"

[[type]]
name = "Packet"
kind = "tail"
members = [{ name = "len", type = "u32" }]
tail = "[u8]"

[[type]]
name = "Pair"
kind = "tuple"
elems = ["u8", "(u16, [u8; 3])"]
`

func TestLoadScenarios(t *testing.T) {
	m := mustLoad(t, scenarios)
	if m.HasProfile || m.Profile.Name != layout.X86_64LinuxGNU().Name {
		t.Fatalf("default profile expected, got %q (has=%v)", m.Profile.Name, m.HasProfile)
	}
	if len(m.Decls) != 5 || m.Decls[0].Name != "S" || m.Decls[4].Kind != "tuple" {
		t.Fatalf("unexpected decls: %+v", m.Decls)
	}

	if res := layoutOf(t, m, "S", layout.PolicyFixed); res.Size != 12 {
		t.Fatalf("fixed S: size=%d, want 12", res.Size)
	}
	if res := layoutOf(t, m, "S", layout.PolicyOptimized); res.Size != 8 {
		t.Fatalf("optimized S: size=%d, want 8", res.Size)
	}
	opt := layoutOf(t, m, "Option", layout.PolicyOptimized)
	if opt.Size != 8 || opt.Encoding != layout.EncodingNiche {
		t.Fatalf("Option<&u32>: size=%d enc=%s", opt.Size, opt.Encoding)
	}
	if res := layoutOf(t, m, "Slice", layout.PolicyFixed); res.Size != 16 {
		t.Fatalf("&[u8]: size=%d, want 16", res.Size)
	}
	if res := layoutOf(t, m, "Pair", layout.PolicyFixed); res.Size != 8 {
		t.Fatalf("Pair: size=%d, want 8", res.Size)
	}

	id, _ := m.Lookup("Packet")
	_, err := layout.New(m.Profile, m.Types).Layout(id, layout.PolicyFixed)
	if !errors.Is(err, layout.ErrInvalidDstPlacement) {
		t.Fatalf("standalone Packet should be rejected, got %v", err)
	}
}

func TestLoadForwardReferencesAndCycles(t *testing.T) {
	m := mustLoad(t, `
[[type]]
name = "List"
kind = "composite"
members = [{ name = "head", type = "u32" }, { name = "next", type = "*List" }]

[[type]]
name = "A"
kind = "composite"
members = [{ name = "b", type = "B" }]

[[type]]
name = "B"
kind = "composite"
members = [{ name = "a", type = "A" }]
`)
	if res := layoutOf(t, m, "List", layout.PolicyFixed); res.Size != 16 {
		t.Fatalf("List: size=%d, want 16", res.Size)
	}
	id, _ := m.Lookup("A")
	_, err := layout.New(m.Profile, m.Types).Layout(id, layout.PolicyFixed)
	var lerr *layout.LayoutError
	if !errors.As(err, &lerr) || lerr.Kind != layout.LayoutErrCyclic {
		t.Fatalf("A <-> B should be cyclic, got %v", err)
	}
}

func TestLoadProfile(t *testing.T) {
	m := mustLoad(t, `
[profile]
preset = "x86_64-linux-gnu"
name = "tiny-disc"
default_discriminant_width = 1
scalar_align = { "8" = 4 }

[[type]]
name = "E"
kind = "enum"
variants = [{ name = "A" }, { name = "B", type = "u64" }]
`)
	if !m.HasProfile || m.Profile.Name != "tiny-disc" || m.Profile.DefaultDiscriminantWidth != 1 {
		t.Fatalf("profile not applied: %+v", m.Profile)
	}
	if a, _ := m.Profile.ScalarAlign(8); a != 4 {
		t.Fatalf("scalar_align override: got %d", a)
	}
	res := layoutOf(t, m, "E", layout.PolicyFixed)
	if res.Discriminant == nil || res.Discriminant.Width != 1 || res.PayloadOffset != 4 || res.Size != 12 {
		t.Fatalf("E under tiny-disc: %+v", res)
	}
}

func TestLoadScalarsAndAttrs(t *testing.T) {
	m := mustLoad(t, `
[[type]]
name = "Level"
kind = "scalar"
width = 1
range = [0, 3]

[[type]]
name = "Hdr"
kind = "struct"
packed = true
members = [{ name = "k", type = "u8" }, { name = "v", type = "u32" }]

[[type]]
name = "Wide"
kind = "struct"
align = 16
members = [{ name = "v", type = "u32" }]

[[type]]
name = "Marker"
kind = "zst"
align = 8

[[type]]
name = "Maybe"
kind = "union"
variants = [{ name = "No" }, { name = "Yes", type = "Level" }]
`)
	if res := layoutOf(t, m, "Hdr", layout.PolicyFixed); res.Size != 5 || res.Align != 1 {
		t.Fatalf("packed Hdr: %d/%d", res.Size, res.Align)
	}
	if res := layoutOf(t, m, "Wide", layout.PolicyFixed); res.Size != 16 || res.Align != 16 {
		t.Fatalf("Wide: %d/%d", res.Size, res.Align)
	}
	if res := layoutOf(t, m, "Marker", layout.PolicyFixed); res.Size != 0 || res.Align != 8 {
		t.Fatalf("Marker: %d/%d", res.Size, res.Align)
	}
	if res := layoutOf(t, m, "Maybe", layout.PolicyOptimized); res.Size != 1 || res.Encoding != layout.EncodingNiche {
		t.Fatalf("Maybe<Level>: size=%d enc=%s", res.Size, res.Encoding)
	}
}

func TestLookupNormalizesNames(t *testing.T) {
	m := mustLoad(t, "[[type]]\nname = \"Caf\u00e9\"\nkind = \"alias\"\ntarget = \"u8\"\n")
	if _, ok := m.Lookup("Cafe\u0301"); !ok {
		t.Fatalf("composed and decomposed names should match")
	}
	id, _ := m.Lookup("Caf\u00e9")
	if got := types.Label(m.Types, id); got == "" {
		t.Fatalf("empty label")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown kind", "[[type]]\nname = \"X\"\nkind = \"blob\"\n", "unknown kind"},
		{"missing kind", "[[type]]\nname = \"X\"\n", "missing kind"},
		{"duplicate", "[[type]]\nname = \"X\"\nkind = \"zst\"\n[[type]]\nname = \"X\"\nkind = \"zst\"\n", "declared twice"},
		{"builtin name", "[[type]]\nname = \"u8\"\nkind = \"zst\"\n", "builtin"},
		{"unknown key", "[[type]]\nname = \"X\"\nkind = \"zst\"\ncolour = 1\n", "unknown keys"},
		{"unknown ref", "[[type]]\nname = \"X\"\nkind = \"alias\"\ntarget = \"Nope\"\n", "unknown type"},
		{"bad preset", "[profile]\npreset = \"pdp11\"\n", "unknown preset"},
		{"bad profile", "[profile]\npreset = \"avr\"\npointer_width = 3\n", "unsupported"},
		{"bad width", "[[type]]\nname = \"X\"\nkind = \"scalar\"\nwidth = 3\n", "unsupported width"},
		{"bad range", "[[type]]\nname = \"X\"\nkind = \"scalar\"\nwidth = 1\nrange = [0, 300]\n", "does not fit"},
		{"bad tag", "[[type]]\nname = \"X\"\nkind = \"union\"\ntag = \"magic\"\n", "magic"},
		{"bad array", "[[type]]\nname = \"X\"\nkind = \"alias\"\ntarget = \"[u8; many]\"\n", "array length"},
		{"duplicate member", "[[type]]\nname = \"X\"\nkind = \"struct\"\nmembers = [{ name = \"a\", type = \"u8\" }, { name = \"a\", type = \"u8\" }]\n", "declared twice"},
		{"not toml", "[[type]\n", "failed to parse TOML"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeManifest(t, tc.content)
			_, err := manifest.Load(path)
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(tc.want)) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
			if !strings.HasPrefix(err.Error(), path) {
				t.Fatalf("error should be prefixed with the file path: %v", err)
			}
		})
	}
}

func TestParseTypeRefs(t *testing.T) {
	m, err := manifest.Parse(`
[[type]]
name = "Refs"
kind = "struct"
members = [
  { name = "thin", type = "&u8" },
  { name = "raw", type = "*u8" },
  { name = "seq", type = "&[u16]" },
  { name = "obj", type = "&dyn Shape" },
  { name = "arr", type = "[(u8, u16); 2]" },
  { name = "unit", type = "()" },
  { name = "nz", type = "nonzero_u32" },
]
`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := layoutOf(t, m, "Refs", layout.PolicyFixed)
	sizes := map[string]uint64{"thin": 8, "raw": 8, "seq": 16, "obj": 16, "arr": 8, "unit": 0, "nz": 4}
	for name, want := range sizes {
		ml, ok := res.MemberByName(name)
		if !ok || ml.Size != want {
			t.Fatalf("member %s: size=%d ok=%v, want %d", name, ml.Size, ok, want)
		}
	}
}
