package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"fortio.org/safecast"
	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"memlayout/internal/layout"
	"memlayout/internal/types"
)

// Decl is a declared type after loading.
type Decl struct {
	Name string
	Kind string
	ID   types.TypeID
}

// Manifest is a loaded type graph together with the profile it targets.
type Manifest struct {
	Path    string
	Profile layout.Profile
	// HasProfile reports whether the file carried a [profile] table.
	HasProfile bool
	Types      *types.Interner
	Decls      []Decl

	byName map[string]types.TypeID
}

// Load reads and builds a manifest file.
func Load(path string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	m, err := build(path, cfg, meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse builds a manifest from TOML text.
func Parse(data string) (*Manifest, error) {
	var cfg Config
	meta, err := toml.Decode(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return build("", cfg, meta)
}

// Lookup returns the type declared under name (NFC-normalized).
func (m *Manifest) Lookup(name string) (types.TypeID, bool) {
	id, ok := m.byName[norm.NFC.String(name)]
	return id, ok
}

// IDs returns the declared types in file order.
func (m *Manifest) IDs() []types.TypeID {
	out := make([]types.TypeID, len(m.Decls))
	for i, d := range m.Decls {
		out[i] = d.ID
	}
	return out
}

func build(path string, cfg Config, meta toml.MetaData) (*Manifest, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}

	m := &Manifest{
		Path:    path,
		Profile: layout.X86_64LinuxGNU(),
		Types:   types.NewInterner(),
		byName:  make(map[string]types.TypeID, len(cfg.Types)),
	}
	if cfg.Profile != nil {
		p, err := buildProfile(*cfg.Profile)
		if err != nil {
			return nil, fmt.Errorf("[profile]: %w", err)
		}
		m.Profile = p
		m.HasProfile = true
	}

	b := &builder{in: m.Types, names: m.byName}
	// Register every name first so declarations may refer to each other in any order.
	for i := range cfg.Types {
		decl := &cfg.Types[i]
		decl.Name = norm.NFC.String(strings.TrimSpace(decl.Name))
		decl.Kind = strings.ToLower(strings.TrimSpace(decl.Kind))
		if decl.Name == "" {
			return nil, fmt.Errorf("type #%d: missing name", i+1)
		}
		if _, ok := builtin(m.Types, decl.Name); ok {
			return nil, fmt.Errorf("type %q: name is a builtin type", decl.Name)
		}
		if _, dup := m.byName[decl.Name]; dup {
			return nil, fmt.Errorf("type %q: declared twice", decl.Name)
		}
		id, err := b.register(decl)
		if err != nil {
			return nil, fmt.Errorf("type %q: %w", decl.Name, err)
		}
		m.byName[decl.Name] = id
		m.Decls = append(m.Decls, Decl{Name: decl.Name, Kind: decl.Kind, ID: id})
	}
	for i := range cfg.Types {
		decl := &cfg.Types[i]
		if err := b.fill(decl, m.byName[decl.Name]); err != nil {
			return nil, fmt.Errorf("type %q: %w", decl.Name, err)
		}
	}
	return m, nil
}

func buildProfile(pc ProfileConfig) (layout.Profile, error) {
	var (
		name  = pc.Name
		ptr   uint64
		disc  uint64
		table = make(map[uint64]uint64)
	)
	if pc.Preset != "" {
		base, ok := layout.LookupProfile(pc.Preset)
		if !ok {
			return layout.Profile{}, fmt.Errorf("unknown preset %q", pc.Preset)
		}
		if name == "" {
			name = base.Name
		}
		ptr = base.PointerWidth
		disc = base.DefaultDiscriminantWidth
		for _, w := range base.Widths() {
			table[w], _ = base.ScalarAlign(w)
		}
	}
	if pc.PointerWidth != 0 {
		v, err := safecast.Conv[uint64](pc.PointerWidth)
		if err != nil {
			return layout.Profile{}, fmt.Errorf("pointer_width: %w", err)
		}
		ptr = v
	}
	if pc.DefaultDiscriminantWidth != 0 {
		v, err := safecast.Conv[uint64](pc.DefaultDiscriminantWidth)
		if err != nil {
			return layout.Profile{}, fmt.Errorf("default_discriminant_width: %w", err)
		}
		disc = v
	}
	for key, align := range pc.ScalarAlign {
		w, err := strconv.ParseUint(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return layout.Profile{}, fmt.Errorf("scalar_align key %q is not a width in bytes", key)
		}
		a, err := safecast.Conv[uint64](align)
		if err != nil {
			return layout.Profile{}, fmt.Errorf("scalar_align[%d]: %w", w, err)
		}
		table[w] = a
	}
	if name == "" {
		name = "custom"
	}
	return layout.NewProfile(name, ptr, table, disc)
}
