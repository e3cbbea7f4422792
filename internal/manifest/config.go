package manifest

// Config mirrors the TOML layout of a manifest file.
type Config struct {
	Profile *ProfileConfig `toml:"profile"`
	Types   []TypeDecl     `toml:"type"`
}

// ProfileConfig selects a preset and optionally overrides parts of it.
// Without a preset every field is required.
type ProfileConfig struct {
	Preset                   string           `toml:"preset"`
	Name                     string           `toml:"name"`
	PointerWidth             int64            `toml:"pointer_width"`
	DefaultDiscriminantWidth int64            `toml:"default_discriminant_width"`
	ScalarAlign              map[string]int64 `toml:"scalar_align"`
}

// TypeDecl is one [[type]] entry. Which fields apply depends on Kind.
type TypeDecl struct {
	Name string `toml:"name"`
	Kind string `toml:"kind"`

	// composite, tail
	Members []MemberDecl `toml:"members"`
	Packed  bool         `toml:"packed"`
	Align   int64        `toml:"align"`
	Tail    string       `toml:"tail"`

	// tuple
	Elems []string `toml:"elems"`

	// union
	Variants []VariantDecl `toml:"variants"`
	Tag      string        `toml:"tag"`
	TagWidth int64         `toml:"tag_width"`

	// array, sequence
	Elem  string `toml:"elem"`
	Count int64  `toml:"count"`

	// pointer
	Target   string `toml:"target"`
	Pointer  string `toml:"pointer"`
	Nullable bool   `toml:"nullable"`

	// scalar
	Width int64   `toml:"width"`
	Range []int64 `toml:"range"`

	// polymorphic
	Interface string `toml:"interface"`
}

// MemberDecl is a named member of a composite or tail head.
type MemberDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// VariantDecl is a union variant; Type is empty for an empty variant.
type VariantDecl struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}
