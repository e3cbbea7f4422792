package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"memlayout/internal/layout"
	"memlayout/internal/report"
)

const testManifest = `
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
variants = [{ name = "None" }, { name = "Some", type = "&u32" }]
`

func writeTestManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "types.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

// resetFlags restores flag defaults so commands run in one process do not
// see each other's flags.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	runCleanups()
	return out.String(), err
}

func TestLayoutCommandJSON(t *testing.T) {
	path := writeTestManifest(t, testManifest)
	out, err := execute(t, "layout", path, "--format", "json", "--policy", "both", "--ui", "off", "--only", "S")
	if err != nil {
		t.Fatalf("layout: %v\n%s", err, out)
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(rep.Types) != 2 || rep.Types[0].Size != 8 || rep.Types[1].Size != 12 {
		t.Fatalf("unexpected report: %+v", rep.Types)
	}
}

func TestLayoutCommandPretty(t *testing.T) {
	path := writeTestManifest(t, testManifest)
	out, err := execute(t, "layout", path, "--format", "pretty", "--policy", "fixed", "--color", "off", "--ui", "off")
	if err != nil {
		t.Fatalf("layout: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Option") || !strings.Contains(out, "tag: niche") {
		t.Fatalf("pretty output:\n%s", out)
	}
}

func TestCheckCommand(t *testing.T) {
	ok := writeTestManifest(t, testManifest)
	out, err := execute(t, "check", ok)
	if err != nil || !strings.Contains(out, "ok: 2 types") {
		t.Fatalf("check ok manifest: %v\n%s", err, out)
	}

	bad := writeTestManifest(t, testManifest+`
[[type]]
name = "Loop"
kind = "composite"
members = [{ name = "self", type = "Loop" }]
`)
	out, err = execute(t, "check", bad)
	if err == nil || !strings.Contains(out, "Loop (optimized)") {
		t.Fatalf("check should report the cyclic type: %v\n%s", err, out)
	}
}

func TestProfilesCommand(t *testing.T) {
	out, err := execute(t, "profiles", "--format", "json")
	if err != nil {
		t.Fatalf("profiles: %v", err)
	}
	var profiles []report.Profile
	if err := json.Unmarshal([]byte(out), &profiles); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(profiles) != len(layout.Presets()) {
		t.Fatalf("got %d profiles", len(profiles))
	}
}

func TestParsePolicies(t *testing.T) {
	cases := []struct {
		in   string
		want int
		err  bool
	}{
		{"both", 2, false},
		{"fixed", 1, false},
		{"Optimized", 1, false},
		{"c", 1, false},
		{"weird", 0, true},
	}
	for _, tc := range cases {
		got, err := parsePolicies(tc.in)
		if (err != nil) != tc.err || len(got) != tc.want {
			t.Fatalf("parsePolicies(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestReadToggle(t *testing.T) {
	for in, want := range map[string]toggle{"": toggleAuto, "AUTO": toggleAuto, "on": toggleOn, "never": toggleOff} {
		got, err := readToggle("ui", in)
		if err != nil || got != want {
			t.Fatalf("readToggle(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := readToggle("ui", "sometimes"); err == nil || !strings.Contains(err.Error(), "--ui") {
		t.Fatalf("expected --ui error, got %v", err)
	}
	if !toggleOn.resolve() || toggleOff.resolve() {
		t.Fatalf("explicit toggles must not consult the terminal")
	}
}
