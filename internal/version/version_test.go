package version

import "testing"

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	cases := []struct {
		version string
		enabled bool
		plain   bool
	}{
		{"1.2.3", false, true},
		{"1.2.3", true, false},
		{"0.1.0-dev", true, false},
		{"nightly", true, true},
		{"1.2", true, true},
	}
	for _, tc := range cases {
		Version = tc.version
		got := Colored(tc.enabled)
		if (got == tc.version) != tc.plain {
			t.Errorf("Colored(%v) for %q = %q, plain=%v", tc.enabled, tc.version, got, tc.plain)
		}
	}
}

func BenchmarkColored(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Colored(true)
	}
}
