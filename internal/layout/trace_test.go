package layout_test

import (
	"strings"
	"testing"

	"memlayout/internal/layout"
	"memlayout/internal/trace"
	"memlayout/internal/types"
)

func TestEngineEmitsTraceEvents(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	s := in.RegisterComposite("S")
	in.SetCompositeMembers(s, []types.Member{{Name: "a", Type: b.U8}, {Name: "b", Type: b.U32}})
	loop := in.RegisterComposite("Loop")
	in.SetCompositeMembers(loop, []types.Member{{Name: "self", Type: loop}})

	ring := trace.NewRingTracer(256, trace.LevelDebug)
	eng := layout.New(layout.X86_64LinuxGNU(), in, layout.WithTracer(ring))
	if _, err := eng.Layout(s, layout.PolicyFixed); err != nil {
		t.Fatalf("Layout(S): %v", err)
	}
	if _, err := eng.Layout(loop, layout.PolicyFixed); err == nil {
		t.Fatalf("Layout(Loop) should fail")
	}

	var names []string
	for _, ev := range ring.Snapshot() {
		names = append(names, ev.Kind.String()+" "+ev.Name)
	}
	joined := strings.Join(names, "\n")
	for _, want := range []string{"begin layout S", "begin type S", "end type S", "point place", "point cycle"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("trace misses %q:\n%s", want, joined)
		}
	}
}
