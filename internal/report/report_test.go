package report_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"memlayout/internal/layout"
	"memlayout/internal/report"
	"memlayout/internal/types"
)

func buildReport(t *testing.T) *report.Report {
	t.Helper()
	in := types.NewInterner()
	b := in.Builtins()
	s := in.RegisterComposite("S")
	in.SetCompositeMembers(s, []types.Member{{Name: "a", Type: b.U8}, {Name: "b", Type: b.U32}, {Name: "c", Type: b.U16}})
	opt := in.RegisterUnion("Option")
	in.SetUnionVariants(opt, []types.Variant{{Name: "None"}, {Name: "Some", Payload: in.Intern(types.MakePointer(b.U32, types.PtrThin))}})
	loop := in.RegisterComposite("Loop")
	in.SetCompositeMembers(loop, []types.Member{{Name: "self", Type: loop}})

	profile := layout.X86_64LinuxGNU()
	eng := layout.New(profile, in)
	r := report.New("types.toml", profile)
	for _, decl := range []struct {
		name string
		id   types.TypeID
	}{{"S", s}, {"Option", opt}, {"Loop", loop}} {
		for _, policy := range []layout.Policy{layout.PolicyOptimized, layout.PolicyFixed} {
			res, err := eng.Layout(decl.id, policy)
			r.Add(in, decl.name, policy, layout.Outcome{Type: decl.id, Result: res, Err: err})
		}
	}
	return r
}

func TestAddRecordsResultsAndErrors(t *testing.T) {
	r := buildReport(t)
	if len(r.Types) != 6 || r.Errors != 2 {
		t.Fatalf("types=%d errors=%d", len(r.Types), r.Errors)
	}
	opt := r.Types[0]
	if opt.Name != "S" || opt.Size != 8 || opt.Order[0] != 1 {
		t.Fatalf("optimized S: %+v", opt)
	}
	union := r.Types[2]
	if union.Encoding != "niche" || union.Variants[1].Payload != "&u32" || !union.Variants[0].Tagged {
		t.Fatalf("Option: %+v", union)
	}
	loop := r.Types[4]
	if loop.ErrorKind == "" || loop.Error == "" || loop.Kind != "composite" {
		t.Fatalf("Loop should carry its error: %+v", loop)
	}
	if r.Profile.PointerWidth != 8 || len(r.Profile.ScalarAlign) == 0 {
		t.Fatalf("profile: %+v", r.Profile)
	}
}

func TestWritePretty(t *testing.T) {
	r := buildReport(t)
	var buf bytes.Buffer
	if err := report.WritePretty(&buf, r, report.PrettyOpts{}); err != nil {
		t.Fatalf("WritePretty: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"profile: x86_64", "size 8  align 4", "size 12  align 4  padding 5", "tag: niche", "error:", "2 type(s) failed"} {
		if !strings.Contains(out, want) {
			t.Fatalf("pretty output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("color disabled but escape codes emitted")
	}
}

func TestWriteJSONAndMsgpack(t *testing.T) {
	r := buildReport(t)

	var js bytes.Buffer
	if err := report.WriteJSON(&js, r); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var decoded report.Report
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(js.String(), `"pointer_width": 8`) {
		t.Fatalf("json keys should be snake_case:\n%s", js.String())
	}

	var mp bytes.Buffer
	if err := report.WriteMsgpack(&mp, r); err != nil {
		t.Fatalf("WriteMsgpack: %v", err)
	}
	back, err := report.ReadMsgpack(&mp)
	if err != nil {
		t.Fatalf("ReadMsgpack: %v", err)
	}
	if back.Errors != r.Errors || len(back.Types) != len(r.Types) || back.Types[2].Variants[1].Payload != "&u32" {
		t.Fatalf("msgpack lost data: %+v", back)
	}
}

func TestWriteProfiles(t *testing.T) {
	profiles := make([]report.Profile, 0, len(layout.Presets()))
	for _, p := range layout.Presets() {
		profiles = append(profiles, report.DescribeProfile(p))
	}
	var buf bytes.Buffer
	if err := report.WriteProfiles(&buf, profiles, report.PrettyOpts{}); err != nil {
		t.Fatalf("WriteProfiles: %v", err)
	}
	if !strings.Contains(buf.String(), "avr") || !strings.Contains(buf.String(), "8:4") {
		t.Fatalf("profile table:\n%s", buf.String())
	}
}

func TestExplicitUnionReportsPayloadOffsets(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	u := in.RegisterUnion("U")
	in.SetUnionVariants(u, []types.Variant{{Name: "A", Payload: in.Intern(types.MakeArray(b.U8, 9))}, {Name: "B", Payload: b.U64}})
	profile := layout.X86_64LinuxGNU()
	res, err := layout.New(profile, in).Layout(u, layout.PolicyFixed)
	r := report.New("types.toml", profile)
	r.Add(in, "U", layout.PolicyFixed, layout.Outcome{Type: u, Result: res, Err: err})

	got := r.Types[0]
	if got.Size != 16 || got.Variants[0].PayloadOffset != 4 || got.Variants[1].PayloadOffset != 8 {
		t.Fatalf("U: %+v", got)
	}
	var buf bytes.Buffer
	if err := report.WritePretty(&buf, r, report.PrettyOpts{}); err != nil {
		t.Fatalf("WritePretty: %v", err)
	}
	for _, want := range []string{"tag: explicit u32 @0", "([u8; 9]) @4", "(u64) @8"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("pretty output misses %q:\n%s", want, buf.String())
		}
	}
}
