package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"memlayout/internal/layout"
	"memlayout/internal/manifest"
	"memlayout/internal/observ"
	"memlayout/internal/report"
	"memlayout/internal/trace"
	"memlayout/internal/types"
)

var (
	layoutPolicy  string
	layoutProfile string
	layoutFormat  string
	layoutJobs    int
	layoutUI      string
	layoutOnly    []string
)

func init() {
	layoutCmd.Flags().StringVar(&layoutPolicy, "policy", "both", "layout policy (optimized|fixed|both)")
	layoutCmd.Flags().StringVar(&layoutProfile, "profile", "", "target profile preset, overriding the manifest")
	layoutCmd.Flags().StringVar(&layoutFormat, "format", "pretty", "output format (pretty|json|msgpack)")
	layoutCmd.Flags().IntVarP(&layoutJobs, "jobs", "j", 0, "parallel layout workers (0 = GOMAXPROCS)")
	layoutCmd.Flags().StringVar(&layoutUI, "ui", "off", "progress view (auto|on|off)")
	layoutCmd.Flags().StringSliceVar(&layoutOnly, "only", nil, "lay out only the named types")
}

var layoutCmd = &cobra.Command{
	Use:   "layout <manifest.toml>",
	Short: "Print the layouts of the types declared in a manifest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := strings.ToLower(layoutFormat)
		switch format {
		case "pretty", "json", "msgpack":
		default:
			return fmt.Errorf("unsupported format %q (must be pretty, json or msgpack)", layoutFormat)
		}
		policies, err := parsePolicies(layoutPolicy)
		if err != nil {
			return err
		}
		uiMode, err := readToggle("ui", layoutUI)
		if err != nil {
			return err
		}
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return err
		}
		timer, showTimings, err := newCommandTimer(cmd)
		if err != nil {
			return err
		}

		run, err := loadRun(args[0], layoutProfile, layoutOnly, timer)
		if err != nil {
			return err
		}
		eng := layout.New(run.profile, run.m.Types, layout.WithTracer(trace.FromContext(cmd.Context())))
		useTUI := format == "pretty" && uiMode.resolve()

		rep := report.New(run.m.Path, run.profile)
		for _, policy := range policies {
			var outcomes []layout.Outcome
			err := timer.Track("layout "+policy.String(), func() (string, error) {
				var err error
				if useTUI {
					outcomes, err = runLayoutWithUI(cmd.Context(), eng, "layout "+policy.String(), run.names(), run.ids(), policy, layoutJobs)
				} else {
					outcomes, err = eng.LayoutAll(cmd.Context(), run.ids(), policy, layoutJobs, nil)
				}
				return fmt.Sprintf("%d types", len(run.decls)), err
			})
			if err != nil {
				return err
			}
			for i, out := range outcomes {
				rep.Add(run.m.Types, run.decls[i].Name, policy, out)
			}
		}

		err = timer.Track("render", func() (string, error) {
			return "", writeReport(cmd, rep, format, quiet)
		})
		if showTimings {
			fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		}
		return err
	},
}

// layoutRun is a loaded manifest narrowed to the types a command works on.
type layoutRun struct {
	m       *manifest.Manifest
	profile layout.Profile
	decls   []manifest.Decl
}

func (r *layoutRun) ids() []types.TypeID {
	out := make([]types.TypeID, len(r.decls))
	for i, d := range r.decls {
		out[i] = d.ID
	}
	return out
}

func (r *layoutRun) names() []string {
	out := make([]string, len(r.decls))
	for i, d := range r.decls {
		out[i] = d.Name
	}
	return out
}

func loadRun(path, profileName string, only []string, timer *observ.Timer) (*layoutRun, error) {
	var m *manifest.Manifest
	err := timer.Track("load", func() (string, error) {
		var err error
		m, err = manifest.Load(path)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d types", len(m.Decls)), nil
	})
	if err != nil {
		return nil, err
	}
	run := &layoutRun{m: m, profile: m.Profile}
	if profileName != "" {
		p, ok := layout.LookupProfile(profileName)
		if !ok {
			return nil, fmt.Errorf("unknown profile %q (see 'memlayout profiles')", profileName)
		}
		run.profile = p
	}
	run.decls, err = selectDecls(m, only)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// selectDecls keeps the declarations named in only, in file order. An empty
// filter keeps everything.
func selectDecls(m *manifest.Manifest, only []string) ([]manifest.Decl, error) {
	if len(only) == 0 {
		return m.Decls, nil
	}
	want := make(map[types.TypeID]struct{}, len(only))
	for _, name := range only {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, ok := m.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("type %q is not declared in %s", name, m.Path)
		}
		want[id] = struct{}{}
	}
	out := make([]manifest.Decl, 0, len(want))
	for _, d := range m.Decls {
		if _, ok := want[d.ID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func parsePolicies(value string) ([]layout.Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "both", "all":
		return []layout.Policy{layout.PolicyOptimized, layout.PolicyFixed}, nil
	}
	p, err := layout.ParsePolicy(value)
	if err != nil {
		return nil, err
	}
	return []layout.Policy{p}, nil
}

func colorEnabled(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	mode, err := readToggle("color", value)
	if err != nil {
		return false, err
	}
	return mode.resolve(), nil
}

func newCommandTimer(cmd *cobra.Command) (*observ.Timer, bool, error) {
	show, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, false, err
	}
	return observ.NewTimer(), show, nil
}

func writeReport(cmd *cobra.Command, rep *report.Report, format string, quiet bool) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		return report.WriteJSON(out, rep)
	case "msgpack":
		return report.WriteMsgpack(out, rep)
	default:
		useColor, err := colorEnabled(cmd)
		if err != nil {
			return err
		}
		return report.WritePretty(out, rep, report.PrettyOpts{Color: useColor, Summary: quiet})
	}
}
