package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"memlayout/internal/layout"
	"memlayout/internal/testkit"
	"memlayout/internal/trace"
)

var (
	checkProfile string
	checkJobs    int
)

func init() {
	checkCmd.Flags().StringVar(&checkProfile, "profile", "", "target profile preset, overriding the manifest")
	checkCmd.Flags().IntVarP(&checkJobs, "jobs", "j", 0, "parallel layout workers (0 = GOMAXPROCS)")
}

var checkCmd = &cobra.Command{
	Use:   "check <manifest.toml>",
	Short: "Lay out every declared type under both policies and validate the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return err
		}
		timer, showTimings, err := newCommandTimer(cmd)
		if err != nil {
			return err
		}
		run, err := loadRun(args[0], checkProfile, nil, timer)
		if err != nil {
			return err
		}
		eng := layout.New(run.profile, run.m.Types, layout.WithTracer(trace.FromContext(cmd.Context())))

		var problems []string
		err = timer.Track("check", func() (string, error) {
			var err error
			problems, err = checkRun(cmd, eng, run)
			return fmt.Sprintf("%d problems", len(problems)), err
		})
		if showTimings {
			fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
		}
		if err != nil {
			return err
		}
		return reportProblems(cmd.OutOrStdout(), run, problems, quiet)
	},
}

// checkRun lays out every declaration and returns one line per failure or
// broken invariant.
func checkRun(cmd *cobra.Command, eng *layout.Engine, run *layoutRun) ([]string, error) {
	policies := []layout.Policy{layout.PolicyOptimized, layout.PolicyFixed}
	results := make(map[layout.Policy][]layout.Outcome, len(policies))
	var problems []string
	for _, policy := range policies {
		outcomes, err := eng.LayoutAll(cmd.Context(), run.ids(), policy, checkJobs, nil)
		if err != nil {
			return nil, err
		}
		results[policy] = outcomes
		for i, out := range outcomes {
			name := run.decls[i].Name
			if out.Err != nil {
				problems = append(problems, fmt.Sprintf("%s (%s): %v", name, policy, out.Err))
				continue
			}
			if err := testkit.CheckLayoutInvariants(out.Result); err != nil {
				problems = append(problems, fmt.Sprintf("%s (%s): invariant violated: %v", name, policy, err))
			}
		}
	}
	opt, fixed := results[layout.PolicyOptimized], results[layout.PolicyFixed]
	for i := range run.decls {
		if opt[i].Err != nil || fixed[i].Err != nil {
			continue
		}
		if opt[i].Result.Size > fixed[i].Result.Size {
			problems = append(problems, fmt.Sprintf("%s: optimized size %d exceeds fixed size %d", run.decls[i].Name, opt[i].Result.Size, fixed[i].Result.Size))
		}
	}
	return problems, nil
}

func reportProblems(out io.Writer, run *layoutRun, problems []string, quiet bool) error {
	if len(problems) == 0 {
		if !quiet {
			fmt.Fprintf(out, "ok: %d types laid out for %s\n", len(run.decls), run.profile.Name)
		}
		return nil
	}
	for _, p := range problems {
		fmt.Fprintln(out, p)
	}
	return fmt.Errorf("%s: %d problem(s)", run.m.Path, len(problems))
}
