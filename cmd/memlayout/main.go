package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"memlayout/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "memlayout",
	Short: "Compute in-memory layouts of type descriptors",
	Long: `memlayout computes size, alignment, member offsets and tag encodings
for the types declared in a TOML manifest, for a chosen target profile.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		traceCleanup, err := setupTracing(cmd)
		if err != nil {
			return err
		}
		deferCleanup(traceCleanup)
		profCleanup, err := setupProfiling(cmd)
		if err != nil {
			return err
		}
		deferCleanup(profCleanup)
		return nil
	},
}

// cleanups run once after the command finishes, whether or not it failed.
var cleanups []func()

func deferCleanup(fn func()) {
	if fn != nil {
		cleanups = append(cleanups, fn)
	}
}

func runCleanups() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

func init() {
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "print one summary line per type")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")

	rootCmd.PersistentFlags().String("trace", "", "write trace events to a file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|query|type|debug)")
	rootCmd.PersistentFlags().String("trace-mode", "ring", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 4096, "events kept in the trace ring buffer")

	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to file")
}

func main() {
	rootCmd.Version = version.Version
	os.Exit(run(context.Background()))
}

func run(ctx context.Context) (code int) {
	defer func() {
		if r := recover(); r != nil {
			dumpTraceRing(os.Stderr)
			fmt.Fprintf(os.Stderr, "memlayout: panic: %v\n", r)
			code = 2
		}
		runCleanups()
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
