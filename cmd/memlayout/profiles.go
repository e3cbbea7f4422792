package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"memlayout/internal/layout"
	"memlayout/internal/report"
)

var profilesFormat string

func init() {
	profilesCmd.Flags().StringVar(&profilesFormat, "format", "pretty", "output format (pretty|json)")
}

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in target profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		presets := layout.Presets()
		described := make([]report.Profile, len(presets))
		for i, p := range presets {
			described[i] = report.DescribeProfile(p)
		}
		switch strings.ToLower(profilesFormat) {
		case "json":
			return report.WriteJSON(cmd.OutOrStdout(), described)
		case "pretty":
			useColor, err := colorEnabled(cmd)
			if err != nil {
				return err
			}
			return report.WriteProfiles(cmd.OutOrStdout(), described, report.PrettyOpts{Color: useColor})
		default:
			return fmt.Errorf("unsupported format %q (must be pretty or json)", profilesFormat)
		}
	},
}
