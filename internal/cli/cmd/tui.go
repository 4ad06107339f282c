package cmd

import (
	"github.com/spf13/cobra"
)

func newTuiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tui",
		Short:         "Force the interactive dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, runMode{ForceTUI: true})
		},
	}
	bindRunFlags(cmd.Flags())
	// '--no-ui' makes no sense here, but keep the flag for compatibility.
	if f := cmd.Flags().Lookup("no-ui"); f != nil {
		f.Hidden = true
	}
	return cmd
}
