package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"hevcpress/internal/batch"
	"hevcpress/internal/model"
	"hevcpress/internal/pathmap"
)

func newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "plan",
		Short:         "Show what a run would do without encoding anything",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, runMode{DryRunOnly: true})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

func printPlan(cmd *cobra.Command, opts model.CLIOptions, settings model.Settings, entries []batch.PlanEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Plan:")
	fmt.Fprintf(out, "- Input root:   %s\n", opts.InputPath)
	fmt.Fprintf(out, "- Output root:  %s\n", pathmap.New(opts.InputPath, opts.OutputPath).OutputRoot())
	if opts.GPU {
		fmt.Fprintf(out, "- Mode:         GPU (hevc_nvenc, CQ %d, preset %s)\n", settings.GPUCQ, settings.GPUPreset)
	} else {
		fmt.Fprintf(out, "- Mode:         CPU (libx265, CRF %d, preset %s)\n", settings.CPUCRF, settings.CPUPreset)
	}
	fmt.Fprintf(out, "- Audio:        %s %s\n", settings.AudioCodec, settings.AudioBitrate)
	fmt.Fprintf(out, "- Files:        %d\n", len(entries))
	for _, e := range entries {
		mark := "encode"
		switch {
		case e.CollidesWith != "":
			mark = "reject"
		case e.Skip:
			mark = "skip  "
		}
		fmt.Fprintf(out, "  %s  %s -> %s\n", mark, e.Source.Path, e.Dest.Path)
		if e.CollidesWith != "" {
			fmt.Fprintf(out, "          destination already claimed by %s\n", e.CollidesWith)
		}
	}
}
