package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hevcpress/internal/config"
	"hevcpress/internal/dirs"
	"hevcpress/internal/util/deps"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "doctor",
		Short:         "Diagnose external dependencies (ffmpeg, ffprobe, upload credential)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings := config.Settings()
			ff, ferr := deps.FindFFmpeg(settings.FFmpegPath)
			if ferr != nil {
				return &ExitError{Code: ExitMissingDep, Err: ferr}
			}
			fp, perr := deps.FindFFprobe(settings.FFprobePath)
			if perr != nil {
				return &ExitError{Code: ExitMissingDep, Err: perr}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "FFmpeg:  %s\n", ff)
			fmt.Fprintf(cmd.OutOrStdout(), "FFprobe: %s\n", fp)

			if tokenPath, err := dirs.TokenPath(); err == nil {
				if _, err := os.Stat(tokenPath); err == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "Upload:  credential present (%s)\n", tokenPath)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Upload:  no credential (run 'hevcpress auth' to enable --upload)")
				}
			}
			return nil
		},
	}
}
