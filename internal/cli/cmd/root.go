package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hevcpress/internal/config"
)

const (
	ExitOK         = 0
	ExitCLIError   = 1
	ExitMissingDep = 2
)

// ExitError wraps an error with a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hevcpress",
		Short:         "Batch re-encode a video tree to H.265",
		Long:          "hevcpress walks a directory tree, re-encodes every video it finds to H.265 into a mirrored output tree, preserves the source timestamps, and can optionally push finished files to Google Photos. Encoding runs on the CPU (libx265) by default or on NVIDIA hardware (hevc_nvenc) with --gpu.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare invocation behaves like `hevcpress run`.
			return runExecute(cmd, runMode{})
		},
	}

	// Persistent flags available to all subcommands
	root.PersistentFlags().BoolP("verbose", "v", false, "Show full subprocess commands/output")
	root.PersistentFlags().String("ffmpeg", "", "Path to the ffmpeg binary (default: look up in PATH)")
	root.PersistentFlags().String("ffprobe", "", "Path to the ffprobe binary (default: look up in PATH)")
	root.PersistentFlags().Int("jobs", 1, "Max concurrent encodes")

	bindRunFlags(root.Flags())

	// Subcommands
	root.AddCommand(newRunCmd())
	root.AddCommand(newPlanCmd())
	root.AddCommand(newTuiCmd())
	root.AddCommand(newDoctorCmd())
	root.AddCommand(newAuthCmd())
	root.AddCommand(newCompletionCmd())

	return root
}

func bindRunFlags(fs *pflag.FlagSet) {
	fs.StringP("input-path", "i", "", "Root folder of videos to re-encode (required)")
	fs.StringP("output-path", "o", "", "Destination root (default: sibling \"<input>_encoded\" folder)")
	fs.Bool("gpu", false, "Use NVIDIA NVENC hardware encoding (CQ instead of CRF)")
	fs.Bool("upload", false, "Upload finished files to Google Photos (requires prior 'hevcpress auth')")
	fs.Bool("no-ui", false, "Disable TUI; use plain textual output")
}

// Execute runs the CLI with the provided context.
func Execute(ctx context.Context) error {
	root := newRootCmd()
	_ = config.Init(root)
	return root.ExecuteContext(ctx)
}
