package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"hevcpress/internal/batch"
	"hevcpress/internal/config"
	"hevcpress/internal/dirs"
	"hevcpress/internal/encoder"
	"hevcpress/internal/model"
	"hevcpress/internal/progress"
	"hevcpress/internal/ui"
	"hevcpress/internal/upload"
	"hevcpress/internal/util/deps"
	"hevcpress/internal/util/format"
)

type runMode struct {
	ForceTUI   bool
	DryRunOnly bool
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "run",
		Short:         "Re-encode every video under --input-path",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExecute(cmd, runMode{})
		},
	}
	bindRunFlags(cmd.Flags())
	return cmd
}

func assembleRunInputs(cmd *cobra.Command) (model.CLIOptions, error) {
	inputPath, _ := cmd.Flags().GetString("input-path")
	if inputPath == "" {
		return model.CLIOptions{}, errors.New("usage: hevcpress run --input-path PATH [--output-path PATH] [--gpu]")
	}
	outputPath, _ := cmd.Flags().GetString("output-path")
	gpu, _ := cmd.Flags().GetBool("gpu")
	uploadFlag, _ := cmd.Flags().GetBool("upload")
	noUI, _ := cmd.Flags().GetBool("no-ui")

	jobs := viper.GetInt("jobs")
	if jobs <= 0 {
		jobs = 1
	}

	opts := model.CLIOptions{
		InputPath:  filepath.Clean(inputPath),
		OutputPath: outputPath,
		GPU:        gpu,
		Jobs:       jobs,
		Upload:     uploadFlag,
		Verbose:    viper.GetBool("verbose"),
		NoUI:       noUI,
	}
	if opts.OutputPath != "" {
		opts.OutputPath = filepath.Clean(opts.OutputPath)
	}
	return opts, nil
}

func runExecute(cmd *cobra.Command, mode runMode) error {
	opts, err := assembleRunInputs(cmd)
	if err != nil {
		return &ExitError{Code: ExitCLIError, Err: err}
	}

	settings := config.Settings()

	if mode.DryRunOnly {
		opts.DryRun = true
		svc := batch.NewService(
			batch.WithCLIOptions(opts),
			batch.WithSettings(settings),
		)
		entries, perr := svc.Plan()
		if perr != nil {
			return &ExitError{Code: ExitCLIError, Err: perr}
		}
		printPlan(cmd, opts, settings, entries)
		return nil
	}

	// Resolve external tools up front; their absence is fatal before any
	// file is touched.
	ffmpegPath, ferr := deps.FindFFmpeg(settings.FFmpegPath)
	if ferr != nil {
		return &ExitError{Code: ExitMissingDep, Err: ferr}
	}
	ffprobePath, perr := deps.FindFFprobe(settings.FFprobePath)
	if perr != nil {
		return &ExitError{Code: ExitMissingDep, Err: perr}
	}
	settings.FFmpegPath = ffmpegPath
	settings.FFprobePath = ffprobePath

	uploader := buildUploader(cmd.Context(), opts)

	svcFor := func(rep progress.Reporter) *batch.Service {
		return batch.NewService(
			batch.WithCLIOptions(opts),
			batch.WithSettings(settings),
			batch.WithReporter(rep),
			batch.WithUploader(uploader),
		)
	}

	var report model.BatchReport
	var runErr error

	useTUI := mode.ForceTUI || (!opts.NoUI && !opts.Verbose && isTerminal())
	if useTUI {
		entries, perr := svcFor(progress.Nop()).Plan()
		if perr != nil {
			return &ExitError{Code: ExitCLIError, Err: perr}
		}
		report, runErr = ui.Run(cmd.Context(), opts.InputPath, entries, func(ctx context.Context, rep progress.Reporter) (model.BatchReport, error) {
			return svcFor(rep).Run(ctx)
		})
	} else {
		rep := progress.NewConsoleReporter(opts.Jobs <= 1 && isTerminal())
		report, runErr = svcFor(rep).Run(cmd.Context())
	}

	printSummary(cmd, &report)

	switch {
	case runErr == nil:
		// Per-file failures still exit 0; the batch itself completed.
		return nil
	case errors.Is(runErr, encoder.ErrEncoderMissing):
		return &ExitError{Code: ExitMissingDep, Err: runErr}
	default:
		return &ExitError{Code: ExitCLIError, Err: runErr}
	}
}

// buildUploader returns the upload capability, or nil when uploads are
// disabled or no credential is available. A missing credential is a
// warning, not an error: the batch runs without the upload step.
func buildUploader(ctx context.Context, opts model.CLIOptions) upload.Uploader {
	if !opts.Upload {
		return nil
	}
	tokenPath, err := dirs.TokenPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: uploads disabled: %v\n", err)
		return nil
	}
	conf := upload.NewConfig(viper.GetString("upload_client_id"), viper.GetString("upload_client_secret"))
	client, err := upload.NewClient(ctx, conf, tokenPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: uploads disabled: %v (run 'hevcpress auth' first)\n", err)
		return nil
	}
	return client
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// printSummary writes the human-readable batch result: aggregate counts
// plus the specific reason for each failure.
func printSummary(cmd *cobra.Command, report *model.BatchReport) {
	out := cmd.OutOrStdout()
	succeeded, failed, skipped := report.Counts()
	var written int64
	for _, res := range report.Results {
		written += res.OutputBytes
	}
	fmt.Fprintf(out, "\nBatch finished: %d encoded, %d failed, %d skipped, %s written\n",
		succeeded, failed, skipped, format.HumanizeBytes(written))
	if report.Halted {
		fmt.Fprintln(out, "Batch halted early: a required external tool is missing.")
	}
	for _, res := range report.Results {
		if res.Status == model.StatusFailure {
			fmt.Fprintf(out, "  failed: %s: %s\n", res.Source.Path, res.Reason)
		}
	}
}
