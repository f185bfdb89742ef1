// Package call implements the batch calling mode: dial every number in a
// file, then serve webhooks until the operator stops the process.
package call

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"callscribe/internal/app"
	"callscribe/internal/calls"
	"callscribe/internal/config"
	"callscribe/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	output   string
	format   string
	workers  int
	noServer bool
)

var Cmd = &cobra.Command{
	Use:   "call <numbers-file>",
	Short: "Dial every number in a file and transcribe the answered calls",
	Long: `Reads one phone number per line from the given file, dials them all
through the telephony provider, and starts the webhook server that drives
each call through playback, recording, and transcription. Results append to
the output file as calls complete. Stop with Ctrl-C once the batch is done.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default from OUTPUT_FILE)")
	Cmd.Flags().StringVarP(&format, "format", "f", "", "output format: tsv, csv, json, or xlsx")
	Cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent call initiations (default from CALL_WORKERS)")
	Cmd.Flags().BoolVar(&noServer, "no-server", false, "initiate calls only; do not start the webhook server")
}

func run(c *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output.File = output
	}
	if format != "" {
		cfg.Output.Format = format
	}
	if workers > 0 {
		cfg.Calls.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose, _ := c.Flags().GetBool("verbose")
	log := logger.NewCLI(os.Stderr, verbose)

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	numbers, err := calls.LoadNumbersFile(args[0])
	if err != nil {
		return err
	}
	if len(numbers) == 0 {
		return fmt.Errorf("no phone numbers found in %s", args[0])
	}

	progress := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(64))
	bar := progress.AddBar(int64(len(numbers)),
		mpb.PrependDecorators(
			decor.Name("dialing "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	initiated := a.Dispatcher.InitiateBatch(ctx, numbers, calls.BatchCallbacks{
		OnInitiated: func(calls.Call) { bar.Increment() },
		OnFailed:    func(string, error) { bar.Increment() },
	})
	progress.Wait()

	fmt.Fprintf(os.Stderr, "Initiated %d of %d calls\n", len(initiated), len(numbers))
	if len(initiated) == 0 {
		return fmt.Errorf("all %d call initiations failed", len(numbers))
	}

	if noServer {
		log.Info("skipping webhook server", "reason", "--no-server")
		return nil
	}

	if err := a.RunHTTP(ctx); err != nil {
		return err
	}

	stats := a.Sink.Stats()
	fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", stats.Rows, stats.Path)
	return nil
}
