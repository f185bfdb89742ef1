// Package serve runs only the webhook server, for deployments where call
// initiation happens elsewhere (another host, or a separate `call --no-server`
// run pointed at the same provider connection).
package serve

import (
	"os"
	"os/signal"
	"syscall"

	"callscribe/internal/app"
	"callscribe/internal/config"
	"callscribe/pkg/logger"

	"github.com/spf13/cobra"
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server without initiating any calls",
	RunE:  run,
}

func run(c *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	verbose, _ := c.Flags().GetBool("verbose")
	log := logger.New(verbose)

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.RunHTTP(ctx)
}
