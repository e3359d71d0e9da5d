// Command agent runs the storefront admin assistant: the Telegram bot and HTTP API,
// the email worker, and one-off maintenance commands.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront-agent/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Logger().Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agent",
		Short:         "Storefront admin assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newWorkerCmd(), newAskCmd(), newMigrateCmd())
	return root
}
