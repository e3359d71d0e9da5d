package main

import (
	"storefront-agent/internal/logging"
	"storefront-agent/internal/notify"

	"github.com/spf13/cobra"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Drain the order email queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			w := notify.NewWorker(cfg.RedisAddr(), cfg.WorkerConcurrency, newSender(cfg))
			if err := w.Start(); err != nil {
				return err
			}
			logging.Info(ctx).Int("concurrency", cfg.WorkerConcurrency).Str("queue", notify.EmailQueue).Msg("email worker running")

			<-ctx.Done()
			w.Shutdown()
			return nil
		},
	}
}
