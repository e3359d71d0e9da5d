package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront-agent/internal/logging"
	"storefront-agent/internal/routes"
	"storefront-agent/internal/telegram"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var noBot bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), noBot)
		},
	}
	cmd.Flags().BoolVar(&noBot, "no-bot", false, "serve HTTP only, without polling Telegram")
	return cmd
}

func runServe(ctx context.Context, noBot bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	if err := a.buildAgent(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      routes.NewRouter(cfg.OTelServiceName, a.pool, a.agent),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OracleTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var poller *telegram.Poller
	if !noBot {
		poller, err = newPoller(a)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info(gctx).Str("addr", srv.Addr).Str("service", cfg.OTelServiceName).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if poller != nil {
		g.Go(func() error { return poller.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logging.Info(context.Background()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if poller != nil {
		poller.Wait()
	}
	return err
}

func newPoller(a *app) (*telegram.Poller, error) {
	if a.cfg.TelegramToken == "" {
		logging.Logger().Warn().Msg("TELEGRAM_BOT_TOKEN missing, chat listener disabled")
		return nil, nil
	}
	client, err := telegram.NewBotClient(telegram.BotOptions{
		Token:       a.cfg.TelegramToken,
		WaitSeconds: a.cfg.TelegramPollTimeout,
		SendRate:    a.cfg.TelegramSendRate,
	})
	if err != nil {
		return nil, err
	}
	logging.Logger().Info().Str("bot", client.Username()).Int("allowed_chats", len(a.cfg.AllowedChatIDs)).Msg("telegram bot connected")

	return &telegram.Poller{
		Client:      client,
		Agent:       a.agent,
		Allowed:     a.cfg.AllowedChatIDs,
		WaitSeconds: a.cfg.TelegramPollTimeout,
		RetryDelay:  a.cfg.TelegramRetryDelay,
		Tracer:      a.tp.Tracer,
		Metrics:     a.metrics,
	}, nil
}
