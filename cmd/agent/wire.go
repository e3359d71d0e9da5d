package main

import (
	"context"
	"errors"
	"fmt"

	"storefront-agent/internal/agent"
	"storefront-agent/internal/config"
	"storefront-agent/internal/db"
	"storefront-agent/internal/llm"
	"storefront-agent/internal/logging"
	"storefront-agent/internal/memory"
	"storefront-agent/internal/notify"
	"storefront-agent/internal/telemetry"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// app holds the process-wide dependencies shared by the commands.
type app struct {
	cfg     *config.Config
	tp      *telemetry.Provider
	metrics *telemetry.Metrics
	pool    *pgxpool.Pool
	agent   *agent.Agent

	closers []func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := logging.Init(logging.Options{
		Console: cfg.IsDevelopment(),
		Level:   cfg.LogLevel,
		Service: cfg.OTelServiceName,
	}); err != nil {
		logging.Logger().Warn().Err(err).Msg("falling back to info logging")
	}
	return cfg, nil
}

// newApp starts telemetry and connects the database. Call close when done.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	tp, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:   cfg.OTelServiceName,
		Environment:   cfg.Environment,
		Endpoint:      cfg.OTelEndpoint,
		SampleRatio:   cfg.OTelSampleRatio,
		LLMProvider:   cfg.LLMProvider,
		LLMModel:      cfg.LLMModel,
		MemoryBackend: cfg.MemoryBackend,
		StoreTimezone: cfg.Timezone,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a := &app{cfg: cfg, tp: tp}
	a.closers = append(a.closers, func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logging.Logger().Warn().Err(err).Msg("telemetry shutdown error")
		}
	})

	a.metrics, err = telemetry.NewMetrics(tp.Meter)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	a.pool, err = db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.closers = append(a.closers, a.pool.Close)
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// buildAgent assembles the conversational pipeline from config.
func (a *app) buildAgent(ctx context.Context) error {
	provider, err := newProvider(ctx, a.cfg)
	if err != nil {
		return err
	}
	chat := &llm.Client{
		Provider:     provider,
		ProviderName: provider.Name(),
		Tracer:       a.tp.Tracer,
		Metrics:      a.metrics,
		Config: llm.SessionConfig{
			Model:       a.cfg.LLMModel,
			System:      agent.SystemInstruction,
			Temperature: a.cfg.DefaultTemperature,
			MaxTokens:   a.cfg.DefaultMaxTokens,
			MaxTurns:    a.cfg.MemoryMaxTurns,
		},
	}

	mem, err := a.newMemory(ctx)
	if err != nil {
		return err
	}

	store := db.NewStore(a.pool)
	loc := a.cfg.Location()
	a.agent = &agent.Agent{
		Memory: mem,
		Context: &agent.ContextResolver{
			Store:    store,
			Location: loc,
			Tracer:   a.tp.Tracer,
			Metrics:  a.metrics,
		},
		Oracle: &agent.Oracle{
			Chat:    chat,
			Timeout: a.cfg.OracleTimeout,
			Tracer:  a.tp.Tracer,
			Metrics: a.metrics,
		},
		Executor: &agent.Executor{
			Store:    store,
			Resolver: &agent.OrderResolver{Store: store},
			Mailer:   a.newMailer(),
			Tracer:   a.tp.Tracer,
			Metrics:  a.metrics,
		},
		Location: loc,
		Tracer:   a.tp.Tracer,
		Metrics:  a.metrics,
	}

	logging.Logger().Info().
		Str("provider", provider.Name()).
		Str("model", a.cfg.LLMModel).
		Str("memory", a.cfg.MemoryBackend).
		Str("timezone", a.cfg.Timezone).
		Msg("agent ready")
	return nil
}

func newProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, errors.New("GEMINI_API_KEY is required for LLM_PROVIDER=google")
		}
		return llm.NewGenAIProvider(ctx, cfg.GoogleAPIKey)
	case "google-compat":
		return llm.NewGoogleCompatProvider(cfg.GoogleAPIKey), nil
	case "ollama":
		return llm.NewOllamaProvider(cfg.OllamaBaseURL), nil
	case "anthropic":
		return llm.NewAnthropicProvider(cfg.AnthropicAPIKey), nil
	default:
		return llm.NewOpenAIProvider(cfg.OpenAIAPIKey), nil
	}
}

func (a *app) newMemory(ctx context.Context) (memory.Store, error) {
	if a.cfg.MemoryBackend != "redis" {
		return memory.NewInMemory(a.cfg.MemoryMaxTurns), nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis memory: %w", err)
	}
	a.closers = append(a.closers, func() { client.Close() })
	return memory.NewRedisStore(client, a.cfg.MemoryMaxTurns), nil
}

// newMailer queues emails when a worker is configured, sends directly over SMTP when
// credentials exist, and otherwise only logs what would have been sent.
func (a *app) newMailer() notify.Mailer {
	if a.cfg.EmailQueue {
		q := notify.NewQueue(a.cfg.RedisAddr())
		q.Metrics = a.metrics
		a.closers = append(a.closers, func() { q.Close() })
		return q
	}
	return newSender(a.cfg)
}

func newSender(cfg *config.Config) notify.Mailer {
	if !cfg.EmailConfigured() {
		logging.Logger().Warn().Msg("email credentials missing, emails will be logged instead of sent")
		return &notify.LogMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.EmailHost,
		Port:     cfg.EmailPort,
		User:     cfg.EmailUser,
		Password: cfg.EmailPass,
		FromName: cfg.EmailFrom,
	})
}
