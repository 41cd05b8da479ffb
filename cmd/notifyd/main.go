package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/studentsystem/notify/dispatch"
	"github.com/studentsystem/notify/engine"
	"github.com/studentsystem/notify/eventbus"
	"github.com/studentsystem/notify/ingest"
	"github.com/studentsystem/notify/notification"
	"github.com/studentsystem/notify/pkg/config"
	"github.com/studentsystem/notify/pkg/email"
	"github.com/studentsystem/notify/pkg/logger"
	"github.com/studentsystem/notify/pkg/mongo"
	"github.com/studentsystem/notify/pkg/pg"
	"github.com/studentsystem/notify/pkg/redis"
	"github.com/studentsystem/notify/pkg/webhook"
	"github.com/studentsystem/notify/scheduler"
)

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects the persistence backend: "postgres", "mongo" or "memory".
	Storage string `env:"STORAGE_BACKEND" envDefault:"postgres"`

	// Bus selects the event transport: "redis" or "memory".
	Bus string `env:"EVENT_BUS" envDefault:"redis"`

	// EmailProvider selects the email transport: "postmark", "smtp" or "dev".
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"postmark"`
	EmailDevDir   string `env:"EMAIL_DEV_DIR" envDefault:"./email-output"`

	Engine    engine.Config
	Dispatch  dispatch.Config
	Scheduler scheduler.Config
	Eventbus  eventbus.Config
	Postgres  pg.Config
	Mongo     mongo.Config
	Redis     redis.Config
	Email     email.Config
}

func main() {
	if err := run(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("notifyd exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithService("notifyd"),
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithLevel(parseLogLevel(cfg.LogLevel)),
	}
	if cfg.Env == "development" {
		logOpts = []logger.Option{logger.WithDevelopment("notifyd")}
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	if cfg.Bus != "redis" && cfg.Bus != "memory" {
		return errors.New("unknown event bus: " + cfg.Bus)
	}

	store, err := buildStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	var redisClient *goredis.Client
	if cfg.Bus == "redis" {
		redisClient, err = redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
	}

	bus := buildBus(cfg, redisClient, log)
	defer func() { _ = bus.Close() }()

	dispatcher, err := buildDispatcher(cfg, log)
	if err != nil {
		return err
	}

	eng, err := engine.New(store, dispatcher, cfg.Engine,
		engine.WithBus(bus),
		engine.WithLogger(log),
	)
	if err != nil {
		return err
	}

	adapter, err := ingest.NewAdapter(eng,
		ingest.WithAdapterLogger(log),
		ingest.WithDeduplicator(buildDeduplicator(redisClient)),
	)
	if err != nil {
		return err
	}
	if err := adapter.Run(ctx, bus); err != nil {
		return err
	}
	defer adapter.Stop()

	sched, err := scheduler.New(eng, store, cfg.Scheduler, scheduler.WithLogger(log))
	if err != nil {
		return err
	}

	log.InfoContext(ctx, "notifyd started",
		slog.String("storage", cfg.Storage),
		slog.String("bus", cfg.Bus),
		slog.String("email_provider", cfg.EmailProvider),
	)

	err = sched.Run(ctx)

	// Let in-flight first delivery attempts finish before exiting.
	eng.Wait()
	return err
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func buildStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (notification.Storage, error) {
	switch cfg.Storage {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, cfg.Postgres, log); err != nil {
			return nil, err
		}
		return notification.NewPostgresStorage(pool), nil

	case "mongo":
		db, err := mongo.NewWithDatabase(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		store := notification.NewMongoStorage(db)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return store, nil

	case "memory":
		return notification.NewMemoryStorage(), nil

	default:
		return nil, errors.New("unknown storage backend: " + cfg.Storage)
	}
}

func buildBus(cfg appConfig, redisClient *goredis.Client, log *slog.Logger) eventbus.Bus {
	if redisClient != nil {
		return eventbus.NewRedisBus(redisClient, cfg.Eventbus, eventbus.WithRedisLogger(log))
	}
	return eventbus.NewMemoryBus(cfg.Eventbus, eventbus.WithMemoryLogger(log))
}

func buildDispatcher(cfg appConfig, log *slog.Logger) (*dispatch.Dispatcher, error) {
	opts := []dispatch.Option{
		dispatch.WithLogger(log),
		dispatch.WithTimeout(cfg.Dispatch.SendTimeout),
		dispatch.WithSender(notification.ChannelInApp, dispatch.NewInAppSender()),
	}

	mailer, err := buildMailer(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, dispatch.WithSender(notification.ChannelEmail, dispatch.NewEmailSender(mailer)))

	if cfg.Dispatch.SMSGatewayURL != "" {
		sms, err := dispatch.NewSMSSender(cfg.Dispatch.SMSGatewayURL, cfg.Dispatch.SMSAPIKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithSender(notification.ChannelSMS, sms))
	}
	if cfg.Dispatch.PushGatewayURL != "" {
		push, err := dispatch.NewPushSender(cfg.Dispatch.PushGatewayURL, cfg.Dispatch.PushAPIKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dispatch.WithSender(notification.ChannelPush, push))
	}

	hookSender := webhook.NewSender(webhook.WithSigningSecret(cfg.Dispatch.WebhookSigningSecret))
	opts = append(opts, dispatch.WithSender(notification.ChannelWebhook, dispatch.NewWebhookSender(hookSender)))

	return dispatch.New(opts...), nil
}

func buildMailer(cfg appConfig) (email.EmailSender, error) {
	switch cfg.EmailProvider {
	case "postmark":
		return email.NewPostmarkClient(cfg.Email)
	case "smtp":
		return email.NewSMTPClient(cfg.Email)
	case "dev":
		return email.NewDevSender(cfg.EmailDevDir), nil
	default:
		return nil, errors.New("unknown email provider: " + cfg.EmailProvider)
	}
}

func buildDeduplicator(redisClient *goredis.Client) ingest.Deduplicator {
	if redisClient != nil {
		return ingest.NewRedisDeduplicator(redisClient, ingest.DedupTTL)
	}
	return ingest.NewMemoryDeduplicator(ingest.DedupTTL)
}
