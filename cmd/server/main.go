package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/botaqiy/botaqiy/internal/ai"
	"github.com/botaqiy/botaqiy/internal/config"
	"github.com/botaqiy/botaqiy/internal/delivery/httpapi"
	"github.com/botaqiy/botaqiy/internal/delivery/telegram"
	"github.com/botaqiy/botaqiy/internal/infra/postgres"
	pgrepo "github.com/botaqiy/botaqiy/internal/infra/postgres/repository"
	"github.com/botaqiy/botaqiy/internal/infra/rediscache"
	"github.com/botaqiy/botaqiy/internal/logger"
	"github.com/botaqiy/botaqiy/internal/metrics"
	"github.com/botaqiy/botaqiy/internal/repository"
	"github.com/botaqiy/botaqiy/internal/service"
	"github.com/botaqiy/botaqiy/internal/storage"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("server stopped with error", zap.Error(err))
	}
	lg.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	dsn, err := cfg.DB.DSN()
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:        int32(cfg.DB.MaxConnections),
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool); err != nil {
		return err
	}
	lg.Info("database ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)
	go recordPoolStats(ctx, pool, m)

	scenarios, err := repository.NewScenarioRepository()
	if err != nil {
		return err
	}
	rewards, err := repository.NewRewardRepository()
	if err != nil {
		return err
	}

	validator := service.NewRequestValidator()
	transactor := postgres.NewTransactor(pool)

	progressRepo := pgrepo.NewProgressRepository(pool)
	sessionRepo := pgrepo.NewSessionRepository(pool)
	profileRepo := pgrepo.NewProfileRepository(pool)

	var cache service.GenerationCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = rdb.Close() }()

		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Warn("redis unavailable, generation cache disabled", zap.Error(err))
		} else {
			cache = rediscache.New(rdb, cfg.Redis.TTL)
		}
	}

	generator := ai.New(cfg.LLM.URL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	if cfg.LLM.APIKey == "" {
		lg.Warn("LLM_API_KEY is not set, generation requests will fail")
	}

	generation := service.NewGenerationService(generator, cache, validator, m, lg,
		cfg.LLM.FlashcardTemperature, cfg.LLM.ScenarioTemperature)
	scores := service.NewScoreService(transactor, validator, lg)
	purchases := service.NewPurchaseService(progressRepo, pgrepo.NewRewardRepository(pool), rewards, validator, lg)
	syncService := service.NewSyncService(transactor, scores, lg)
	library := service.NewLibraryService(sessionRepo, profileRepo, progressRepo, validator, lg)

	if cfg.Reminders.TelegramAPIToken != "" {
		if err := startTelegram(ctx, cfg, lg, pool, library); err != nil {
			return err
		}
	} else {
		lg.Info("TELEGRAM_API_TOKEN is not set, bot and reminders disabled")
	}

	h := httpapi.NewHandler(generation, scores, purchases, syncService, library, scenarios, pool, lg)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(h, m, reg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// startTelegram runs the bot and the streak reminder job until ctx is done.
func startTelegram(ctx context.Context, cfg *config.Config, lg *zap.Logger, pool *pgxpool.Pool, accounts telegram.AccountService) error {
	bot, err := tgbotapi.NewBotAPI(cfg.Reminders.TelegramAPIToken)
	if err != nil {
		return err
	}
	lg.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

	if _, err := bot.Request(tgbotapi.NewSetMyCommands(telegram.Commands()...)); err != nil {
		lg.Warn("failed to set bot commands", zap.Error(err))
	}

	handler := telegram.NewHandler(bot, lg, accounts)
	go func() {
		if err := handler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("telegram handler stopped", zap.Error(err))
		}
	}()

	reminders := service.NewReminderService(pgrepo.NewReminderRepository(pool), storage.NewReminderStorage(), lg)
	reminders.SetNotifier(telegram.NewNotifier(bot))
	go func() {
		if err := reminders.Start(ctx, cfg.Reminders.Schedule); err != nil {
			lg.Error("reminder job stopped", zap.Error(err))
		}
	}()

	return nil
}

func recordPoolStats(ctx context.Context, pool *pgxpool.Pool, m *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.RecordDBPoolStats(pool.Stat())
		}
	}
}
