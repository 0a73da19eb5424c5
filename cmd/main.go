package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"radiology-bot/config"
	"radiology-bot/internal/api/rest"
	"radiology-bot/internal/api/telegram"
	"radiology-bot/internal/container"
	"radiology-bot/internal/domain/entity"
	"radiology-bot/internal/domain/port"
	"radiology-bot/internal/infrastructure/model"
	"radiology-bot/internal/infrastructure/storage"
	"radiology-bot/internal/infrastructure/vision"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := config.InitLogger(cfg.Env)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Модели загружаются один раз и разделяются всеми запросами
	models, err := model.Load(ctx, model.Settings{
		Backend:       cfg.Models.Backend,
		KServeURL:     cfg.Models.KServeURL,
		Timeout:       cfg.Models.Timeout,
		ONNXDir:       cfg.Models.ONNXDir,
		Small:         cfg.Models.DenseNet,
		Large:         cfg.Models.ResNet,
		Autoencoder:   cfg.Models.Autoencoder,
		Attention:     cfg.Models.ViT,
		Activation:    cfg.Models.GradCAM,
		SmallSize:     vision.SmallSize,
		LargeSize:     vision.LargeSize,
		AttentionSize: vision.AttentionSize,
		Labels:        entity.DefaultConditions(),
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := models.Close(); err != nil {
			logger.Warn("failed to release models", "error", err)
		}
	}()

	objects, err := storage.OpenObjectStorage(ctx, storage.S3Config{
		Endpoint:  cfg.Storage.S3Endpoint,
		AccessKey: cfg.Storage.S3AccessKey,
		SecretKey: cfg.Storage.S3SecretKey,
		Bucket:    cfg.Storage.S3Bucket,
		Region:    cfg.Storage.S3Region,
	}, cfg.Storage.LocalDir, logger)
	if err != nil {
		return err
	}

	usage, closeUsage := openUsageTracker(ctx, cfg, logger)
	defer closeUsage()

	c := container.New(container.Deps{
		Users:    storage.NewMemoryUserRepository(),
		Models:   models,
		Storage:  objects,
		Usage:    usage,
		Pipeline: cfg.Pipeline,
		Saliency: cfg.Models.SaliencyStrategy,
		Logger:   logger,
	})

	router := rest.NewRouter(
		rest.NewHandler(c.CaseService, objects.Backend(), logger),
		rest.NewAuthMiddleware(cfg.JWTSecret),
		logger,
	)
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http api is running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, c.UserService, c.CaseService, logger.With("transport", "telegram"))
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			logger.Info("telegram bot is running")
			return bot.Run(ctx)
		})
	} else {
		logger.Warn("TELEGRAM_TOKEN is empty, telegram bot is disabled")
	}

	return g.Wait()
}

// openUsageTracker выбирает Postgres, если задан DATABASE_URL, иначе счётчик в памяти.
func openUsageTracker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (port.UsageTracker, func()) {
	if cfg.DatabaseURL == "" {
		logger.Info("usage tracker ready", "backend", "memory", "max_runs", cfg.MaxRuns)
		return storage.NewMemoryUsageTracker(cfg.MaxRuns), func() {}
	}

	tracker, err := storage.NewPostgresUsageTracker(ctx, cfg.DatabaseURL, cfg.MaxRuns)
	if err != nil {
		logger.Warn("postgres usage tracker unavailable, counting in memory", "error", err)
		return storage.NewMemoryUsageTracker(cfg.MaxRuns), func() {}
	}
	logger.Info("usage tracker ready", "backend", "postgres", "max_runs", cfg.MaxRuns)
	return tracker, tracker.Close
}
