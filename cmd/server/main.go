package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saransh1220/filebox/internal/gateway"
	"github.com/saransh1220/filebox/internal/gateway/middleware"
	"github.com/saransh1220/filebox/internal/modules/auth"
	"github.com/saransh1220/filebox/internal/modules/files"
	"github.com/saransh1220/filebox/internal/modules/filestorage"
	"github.com/saransh1220/filebox/internal/modules/notification"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/config"
	"github.com/saransh1220/filebox/internal/shared/infrastructure/database"
	"github.com/saransh1220/filebox/internal/shared/logging"
	"github.com/saransh1220/filebox/migrations"
	"github.com/saransh1220/filebox/pkg/migration"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("server exited", logging.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	logger.Info("connecting to database", slog.String("host", cfg.Database.Host))
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Server.MigrationsAuto {
		if err := migration.AutoMigrate(cfg.Database.URL(), migrations.FS, logger); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
	}

	rdb, err := database.NewRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	storageModule, err := filestorage.NewModule(ctx, cfg.FileStorage, logger)
	if err != nil {
		return err
	}
	defer storageModule.Close()

	authModule := auth.NewModule(db, rdb, cfg.JWT, cfg.Google, logger)

	notificationModule := notification.NewModule(logger)
	defer notificationModule.Stop()

	filesModule, err := files.NewModule(
		db,
		storageModule.Service(),
		cfg.Upload,
		cfg.Reconcile,
		notificationModule.Publisher(),
		prometheus.DefaultRegisterer,
		logger,
	)
	if err != nil {
		return err
	}
	filesModule.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := filesModule.Stop(stopCtx); err != nil {
			logger.Warn("reconciler did not stop in time", logging.Error(err))
		}
	}()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(
			middleware.NewRedisCounter(rdb), cfg.RateLimit.Requests, cfg.RateLimit.Window, logger,
		)
	}

	handler := gateway.SetupRoutes(gateway.RouterConfig{
		AuthHandler:         authModule.HTTPHandler(),
		AuthMiddleware:      middleware.NewAuthMiddleware(authModule.Service(), filesModule.Scope, logger),
		FileHandler:         filesModule.HTTPHandler(),
		NotificationHandler: notificationModule.HTTPHandler(),
		RateLimiter:         limiter,
		TrustProxy:          cfg.RateLimit.TrustProxy,
		AllowedOrigins:      cfg.Server.AllowedOrigins,
		Logger:              logger,
	})

	return gateway.NewServer(cfg.Server.Port, handler, logger).Start(ctx)
}
