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

	"github.com/castellan-hq/castellan/internal/app"
	"github.com/castellan-hq/castellan/internal/audit"
	"github.com/castellan-hq/castellan/internal/auth"
	"github.com/castellan-hq/castellan/internal/platform/cache"
	"github.com/castellan-hq/castellan/internal/platform/db"
	"github.com/castellan-hq/castellan/internal/rbac"
	"github.com/castellan-hq/castellan/internal/shared"
	"github.com/castellan-hq/castellan/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	registryRepo := rbac.NewRepository(pool)
	if cfg.SeedRegistry {
		if err := rbac.Seed(ctx, registryRepo); err != nil {
			logger.Error("seed registry", slog.Any("error", err))
			os.Exit(1)
		}
	}
	registry := rbac.NewService(registryRepo, rbac.NewCache(redisClient), logger)
	registryHandler := rbac.NewHandler(logger, registry)

	recorder := audit.NewRecorder(logger, audit.NewSlogSink(logger), audit.NewPGSink(pool))

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, registry, recorder, logger)
	usersHandler := users.NewHandler(logger, usersService)

	authService := auth.NewService(usersRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)
	authMiddleware := auth.Middleware{Registry: registry, Logger: logger}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		AuthMiddleware:  authMiddleware,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		RegistryHandler: registryHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}
