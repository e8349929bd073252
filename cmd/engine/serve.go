package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/config"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/cache"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/notify"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/providers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/handlers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/interfaces/rest/router"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/worker"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 30 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			if migrate {
				if err := postgres.Migrate(&cfg.Database, logger); err != nil {
					return err
				}
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before starting")
	return cmd
}

func serve(parent context.Context, cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting commerce engine",
		"env", cfg.Primary.Env,
		"port", cfg.Server.Port,
		"log_level", cfg.Logger.Level,
	)

	db, err := postgres.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	var cartCache application.CartCache
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		cartCache = cache.NewRedisCartCache(client, cfg.Redis.CartTTL)
		logger.Info("cart cache enabled", "addr", cfg.Redis.Addr)
	}

	var notifier application.Notifier = notify.NewLogNotifier(logger)
	if cfg.Kafka.Enabled {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.Kafka)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		logger.Info("kafka notifications enabled", "topic", cfg.Kafka.Topic)
	}

	registry := providers.NewDefaultRegistry(cfg, logger)

	payments := services.NewPaymentService(db, registry, cfg.Store, cfg.Providers, logger)
	h := handlers.NewHandlers(
		services.NewCartService(db, cartCache, cfg.Store, logger),
		services.NewCheckoutService(db, payments, cartCache, cfg.Store, logger),
		services.NewOrderService(db, payments, logger),
		payments,
		services.NewQueryService(db),
		logger,
	)

	handler, err := router.New(ctx, h, router.Options{
		RequestTimeout: cfg.Server.RequestTimeout,
		ServiceName:    "ficmart-commerce-engine",
	}, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	w := cfg.Worker
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		worker.NewExpirationWorker(payments, w.Interval, w.BatchSize, logger).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewReconciler(payments, w.Interval, w.ReconcileMinAge, w.BatchSize, logger).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewOutboxPublisher(db, notifier, w.OutboxInterval, w.BatchSize, w.OutboxMaxAttempts, w.OutboxClaimTTL, logger).Start(gctx)
		return nil
	})
	g.Go(func() error {
		worker.NewCartSweeper(db, cartCache, w.SweepInterval, w.BatchSize, logger).Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server exited")
	return err
}
