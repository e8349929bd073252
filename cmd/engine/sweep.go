package main

import (
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/application/services"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/persistence/postgres"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/infrastructure/providers"
	"github.com/DanielPopoola/ficmart-commerce-engine/internal/worker"
	"github.com/spf13/cobra"
)

// sweepCmd runs one pass of the maintenance jobs and exits, for cron style
// deployments that do not keep the server's workers running.
func sweepCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale payment intents and delete abandoned carts once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			if batchSize <= 0 {
				batchSize = cfg.Worker.BatchSize
			}

			ctx := cmd.Context()
			db, err := postgres.Connect(ctx, &cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			registry := providers.NewDefaultRegistry(cfg, logger)
			payments := services.NewPaymentService(db, registry, cfg.Store, cfg.Providers, logger)

			expired, err := payments.ExpireStale(ctx, batchSize)
			if err != nil {
				return err
			}
			carts, err := worker.NewCartSweeper(db, nil, cfg.Worker.SweepInterval, batchSize, logger).Sweep(ctx)
			if err != nil {
				return err
			}

			logger.Info("sweep finished", "expired_payments", expired, "deleted_carts", carts)
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per batch (defaults to worker.batch_size)")
	return cmd
}
