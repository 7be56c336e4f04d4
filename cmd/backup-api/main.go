package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/gamehost/internal/api"
	"github.com/edvin/gamehost/internal/artifact"
	"github.com/edvin/gamehost/internal/cluster"
	"github.com/edvin/gamehost/internal/config"
	"github.com/edvin/gamehost/internal/core"
	"github.com/edvin/gamehost/internal/db"
	"github.com/edvin/gamehost/internal/events"
	"github.com/edvin/gamehost/internal/logging"
	"github.com/edvin/gamehost/internal/metrics"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	var registry core.Registry

	switch cfg.Store {
	case config.StorePostgres:
		if *migrateFlag {
			logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
			if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
				logger.Fatal().Err(err).Msg("migration failed")
			}
		}

		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		metrics.RegisterPoolMetrics(pool)

		registry = core.NewPostgresRegistry(pool, logger)
	case config.StoreMemory:
		logger.Warn().Msg("using in-memory registry, state is lost on restart")
		registry = core.NewMemoryRegistry()
	}

	platform, err := cluster.NewDockerOrchestrator(cluster.DockerConfig{
		Host:            cfg.DockerHost,
		PackagingImage:  cfg.PackagingImage,
		RestoreImage:    cfg.RestoreImage,
		VolumePrefix:    cfg.VolumePrefix,
		ContainerPrefix: cfg.ContainerPrefix,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to docker")
	}

	artifacts := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})

	var sink events.Publisher
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer nc.Close()
		sink = nc
	} else {
		logger.Info().Msg("no NATS_URL configured, publishing events to the log")
		sink = events.NewLogPublisher(logger)
	}

	runner := core.NewJobRunner(platform, artifacts, cfg.PollInterval, cfg.JobMaxWait, logger)
	orch := core.NewOrchestrator(registry, runner, platform, artifacts, sink, cfg.StopTimeout, logger)
	retention := core.NewRetentionEnforcer(registry, artifacts, logger)
	scheduler := core.NewScheduler(registry, orch, retention, cfg.SchedulerTick, logger)

	srv := api.NewServer(logger, registry, orch, pool)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting backup API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("shutdown error")
	}

	// Let supervised backup executions record their outcomes before exit.
	orch.Wait()
	logger.Info().Msg("stopped")
}
