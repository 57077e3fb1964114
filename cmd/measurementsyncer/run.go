package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/ettgrid/measurements-syncer/internal/contracts"
	"github.com/ettgrid/measurements-syncer/internal/measurementclient/datahub"
	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/events"
	"github.com/ettgrid/measurements-syncer/pkg/kafka"
	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/scheduler"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
	"github.com/ettgrid/measurements-syncer/pkg/syncer"
	"github.com/ettgrid/measurements-syncer/pkg/utils"
)

func run(c *cli.Context) error {
	// Build configuration from CLI flags
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"disabled", cfg.Disabled,
		"minimumAgeBeforeIssuingHours", cfg.MinimumAgeBeforeIssuingHours,
		"sleepMode", cfg.SleepMode,
		"concurrency", cfg.Concurrency,
		"defaultStartDate", cfg.DefaultStartDate.Time(),
		"contractsURL", cfg.ContractsURL,
		"syncTargetsFile", cfg.SyncTargetsFile,
		"store", cfg.Store.Kind,
		"windowCacheSize", cfg.Store.CacheSize,
		"checkpointTableName", cfg.Store.TableName,
		"kafkaBrokers", cfg.Kafka.Brokers,
		"kafkaTopic", cfg.Kafka.Topic,
		"kafkaSASL", cfg.Kafka.SASL.Enabled(),
		"metricsHost", cfg.MetricsHost,
		"metricsPort", cfg.MetricsPort,
		"environment", cfg.Environment,
		"region", cfg.Region,
	)

	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Environment: cfg.Environment,
		Region:      cfg.Region,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	// Start metrics server
	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry)
	metricsErrCh := metricsServer.Start()
	if cfg.MetricsHost == "" {
		sugar.Infof("metrics server listening on http://0.0.0.0:%d/metrics", cfg.MetricsPort)
	} else {
		sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ensureTopic(ctx, cfg.Kafka, sugar); err != nil {
		return err
	}

	producer, err := kafka.NewProducer(ctx, cfg.Kafka.ConfigMap(), sugar)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer: %w", err)
	}
	defer producer.Close(cfg.Kafka.FlushTimeout)

	publisher, err := events.NewPublisher(producer, cfg.Kafka.Topic, sugar, m)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}

	store, release, err := openStore(ctx, cfg.Store, sugar)
	if err != nil {
		return err
	}
	defer release()

	if cfg.Store.CacheSize > 0 {
		store, err = checkpointer.NewCachedStore(store, cfg.Store.CacheSize, m)
		if err != nil {
			return fmt.Errorf("failed to create window cache: %w", err)
		}
	}

	lister, err := newLister(cfg, sugar, m)
	if err != nil {
		return err
	}

	dhCfg, err := datahub.LoadConfig()
	if err != nil {
		return err
	}
	client, err := datahub.New(dhCfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create measurement client: %w", err)
	}

	windows, err := slidingwindow.NewService(sugar, cfg.MinimumAgeBeforeIssuingHours, slidingwindow.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create sliding window service: %w", err)
	}

	syncService, err := syncer.NewSyncService(client, windows, sugar, m)
	if err != nil {
		return fmt.Errorf("failed to create sync service: %w", err)
	}

	sleeper, err := scheduler.New(cfg.SleepMode)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	watchdog, err := slidingwindow.NewGapWatchdog(sugar, cfg.GapWatchdogMaxMissingHours, cfg.GapWatchdogMaxLagHours)
	if err != nil {
		return fmt.Errorf("failed to create gap watchdog: %w", err)
	}

	worker, err := syncer.NewWorker(sugar, cfg.WorkerConfig(), lister, store, syncService, windows, publisher, sleeper,
		syncer.WithMetrics(m),
		syncer.WithGapWatchdog(watchdog),
		syncer.WithCycleHook(metricsServer.MarkReady),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case err := <-producer.Errors():
			return err
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("run failed", "error", err)
	}

	// Gracefully shutdown metrics server
	sugar.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("metrics server shutdown error", "error", err)
	}

	sugar.Info("shutdown complete")
	return err
}

// ensureTopic creates the event topic, or grows its partitions, before producing.
func ensureTopic(ctx context.Context, cfg kafka.ProducerConfig, sugar *zap.SugaredLogger) error {
	adminClient, err := confluentKafka.NewAdminClient(cfg.AdminConfigMap())
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer adminClient.Close()

	if err := kafka.EnsureTopic(ctx, adminClient, cfg, sugar); err != nil {
		return fmt.Errorf("failed to ensure kafka topic exists: %w", err)
	}
	return nil
}

// newLister picks the contracts service when configured, the targets file otherwise.
func newLister(cfg *Config, sugar *zap.SugaredLogger, m *metrics.Metrics) (contracts.Lister, error) {
	if cfg.ContractsURL != "" {
		lister, err := contracts.NewHTTPLister(cfg.ContractsURL, cfg.ContractsTimeout, sugar, m)
		if err != nil {
			return nil, fmt.Errorf("failed to create contracts client: %w", err)
		}
		return lister, nil
	}
	lister, err := contracts.NewFileLister(cfg.SyncTargetsFile, sugar, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync targets file lister: %w", err)
	}
	return lister, nil
}
