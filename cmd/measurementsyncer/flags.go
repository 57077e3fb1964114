package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

const defaultStartDate = "2024-01-01T00:00:00Z"

// appFlags are parsed before any command runs.
func appFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "env-file",
			Usage:   "Load environment variables from this file before reading flags (existing variables win)",
			EnvVars: []string{"ENV_FILE"},
		},
	}
}

// runFlags returns all CLI flags for the measurementsyncer run command
func runFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable verbose logging",
			EnvVars: []string{"VERBOSE"},
			Value:   false,
		},
		&cli.BoolFlag{
			Name:    "disabled",
			Usage:   "Start without running any sync cycle",
			EnvVars: []string{"MEASUREMENTS_SYNC_DISABLED"},
			Value:   false,
		},
		&cli.IntFlag{
			Name:    "minimum-age-before-issuing-hours",
			Aliases: []string{"a"},
			Usage:   "Hours the synchronization point is held back from the current hour",
			EnvVars: []string{"MINIMUM_AGE_BEFORE_ISSUING_HOURS"},
			Value:   0,
		},
		&cli.StringFlag{
			Name:    "sleep-mode",
			Usage:   "Pause between cycles (hourly or every-thirty-seconds)",
			EnvVars: []string{"SLEEP_MODE"},
			Value:   "hourly",
		},
		&cli.Int64Flag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "The number of metering points processed in parallel",
			EnvVars: []string{"CONCURRENCY"},
			Value:   1,
		},
		&cli.StringFlag{
			Name:    "default-start-date",
			Usage:   "RFC3339 date windows are seeded at when a sync target has no start date",
			EnvVars: []string{"DEFAULT_START_DATE"},
			Value:   defaultStartDate,
		},
		&cli.StringFlag{
			Name:    "contracts-url",
			Usage:   "Base URL of the contracts service listing the sync targets",
			EnvVars: []string{"CONTRACTS_URL"},
		},
		&cli.DurationFlag{
			Name:    "contracts-timeout",
			Usage:   "Timeout for listing the sync targets",
			EnvVars: []string{"CONTRACTS_TIMEOUT"},
			Value:   30 * time.Second,
		},
		&cli.StringFlag{
			Name:    "sync-targets-file",
			Usage:   "YAML file listing the sync targets (used when contracts-url is empty)",
			EnvVars: []string{"SYNC_TARGETS_FILE"},
		},
		&cli.Int64Flag{
			Name:    "gap-watchdog-max-missing-hours",
			Usage:   "Warn when a window carries more missing hours than this (0 disables)",
			EnvVars: []string{"GAP_WATCHDOG_MAX_MISSING_HOURS"},
			Value:   24,
		},
		&cli.Int64Flag{
			Name:    "gap-watchdog-max-lag-hours",
			Usage:   "Warn when a synchronization point lags the clamp boundary by more hours than this (0 disables)",
			EnvVars: []string{"GAP_WATCHDOG_MAX_LAG_HOURS"},
			Value:   48,
		},
		&cli.StringFlag{
			Name:    "metrics-host",
			Usage:   "Host for Prometheus metrics server (empty for all interfaces)",
			EnvVars: []string{"METRICS_HOST"},
			Value:   "",
		},
		&cli.IntFlag{
			Name:    "metrics-port",
			Aliases: []string{"m"},
			Usage:   "Port for Prometheus metrics server",
			EnvVars: []string{"METRICS_PORT"},
			Value:   9090,
		},
		&cli.StringFlag{
			Name:    "environment",
			Aliases: []string{"E"},
			Usage:   "Deployment environment for metrics labels (e.g., 'production', 'staging')",
			EnvVars: []string{"ENVIRONMENT"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"R"},
			Usage:   "Cloud region for metrics labels (e.g., 'westeurope')",
			EnvVars: []string{"REGION"},
			Value:   "",
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "The Kafka brokers to use (comma-separated list)",
			EnvVars: []string{"KAFKA_BROKERS"},
			Value:   "localhost:9092",
		},
		&cli.StringFlag{
			Name:    "kafka-topic",
			Aliases: []string{"t"},
			Usage:   "The Kafka topic measurement events are produced to",
			EnvVars: []string{"KAFKA_TOPIC"},
			Value:   "measurements",
		},
		&cli.BoolFlag{
			Name:    "kafka-enable-logs",
			Aliases: []string{"l"},
			Usage:   "Enable Kafka logs",
			EnvVars: []string{"KAFKA_ENABLE_LOGS"},
			Value:   false,
		},
		&cli.StringFlag{
			Name:    "kafka-client-id",
			Usage:   "The Kafka client ID to use",
			EnvVars: []string{"KAFKA_CLIENT_ID"},
			Value:   "measurementsyncer",
		},
		&cli.IntFlag{
			Name:    "kafka-topic-num-partitions",
			Usage:   "The number of partitions to use for the Kafka topic (must be greater than 0)",
			EnvVars: []string{"KAFKA_TOPIC_NUM_PARTITIONS"},
			Value:   1,
		},
		&cli.IntFlag{
			Name:    "kafka-topic-replication-factor",
			Usage:   "The replication factor to use for the Kafka topic (must be greater than 0)",
			EnvVars: []string{"KAFKA_TOPIC_REPLICATION_FACTOR"},
			Value:   1,
		},
		&cli.DurationFlag{
			Name:    "kafka-flush-timeout",
			Usage:   "How long to wait for outstanding events on shutdown",
			EnvVars: []string{"KAFKA_FLUSH_TIMEOUT"},
			Value:   15 * time.Second,
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-username",
			Usage:   "SASL username for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_USERNAME"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-password",
			Usage:   "SASL password for Kafka authentication",
			EnvVars: []string{"KAFKA_SASL_PASSWORD"},
		},
		&cli.StringFlag{
			Name:    "kafka-sasl-mechanism",
			Usage:   "SASL mechanism (SCRAM-SHA-256, SCRAM-SHA-512, or PLAIN)",
			EnvVars: []string{"KAFKA_SASL_MECHANISM"},
			Value:   "SCRAM-SHA-512",
		},
		&cli.StringFlag{
			Name:    "kafka-security-protocol",
			Usage:   "Security protocol (SASL_SSL or SASL_PLAINTEXT)",
			EnvVars: []string{"KAFKA_SECURITY_PROTOCOL"},
			Value:   "SASL_SSL",
		},
	}
	return append(flags, storeFlags()...)
}

// storeFlags select and configure the window-state store. Shared by run and remove.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "store",
			Aliases: []string{"s"},
			Usage:   "Window-state store (clickhouse, postgres or memory)",
			EnvVars: []string{"STORE"},
			Value:   storeClickHouse,
		},
		&cli.IntFlag{
			Name:    "window-cache-size",
			Usage:   "Number of windows kept in the read-through cache in front of the store",
			EnvVars: []string{"WINDOW_CACHE_SIZE"},
			Value:   10000,
		},
		&cli.StringFlag{
			Name:    "postgres-dsn",
			Usage:   "PostgreSQL connection string, required for the postgres store",
			EnvVars: []string{"POSTGRES_DSN"},
		},
		&cli.StringFlag{
			Name:    "checkpoint-table-name",
			Aliases: []string{"T"},
			Usage:   "The name of the table sliding windows are stored in",
			EnvVars: []string{"CHECKPOINT_TABLE_NAME"},
			Value:   "sliding_windows",
		},
		&cli.DurationFlag{
			Name:    "checkpoint-write-timeout",
			Usage:   "Timeout for each window write",
			EnvVars: []string{"CHECKPOINT_WRITE_TIMEOUT"},
			Value:   5 * time.Second,
		},
		&cli.IntFlag{
			Name:    "checkpoint-max-retries",
			Usage:   "Retries of a failed window write",
			EnvVars: []string{"CHECKPOINT_MAX_RETRIES"},
			Value:   3,
		},
		&cli.DurationFlag{
			Name:    "checkpoint-retry-backoff",
			Usage:   "Backoff between window write retries",
			EnvVars: []string{"CHECKPOINT_RETRY_BACKOFF"},
			Value:   300 * time.Millisecond,
		},
	}
}

// removeFlags returns the flags of the remove command
func removeFlags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:     "gsrn",
			Aliases:  []string{"g"},
			Usage:    "The GSRN of the metering point whose window is removed",
			EnvVars:  []string{"GSRN"},
			Required: true,
		},
	}
	return append(flags, storeFlags()...)
}
