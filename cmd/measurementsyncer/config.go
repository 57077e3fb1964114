package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/kafka"
	"github.com/ettgrid/measurements-syncer/pkg/scheduler"
	"github.com/ettgrid/measurements-syncer/pkg/syncer"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Config holds all configuration for the measurementsyncer application
type Config struct {
	// Application settings
	Verbose bool

	// Sync settings
	Disabled                     bool
	MinimumAgeBeforeIssuingHours int
	SleepMode                    scheduler.Mode
	Concurrency                  int64
	DefaultStartDate             types.UnixTimestamp

	// Sync target settings
	ContractsURL     string
	ContractsTimeout time.Duration
	SyncTargetsFile  string

	// Window-state settings
	Store      storeConfig
	Checkpoint checkpointer.Config

	// Kafka settings
	Kafka kafka.ProducerConfig

	// Gap watchdog settings
	GapWatchdogMaxMissingHours int64
	GapWatchdogMaxLagHours     int64

	// Metrics settings
	MetricsHost string
	MetricsPort int
	Environment string
	Region      string
}

// MetricsAddr returns the formatted metrics address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

// WorkerConfig returns the settings the sync worker runs with.
func (c *Config) WorkerConfig() syncer.Config {
	return syncer.Config{
		Disabled:         c.Disabled,
		Concurrency:      c.Concurrency,
		DefaultStartDate: c.DefaultStartDate,
		Checkpoint:       c.Checkpoint,
	}
}

func (c *Config) Validate() error {
	if c.MinimumAgeBeforeIssuingHours < 0 {
		return errors.New("minimum-age-before-issuing-hours must not be negative")
	}
	if c.ContractsURL == "" && c.SyncTargetsFile == "" {
		return errors.New("one of contracts-url or sync-targets-file is required")
	}
	if c.GapWatchdogMaxMissingHours < 0 || c.GapWatchdogMaxLagHours < 0 {
		return errors.New("gap watchdog thresholds must not be negative")
	}
	return errors.Join(
		c.WorkerConfig().Validate(),
		c.Store.Validate(),
		c.Kafka.Validate(),
	)
}

// buildConfig builds a Config from CLI context flags
func buildConfig(c *cli.Context) (*Config, error) {
	mode, err := scheduler.ParseMode(c.String("sleep-mode"))
	if err != nil {
		return nil, err
	}

	start, err := parseStartDate(c.String("default-start-date"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Verbose:                      c.Bool("verbose"),
		Disabled:                     c.Bool("disabled"),
		MinimumAgeBeforeIssuingHours: c.Int("minimum-age-before-issuing-hours"),
		SleepMode:                    mode,
		Concurrency:                  c.Int64("concurrency"),
		DefaultStartDate:             start,
		ContractsURL:                 c.String("contracts-url"),
		ContractsTimeout:             c.Duration("contracts-timeout"),
		SyncTargetsFile:              c.String("sync-targets-file"),
		Store:                        buildStoreConfig(c),
		Checkpoint: checkpointer.Config{
			WriteTimeout: c.Duration("checkpoint-write-timeout"),
			MaxRetries:   c.Int("checkpoint-max-retries"),
			RetryBackoff: c.Duration("checkpoint-retry-backoff"),
		},
		Kafka: kafka.ProducerConfig{
			Brokers:           c.String("kafka-brokers"),
			Topic:             c.String("kafka-topic"),
			ClientID:          c.String("kafka-client-id"),
			NumPartitions:     c.Int("kafka-topic-num-partitions"),
			ReplicationFactor: c.Int("kafka-topic-replication-factor"),
			EnableLogs:        c.Bool("kafka-enable-logs"),
			FlushTimeout:      c.Duration("kafka-flush-timeout"),
			SASL: kafka.SASLConfig{
				Username:         c.String("kafka-sasl-username"),
				Password:         c.String("kafka-sasl-password"),
				Mechanism:        c.String("kafka-sasl-mechanism"),
				SecurityProtocol: c.String("kafka-security-protocol"),
			},
		},
		GapWatchdogMaxMissingHours: c.Int64("gap-watchdog-max-missing-hours"),
		GapWatchdogMaxLagHours:     c.Int64("gap-watchdog-max-lag-hours"),
		MetricsHost:                c.String("metrics-host"),
		MetricsPort:                c.Int("metrics-port"),
		Environment:                c.String("environment"),
		Region:                     c.String("region"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildStoreConfig builds the store selection shared by the run and remove commands
func buildStoreConfig(c *cli.Context) storeConfig {
	return storeConfig{
		Kind:        c.String("store"),
		CacheSize:   c.Int("window-cache-size"),
		PostgresDSN: c.String("postgres-dsn"),
		TableName:   c.String("checkpoint-table-name"),
	}
}

// parseStartDate parses an RFC3339 date and floors it to the hour.
func parseStartDate(s string) (types.UnixTimestamp, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid default-start-date %q: %w", s, err)
	}
	return types.FromTime(t).RoundToLatestHour(), nil
}
