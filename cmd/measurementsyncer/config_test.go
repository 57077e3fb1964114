package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zaptest"

	"github.com/ettgrid/measurements-syncer/internal/repository/inmemory"
	"github.com/ettgrid/measurements-syncer/pkg/scheduler"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// parseRun runs the CLI with the run command replaced by one that only builds the config.
func parseRun(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	var cfg *Config
	app := newApp()
	app.Commands[0].Action = func(c *cli.Context) error {
		var err error
		cfg, err = buildConfig(c)
		return err
	}
	err := app.Run(append([]string{"measurementsyncer"}, args...))
	return cfg, err
}

func TestBuildConfig_Defaults(t *testing.T) {
	cfg, err := parseRun(t, "run", "--sync-targets-file", "targets.yaml")
	require.NoError(t, err)

	assert.False(t, cfg.Disabled)
	assert.Equal(t, 0, cfg.MinimumAgeBeforeIssuingHours)
	assert.Equal(t, scheduler.ModeHourly, cfg.SleepMode)
	assert.Equal(t, int64(1), cfg.Concurrency)
	assert.Equal(t, types.UnixTimestamp(1704067200), cfg.DefaultStartDate)
	assert.Equal(t, "targets.yaml", cfg.SyncTargetsFile)
	assert.Equal(t, storeConfig{Kind: storeClickHouse, CacheSize: 10000, TableName: "sliding_windows"}, cfg.Store)
	assert.Equal(t, 5*time.Second, cfg.Checkpoint.WriteTimeout)
	assert.Equal(t, 3, cfg.Checkpoint.MaxRetries)
	assert.Equal(t, 300*time.Millisecond, cfg.Checkpoint.RetryBackoff)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "measurements", cfg.Kafka.Topic)
	assert.False(t, cfg.Kafka.SASL.Enabled())
	assert.Equal(t, int64(24), cfg.GapWatchdogMaxMissingHours)
	assert.Equal(t, int64(48), cfg.GapWatchdogMaxLagHours)
	assert.Equal(t, ":9090", cfg.MetricsAddr())
}

func TestBuildConfig_Flags(t *testing.T) {
	cfg, err := parseRun(t, "run",
		"--disabled",
		"--minimum-age-before-issuing-hours", "3",
		"--sleep-mode", "every-thirty-seconds",
		"--concurrency", "8",
		"--default-start-date", "2024-03-10T12:45:00+01:00",
		"--contracts-url", "http://contracts:8080",
		"--store", "postgres",
		"--postgres-dsn", "postgres://syncer@localhost/syncer?sslmode=disable",
		"--window-cache-size", "0",
		"--kafka-sasl-username", "syncer",
		"--kafka-sasl-password", "secret",
		"--metrics-host", "127.0.0.1",
		"--metrics-port", "9100",
	)
	require.NoError(t, err)

	assert.True(t, cfg.Disabled)
	assert.Equal(t, 3, cfg.MinimumAgeBeforeIssuingHours)
	assert.Equal(t, scheduler.ModeEveryThirtySeconds, cfg.SleepMode)
	assert.Equal(t, types.UnixTimestamp(1710068400), cfg.DefaultStartDate)
	assert.Equal(t, "http://contracts:8080", cfg.ContractsURL)
	assert.Equal(t, storePostgres, cfg.Store.Kind)
	assert.Zero(t, cfg.Store.CacheSize)
	assert.True(t, cfg.Kafka.SASL.Enabled())
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddr())

	wc := cfg.WorkerConfig()
	assert.True(t, wc.Disabled)
	assert.Equal(t, int64(8), wc.Concurrency)
	assert.Equal(t, cfg.DefaultStartDate, wc.DefaultStartDate)
	assert.Equal(t, cfg.Checkpoint, wc.Checkpoint)
}

func TestBuildConfig_EnvVars(t *testing.T) {
	t.Setenv("CONCURRENCY", "4")
	t.Setenv("CONTRACTS_URL", "http://contracts")
	t.Setenv("STORE", "memory")
	t.Setenv("KAFKA_TOPIC", "confirmed-measurements")

	cfg, err := parseRun(t, "run")
	require.NoError(t, err)
	assert.Equal(t, int64(4), cfg.Concurrency)
	assert.Equal(t, "http://contracts", cfg.ContractsURL)
	assert.Equal(t, storeMemory, cfg.Store.Kind)
	assert.Equal(t, "confirmed-measurements", cfg.Kafka.Topic)
}

func TestBuildConfig_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SYNC_TARGETS_FILE=from-env.yaml\nMINIMUM_AGE_BEFORE_ISSUING_HOURS=2\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("SYNC_TARGETS_FILE")                //nolint:errcheck
		os.Unsetenv("MINIMUM_AGE_BEFORE_ISSUING_HOURS") //nolint:errcheck
	})

	cfg, err := parseRun(t, "--env-file", path, "run")
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", cfg.SyncTargetsFile)
	assert.Equal(t, 2, cfg.MinimumAgeBeforeIssuingHours)
}

func TestBuildConfig_EnvFileMissing(t *testing.T) {
	_, err := parseRun(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "run")
	require.ErrorContains(t, err, "failed to load env file")
}

func TestBuildConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no sync target source",
			args:    nil,
			wantErr: "one of contracts-url or sync-targets-file is required",
		},
		{
			name:    "unknown sleep mode",
			args:    []string{"--sleep-mode", "daily"},
			wantErr: "unknown sleep mode",
		},
		{
			name:    "bad start date",
			args:    []string{"--default-start-date", "2024-01-01"},
			wantErr: "invalid default-start-date",
		},
		{
			name:    "negative minimum age",
			args:    []string{"--minimum-age-before-issuing-hours", "-1"},
			wantErr: "minimum-age-before-issuing-hours must not be negative",
		},
		{
			name:    "zero concurrency",
			args:    []string{"--concurrency", "0"},
			wantErr: "invalid concurrency",
		},
		{
			name:    "postgres without dsn",
			args:    []string{"--store", "postgres"},
			wantErr: "postgres-dsn is required",
		},
		{
			name:    "unknown store",
			args:    []string{"--store", "dynamodb"},
			wantErr: `invalid store "dynamodb"`,
		},
		{
			name:    "sasl without password",
			args:    []string{"--kafka-sasl-username", "syncer"},
			wantErr: "sasl password must be set",
		},
		{
			name:    "zero partitions",
			args:    []string{"--kafka-topic-num-partitions", "0"},
			wantErr: "number of partitions must be > 0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := []string{"run"}
			if tt.name != "no sync target source" {
				args = append(args, "--sync-targets-file", "targets.yaml")
			}
			_, err := parseRun(t, append(args, tt.args...)...)
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOpenStore_Memory(t *testing.T) {
	t.Parallel()

	store, release, err := openStore(t.Context(), storeConfig{Kind: storeMemory, TableName: "sliding_windows"}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer release()
	assert.IsType(t, &inmemory.WindowRepository{}, store)
}

func TestOpenStore_Unknown(t *testing.T) {
	t.Parallel()

	_, _, err := openStore(t.Context(), storeConfig{Kind: "dynamodb"}, zaptest.NewLogger(t).Sugar())
	require.Error(t, err)
}

func TestRemove_MemoryStore(t *testing.T) {
	t.Parallel()

	err := newApp().Run([]string{"measurementsyncer", "remove", "--gsrn", "571313000000000001", "--store", "memory"})
	require.NoError(t, err)
}

func TestRemove_RequiresGSRN(t *testing.T) {
	t.Parallel()

	err := newApp().Run([]string{"measurementsyncer", "remove", "--store", "memory"})
	require.Error(t, err)
}
