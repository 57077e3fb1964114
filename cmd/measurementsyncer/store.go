package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/internal/repository/inmemory"
	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/clickhouse"
	chcheckpoint "github.com/ettgrid/measurements-syncer/pkg/data/clickhouse/checkpoint"
	pgcheckpoint "github.com/ettgrid/measurements-syncer/pkg/data/postgres/checkpoint"
)

const (
	storeClickHouse = "clickhouse"
	storePostgres   = "postgres"
	storeMemory     = "memory"
)

type storeConfig struct {
	Kind        string
	CacheSize   int
	PostgresDSN string
	TableName   string
}

func (c storeConfig) Validate() error {
	switch c.Kind {
	case storeClickHouse, storeMemory:
	case storePostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid store %q: expected %s, %s or %s", c.Kind, storeClickHouse, storePostgres, storeMemory)
	}
	if c.TableName == "" {
		return errors.New("checkpoint-table-name must not be empty")
	}
	if c.CacheSize < 0 {
		return errors.New("window-cache-size must not be negative")
	}
	return nil
}

// openStore connects the configured window-state store and creates its table.
// The returned func releases the connection.
func openStore(ctx context.Context, cfg storeConfig, sugar *zap.SugaredLogger) (checkpointer.Store, func(), error) {
	var (
		store   checkpointer.Store
		release = func() {}
	)

	switch cfg.Kind {
	case storeClickHouse:
		chCfg, err := clickhouse.Load()
		if err != nil {
			return nil, nil, err
		}
		chClient, err := clickhouse.New(chCfg, sugar)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create ClickHouse client: %w", err)
		}
		repo, err := chcheckpoint.NewRepository(chClient, chCfg.Cluster, chCfg.Database, cfg.TableName)
		if err != nil {
			_ = chClient.Close()
			return nil, nil, fmt.Errorf("failed to create window repository: %w", err)
		}
		store, release = repo, func() { _ = chClient.Close() }
		sugar.Infow("using clickhouse window store",
			"database", chCfg.Database,
			"cluster", chCfg.Cluster,
			"table", cfg.TableName,
		)
	case storePostgres:
		repo, err := pgcheckpoint.Open(ctx, cfg.PostgresDSN, cfg.TableName)
		if err != nil {
			return nil, nil, err
		}
		store, release = repo, func() { _ = repo.Close() }
		sugar.Infow("using postgres window store", "table", cfg.TableName)
	case storeMemory:
		store = inmemory.NewWindowRepository()
		sugar.Warn("using in-memory window store, windows are lost on restart")
	default:
		return nil, nil, fmt.Errorf("invalid store %q", cfg.Kind)
	}

	if err := store.Initialize(ctx); err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to initialize %s window store: %w", cfg.Kind, err)
	}
	return store, release, nil
}
