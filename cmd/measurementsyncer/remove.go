package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ettgrid/measurements-syncer/pkg/utils"
)

func remove(c *cli.Context) error {
	ctx := context.Background()
	sugar, err := utils.NewSugaredLogger(true)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	gsrn := c.String("gsrn")
	if gsrn == "" {
		return errors.New("gsrn is required")
	}

	storeCfg := buildStoreConfig(c)
	if err := storeCfg.Validate(); err != nil {
		return fmt.Errorf("invalid store config: %w", err)
	}

	store, release, err := openStore(ctx, storeCfg, sugar)
	if err != nil {
		return err
	}
	defer release()

	if err := store.Delete(ctx, gsrn); err != nil {
		return fmt.Errorf("failed to delete window: %w", err)
	}

	sugar.Infof("sliding window successfully removed for gsrn %s", gsrn)

	return nil
}
