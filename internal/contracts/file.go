package contracts

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// FileLister reads sync targets from a YAML file on every call, so edits
// take effect on the next cycle without a restart. Invalid entries are
// dropped, the others are still returned.
//
//	targets:
//	  - gsrn: "571313000000000001"
//	    owner: owner-1
//	    metering_point_type: production
//	    grid_area: DK1
//	    recipient_id: recipient-1
//	    start_sync_date: 1704067200
type FileLister struct {
	path    string
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

var _ Lister = (*FileLister)(nil)

type targetsFile struct {
	Targets []types.MeteringPointSyncInfo `yaml:"targets"`
}

func NewFileLister(path string, log *zap.SugaredLogger, m *metrics.Metrics) (*FileLister, error) {
	if path == "" {
		return nil, errors.New("invalid sync targets file: path must not be empty")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	return &FileLister{path: path, log: log, metrics: m}, nil
}

func (l *FileLister) ListSyncTargets(ctx context.Context) ([]types.MeteringPointSyncInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sync targets file: %w", err)
	}

	var f targetsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sync targets file %s: %w", l.path, err)
	}
	return filterTargets(f.Targets, l.path, l.log, l.metrics), nil
}
