// Package contracts lists the metering points that should be synchronized.
package contracts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Lister returns the current set of metering points to synchronize.
type Lister interface {
	ListSyncTargets(ctx context.Context) ([]types.MeteringPointSyncInfo, error)
}

var ErrInvalidTarget = errors.New("invalid sync target")

// checkTarget returns the rejection reason and an error wrapping
// ErrInvalidTarget when t cannot be synchronized.
func checkTarget(t types.MeteringPointSyncInfo) (string, error) {
	if t.GSRN == "" {
		return metrics.TargetMissingGSRN, fmt.Errorf("%w: no gsrn", ErrInvalidTarget)
	}
	switch t.MeteringPointType {
	case types.MeteringPointTypeProduction, types.MeteringPointTypeConsumption:
	default:
		return metrics.TargetUnknownType, fmt.Errorf("%w: metering point type %q", ErrInvalidTarget, t.MeteringPointType)
	}
	if t.HasEnd() && t.EndSyncDate <= t.StartSyncDate {
		return metrics.TargetInvalidRange, fmt.Errorf("%w: ends at %d before it starts at %d", ErrInvalidTarget, t.EndSyncDate, t.StartSyncDate)
	}
	return "", nil
}

// filterTargets drops the entries that cannot be synchronized and keeps the
// rest in order. Of several entries for one GSRN only the first valid one is
// kept. Every dropped entry is logged and counted.
func filterTargets(
	targets []types.MeteringPointSyncInfo,
	source string,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) []types.MeteringPointSyncInfo {
	kept := make([]types.MeteringPointSyncInfo, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))

	for i, t := range targets {
		reason, err := checkTarget(t)
		if err == nil {
			if _, dup := seen[t.GSRN]; dup {
				reason, err = metrics.TargetDuplicateGSRN, fmt.Errorf("%w: duplicate gsrn", ErrInvalidTarget)
			}
		}
		if err != nil {
			log.Warnw("dropping sync target",
				"source", source,
				"entry", i,
				"gsrn", t.GSRN,
				"reason", reason,
				"error", err,
			)
			m.IncTargetRejected(reason)
			continue
		}
		seen[t.GSRN] = struct{}{}
		kept = append(kept, t)
	}
	return kept
}
