package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/internal/measurementclient"
	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// SyncService runs the fetch step of one cycle for one metering point.
type SyncService struct {
	client  measurementclient.Client
	windows *slidingwindow.Service
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

func NewSyncService(
	client measurementclient.Client,
	windows *slidingwindow.Service,
	log *zap.SugaredLogger,
	m *metrics.Metrics,
) (*SyncService, error) {
	if client == nil {
		return nil, errors.New("invalid measurement client: must not be nil")
	}
	if windows == nil {
		return nil, errors.New("invalid sliding window service: must not be nil")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	return &SyncService{
		client:  client,
		windows: windows,
		log:     log,
		metrics: m,
	}, nil
}

// FetchRange returns the half-open range to fetch for w. The range starts at
// the window's next fetch start and ends at the clamp boundary, or at the
// target's end date when that comes first. ok is false when the range is empty.
func (s *SyncService) FetchRange(info types.MeteringPointSyncInfo, w slidingwindow.Window) (rng types.MeasurementInterval, ok bool) {
	to := s.windows.ClampBoundary()
	if info.HasEnd() {
		to = types.Min(to, info.EndSyncDate)
	}
	rng = types.MeasurementInterval{From: s.windows.NextFetchIntervalStart(w), To: to}
	return rng, !rng.IsEmpty()
}

// Fetch calls the upstream source once for rng. Upstream failures are logged
// and reported as an empty result. The returned error is non-nil only when ctx
// ended before the fetch completed.
func (s *SyncService) Fetch(ctx context.Context, info types.MeteringPointSyncInfo, rng types.MeasurementInterval) ([]types.Measurement, error) {
	start := time.Now()
	ms, err := s.client.FetchMeasurements(ctx, info.GSRN, rng.From, rng.To, info.Owner)
	s.metrics.RecordFetch(err, time.Since(start).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("fetch %s interrupted: %w", info.GSRN, ctxErr)
		}
		s.log.Warnw("failed to fetch measurements, treating as empty",
			"gsrn", info.GSRN,
			"from", rng.From,
			"to", rng.To,
			"error", err,
		)
		return nil, nil
	}

	s.metrics.AddFetched(len(ms))
	s.log.Debugw("fetched measurements",
		"gsrn", info.GSRN,
		"from", rng.From,
		"to", rng.To,
		"count", len(ms),
	)
	return ms, nil
}
