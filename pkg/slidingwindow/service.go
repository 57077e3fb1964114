package slidingwindow

import (
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Service filters fetched measurements against a window and computes the
// window that results from a fetch. It holds no per-metering-point state.
type Service struct {
	log             *zap.SugaredLogger
	metrics         *metrics.Metrics
	now             func() time.Time
	minimumAgeHours int64
}

type Option func(*Service)

// WithClock overrides the wall clock used for the clamp boundary.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service. minimumAgeBeforeIssuingHours holds the
// synchronization point back from the current hour so that data the registry
// may still revise is not confirmed.
func NewService(log *zap.SugaredLogger, minimumAgeBeforeIssuingHours int, opts ...Option) (*Service, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if minimumAgeBeforeIssuingHours < 0 {
		return nil, errors.New("invalid minimum age before issuing: must not be negative")
	}

	s := &Service{
		log:             log,
		now:             time.Now,
		minimumAgeHours: int64(minimumAgeBeforeIssuingHours),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ClampBoundary returns the latest synchronization point allowed right now.
func (s *Service) ClampBoundary() types.UnixTimestamp {
	return types.FromTime(s.now()).RoundToLatestHour().AddHours(-s.minimumAgeHours)
}

// NextFetchIntervalStart returns where the next fetch for w should begin: the
// start of its earliest missing interval, or the synchronization point.
func (s *Service) NextFetchIntervalStart(w Window) types.UnixTimestamp {
	if len(w.MissingMeasurements) > 0 {
		return types.Min(w.MissingMeasurements[0].From, w.SynchronizationPoint)
	}
	return w.SynchronizationPoint
}

// FilterMeasurements returns the measurements that are new, usable data for w,
// in input order. A measurement before the synchronization point survives only
// when it fills a recorded missing interval.
func (s *Service) FilterMeasurements(w Window, ms []types.Measurement) []types.Measurement {
	confirmed := make([]types.Measurement, 0, len(ms))
	rejected := make(map[string]int)
	reject := func(reason string) {
		rejected[reason]++
		s.metrics.IncFiltered(reason)
	}

	for _, m := range ms {
		if m.GSRN != w.GSRN {
			reject(metrics.ReasonGSRNMismatch)
			continue
		}
		if m.QuantityMissing {
			reject(metrics.ReasonQuantityMissing)
			continue
		}
		recovered := false
		if m.DateFrom < w.SynchronizationPoint {
			if !w.IsMissing(m.Interval()) {
				reject(metrics.ReasonDuplicate)
				continue
			}
			recovered = true
		}
		if !m.Quality.IsIssuable() {
			reject(metrics.ReasonQuality)
			continue
		}
		if m.Quantity <= 0 {
			reject(metrics.ReasonQuantityTooLow)
			continue
		}
		if m.Quantity >= types.MaxQuantity {
			reject(metrics.ReasonQuantityTooHigh)
			continue
		}

		if recovered {
			s.metrics.IncRecovered()
		}
		confirmed = append(confirmed, m)
	}

	s.metrics.AddConfirmed(len(confirmed))
	if len(rejected) > 0 {
		s.log.Debugw("filtered measurements",
			"gsrn", w.GSRN,
			"fetched", len(ms),
			"confirmed", len(confirmed),
			"rejected", rejected,
		)
	}
	return confirmed
}

// UpdateSlidingWindow returns the window that results from fetching ms for old,
// with the synchronization point moved to candidate. The candidate is clamped to
// the clamp boundary and never moves the synchronization point backwards.
//
// Gaps are derived by walking the measurements in DateFrom order from the fetch
// start: holes between readings and readings that carry no usable data become
// missing intervals. Before the previous synchronization point a gap can only
// shrink, so the result there is intersected with the previous gaps.
func (s *Service) UpdateSlidingWindow(old Window, ms []types.Measurement, candidate types.UnixTimestamp) Window {
	clamp := s.ClampBoundary()
	candidate = types.Max(types.Min(candidate, clamp), old.SynchronizationPoint)
	fetchStart := s.NextFetchIntervalStart(old)

	own := make([]types.Measurement, 0, len(ms))
	for _, m := range ms {
		if m.GSRN == old.GSRN {
			own = append(own, m)
		}
	}

	var next Window
	if len(own) == 0 {
		if candidate <= old.SynchronizationPoint {
			return old.Clone()
		}
		next = old.Clone()
		next.SynchronizationPoint = candidate
		next.MissingMeasurements = normalize(
			append(next.MissingMeasurements, types.MeasurementInterval{From: old.SynchronizationPoint, To: candidate}),
			fetchStart, candidate,
		)
	} else {
		scanned := normalize(scanGaps(own, fetchStart, candidate), fetchStart, candidate)
		history := intersect(normalize(scanned, fetchStart, old.SynchronizationPoint), old.MissingMeasurements)
		fresh := normalize(scanned, old.SynchronizationPoint, candidate)

		next = Window{
			GSRN:                 old.GSRN,
			SynchronizationPoint: candidate,
			MissingMeasurements:  normalize(append(history, fresh...), fetchStart, candidate),
		}
	}

	lag := int64(clamp-next.SynchronizationPoint) / 3600
	s.metrics.RecordWindowUpdate(next.SynchronizationPoint > old.SynchronizationPoint, len(next.MissingMeasurements), max(lag, 0))
	s.log.Debugw("updated sliding window",
		"gsrn", next.GSRN,
		"from", old.SynchronizationPoint,
		"to", next.SynchronizationPoint,
		"missing", len(next.MissingMeasurements),
	)
	return next
}

// scanGaps walks ms (all for one metering point) and records every span in
// [start, end) not covered by a usable reading.
func scanGaps(ms []types.Measurement, start, end types.UnixTimestamp) []types.MeasurementInterval {
	sorted := slices.Clone(ms)
	slices.SortStableFunc(sorted, func(a, b types.Measurement) int {
		switch {
		case a.DateFrom < b.DateFrom:
			return -1
		case a.DateFrom > b.DateFrom:
			return 1
		}
		return 0
	})

	var (
		gaps    []types.MeasurementInterval
		cursor  = start
		open    bool
		openAt  types.UnixTimestamp
		closeAt = func(to types.UnixTimestamp) {
			gaps = append(gaps, types.MeasurementInterval{From: openAt, To: to})
			open = false
		}
	)

	for _, m := range sorted {
		if !m.IsUsable() {
			if !open {
				open = true
				openAt = cursor
			}
			continue
		}
		if open {
			closeAt(m.DateFrom)
		} else if m.DateFrom > cursor {
			gaps = append(gaps, types.MeasurementInterval{From: cursor, To: m.DateFrom})
		}
		cursor = types.Max(cursor, m.DateTo)
	}

	switch {
	case open:
		closeAt(end)
	case cursor < end:
		gaps = append(gaps, types.MeasurementInterval{From: cursor, To: end})
	}
	return gaps
}
