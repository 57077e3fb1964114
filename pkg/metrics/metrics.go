package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	Namespace = "measurements_syncer"

	// Status label values for success/error metrics
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"

	Filter     = "filter"
	Fetch      = "fetch"
	Events     = "events"
	Window     = "window"
	Checkpoint = "checkpoint"
	Contracts  = "contracts"
)

// Filter rejection reasons, one per filtering predicate.
const (
	ReasonGSRNMismatch    = "gsrn_mismatch"
	ReasonQuantityMissing = "quantity_missing"
	ReasonDuplicate       = "duplicate"
	ReasonQuality         = "quality"
	ReasonQuantityTooLow  = "quantity_too_low"
	ReasonQuantityTooHigh = "quantity_too_high"

	// ReasonBeyondSyncPoint counts confirmed measurements held back because
	// they end after the synchronization point.
	ReasonBeyondSyncPoint = "beyond_sync_point"
)

// Reasons a sync target is dropped from the list returned by the contracts source.
const (
	TargetMissingGSRN   = "missing_gsrn"
	TargetDuplicateGSRN = "duplicate_gsrn"
	TargetUnknownType   = "unknown_type"
	TargetInvalidRange  = "invalid_range"
)

// Stages used to label per-metering-point cycle failures.
const (
	StageLoad    = "load"
	StageFetch   = "fetch"
	StagePublish = "publish"
	StageSave    = "save"
)

// Labels holds constant labels applied to all metrics.
type Labels struct {
	Environment string // Deployment environment (e.g., "production", "staging")
	Region      string // Cloud region (e.g., "westeurope")
}

// toPrometheusLabels converts Labels to prometheus.Labels map.
// Only non-empty labels are included to avoid empty label values.
func (l Labels) toPrometheusLabels() prometheus.Labels {
	labels := prometheus.Labels{}
	if l.Environment != "" {
		labels["environment"] = l.Environment
	}
	if l.Region != "" {
		labels["region"] = l.Region
	}
	return labels
}

type Metrics struct {
	// Measurement flow
	measurementsFetched   prometheus.Counter
	measurementsFiltered  *prometheus.CounterVec
	measurementsConfirmed prometheus.Counter
	measurementsRecovered prometheus.Counter

	// Window state
	missingIntervals   prometheus.Histogram
	syncPointAdvances  prometheus.Counter
	syncLagHours       prometheus.Histogram
	checkpointWrites   *prometheus.CounterVec
	windowCacheResults *prometheus.CounterVec

	// Upstream fetches
	fetchCalls    *prometheus.CounterVec
	fetchDuration prometheus.Histogram

	// Events
	eventsPublished *prometheus.CounterVec

	// Sync targets
	targetsRejected *prometheus.CounterVec

	// Cycles
	cycles                  prometheus.Counter
	cycleDuration           prometheus.Histogram
	meteringPointsProcessed *prometheus.CounterVec
	cycleErrors             *prometheus.CounterVec
}

// New creates a new Metrics instance and registers all metrics with the provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	return NewWithLabels(reg, Labels{})
}

// NewWithLabels creates a new Metrics instance with constant labels applied to all metrics.
func NewWithLabels(reg prometheus.Registerer, labels Labels) (*Metrics, error) {
	promLabels := labels.toPrometheusLabels()
	if len(promLabels) > 0 {
		reg = prometheus.WrapRegistererWith(promLabels, reg)
	}

	return newMetrics(reg)
}

func newMetrics(reg prometheus.Registerer) (*Metrics, error) {
	durationBuckets := []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

	m := &Metrics{
		measurementsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "measurements_fetched_total",
			Help:      "Total raw measurements returned by the upstream registry",
		}),
		measurementsFiltered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Filter,
			Name:      "rejected_total",
			Help:      "Total measurements rejected by the filter, by reason",
		}, []string{"reason"}),
		measurementsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Filter,
			Name:      "confirmed_total",
			Help:      "Total measurements that survived every filter",
		}),
		measurementsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Filter,
			Name:      "recovered_total",
			Help:      "Total measurements admitted because they fill a recorded missing interval",
		}),
		missingIntervals: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "missing_intervals",
			Help:      "Number of missing intervals carried by a window after an update",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		syncPointAdvances: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "sync_point_advances_total",
			Help:      "Total number of times a synchronization point moved forward",
		}),
		syncLagHours: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Window,
			Name:      "sync_lag_hours",
			Help:      "Hours between the clamp boundary and the synchronization point after an update",
			Buckets:   []float64{0, 1, 2, 6, 12, 24, 48, 168, 720},
		}),
		checkpointWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Checkpoint,
			Name:      "writes_total",
			Help:      "Total window state writes by status",
		}, []string{"status"}),
		windowCacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Checkpoint,
			Name:      "cache_lookups_total",
			Help:      "Window cache lookups by result (hit/miss)",
		}, []string{"result"}),
		fetchCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "calls_total",
			Help:      "Total upstream fetch calls by status",
		}, []string{"status"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: Fetch,
			Name:      "duration_seconds",
			Help:      "Upstream fetch duration in seconds",
			Buckets:   durationBuckets,
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Events,
			Name:      "published_total",
			Help:      "Total outbound events by publish status",
		}, []string{"status"}),
		targetsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: Contracts,
			Name:      "rejected_targets_total",
			Help:      "Sync targets dropped from a listing, by reason",
		}, []string{"reason"}),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycles_total",
			Help:      "Total completed sync cycles",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Time to process every metering point once",
			Buckets:   durationBuckets,
		}),
		meteringPointsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "metering_points_processed_total",
			Help:      "Metering points processed by outcome",
		}, []string{"status"}),
		cycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "cycle_errors_total",
			Help:      "Per-metering-point failures by stage",
		}, []string{"stage"}),
	}

	err := errors.Join(
		reg.Register(m.measurementsFetched),
		reg.Register(m.measurementsFiltered),
		reg.Register(m.measurementsConfirmed),
		reg.Register(m.measurementsRecovered),
		reg.Register(m.missingIntervals),
		reg.Register(m.syncPointAdvances),
		reg.Register(m.syncLagHours),
		reg.Register(m.checkpointWrites),
		reg.Register(m.windowCacheResults),
		reg.Register(m.fetchCalls),
		reg.Register(m.fetchDuration),
		reg.Register(m.eventsPublished),
		reg.Register(m.targetsRejected),
		reg.Register(m.cycles),
		reg.Register(m.cycleDuration),
		reg.Register(m.meteringPointsProcessed),
		reg.Register(m.cycleErrors),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// AddFetched records the number of raw measurements returned by one fetch.
func (m *Metrics) AddFetched(count int) {
	if m == nil {
		return
	}
	m.measurementsFetched.Add(float64(count))
}

// IncFiltered records one measurement rejected for the given reason.
func (m *Metrics) IncFiltered(reason string) {
	if m == nil {
		return
	}
	m.measurementsFiltered.WithLabelValues(reason).Inc()
}

func (m *Metrics) AddConfirmed(count int) {
	if m == nil {
		return
	}
	m.measurementsConfirmed.Add(float64(count))
}

func (m *Metrics) IncRecovered() {
	if m == nil {
		return
	}
	m.measurementsRecovered.Inc()
}

// RecordWindowUpdate records the outcome of one sliding window update.
func (m *Metrics) RecordWindowUpdate(advanced bool, missingIntervals int, lagHours int64) {
	if m == nil {
		return
	}
	if advanced {
		m.syncPointAdvances.Inc()
	}
	m.missingIntervals.Observe(float64(missingIntervals))
	m.syncLagHours.Observe(float64(lagHours))
}

func (m *Metrics) RecordCheckpointWrite(err error) {
	if m == nil {
		return
	}
	m.checkpointWrites.WithLabelValues(statusOf(err)).Inc()
}

func (m *Metrics) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.windowCacheResults.WithLabelValues(result).Inc()
}

// RecordFetch records an upstream fetch outcome.
func (m *Metrics) RecordFetch(err error, durationSeconds float64) {
	if m == nil {
		return
	}
	m.fetchCalls.WithLabelValues(statusOf(err)).Inc()
	m.fetchDuration.Observe(durationSeconds)
}

func (m *Metrics) RecordPublish(err error) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(statusOf(err)).Inc()
}

// IncTargetRejected records one sync target dropped for the given reason.
func (m *Metrics) IncTargetRejected(reason string) {
	if m == nil {
		return
	}
	m.targetsRejected.WithLabelValues(reason).Inc()
}

// RecordMeteringPoint records the outcome of processing one metering point.
// A failed point is additionally counted against the stage that failed.
func (m *Metrics) RecordMeteringPoint(status, stage string) {
	if m == nil {
		return
	}
	m.meteringPointsProcessed.WithLabelValues(status).Inc()
	if status == StatusError && stage != "" {
		m.cycleErrors.WithLabelValues(stage).Inc()
	}
}

func (m *Metrics) ObserveCycle(durationSeconds float64) {
	if m == nil {
		return
	}
	m.cycles.Inc()
	m.cycleDuration.Observe(durationSeconds)
}
