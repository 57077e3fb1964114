package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ettgrid/measurements-syncer/internal/contracts"
	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Publisher publishes confirmed measurements and returns the intervals it could not publish.
type Publisher interface {
	Publish(ctx context.Context, info types.MeteringPointSyncInfo, ms []types.Measurement) []types.MeasurementInterval
}

// Sleeper blocks until the next cycle is due or ctx is done.
type Sleeper interface {
	Wait(ctx context.Context) error
}

// Config holds the worker settings.
type Config struct {
	// Disabled turns Run into a no-op.
	Disabled bool
	// Concurrency bounds how many metering points are processed at once.
	Concurrency int64
	// DefaultStartDate seeds windows of targets that carry no start date.
	DefaultStartDate types.UnixTimestamp
	Checkpoint       checkpointer.Config
}

func (c Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("invalid concurrency: must be greater than 0")
	}
	return c.Checkpoint.Validate()
}

type WorkerOption func(*Worker)

func WithMetrics(m *metrics.Metrics) WorkerOption {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithGapWatchdog(g *slidingwindow.GapWatchdog) WorkerOption {
	return func(w *Worker) {
		w.watchdog = g
	}
}

// WithCycleHook registers f to run after every completed cycle. A disabled
// worker runs f once before Run returns, since no cycle will ever complete.
func WithCycleHook(f func()) WorkerOption {
	return func(w *Worker) {
		w.onCycle = f
	}
}

// Worker drives the sync loop: each cycle it lists the sync targets and runs
// fetch, filter, update, publish and persist for every one of them, then
// sleeps until the next cycle.
type Worker struct {
	log       *zap.SugaredLogger
	cfg       Config
	lister    contracts.Lister
	store     checkpointer.Store
	sync      *SyncService
	windows   *slidingwindow.Service
	publisher Publisher
	sleeper   Sleeper
	sem       *semaphore.Weighted

	metrics  *metrics.Metrics
	watchdog *slidingwindow.GapWatchdog
	onCycle  func()
}

func NewWorker(
	log *zap.SugaredLogger,
	cfg Config,
	lister contracts.Lister,
	store checkpointer.Store,
	syncService *SyncService,
	windows *slidingwindow.Service,
	publisher Publisher,
	sleeper Sleeper,
	opts ...WorkerOption,
) (*Worker, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case lister == nil:
		return nil, errors.New("invalid lister: must not be nil")
	case store == nil:
		return nil, errors.New("invalid store: must not be nil")
	case syncService == nil:
		return nil, errors.New("invalid sync service: must not be nil")
	case windows == nil:
		return nil, errors.New("invalid sliding window service: must not be nil")
	case publisher == nil:
		return nil, errors.New("invalid publisher: must not be nil")
	case sleeper == nil:
		return nil, errors.New("invalid sleeper: must not be nil")
	}

	w := &Worker{
		log:       log,
		cfg:       cfg,
		lister:    lister,
		store:     store,
		sync:      syncService,
		windows:   windows,
		publisher: publisher,
		sleeper:   sleeper,
		sem:       semaphore.NewWeighted(cfg.Concurrency),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run executes cycles until ctx is done. A failed cycle is logged and the
// loop carries on. Run returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.Disabled {
		w.log.Info("measurements syncer is disabled, worker will not run")
		if w.onCycle != nil {
			w.onCycle()
		}
		return nil
	}

	for {
		if err := w.RunCycle(ctx); err != nil && ctx.Err() == nil {
			w.log.Errorw("sync cycle failed", "error", err)
		}
		if w.onCycle != nil {
			w.onCycle()
		}

		if err := w.sleeper.Wait(ctx); err != nil {
			w.log.Infow("stopping measurements syncer", "reason", err)
			return nil
		}
	}
}

// RunCycle processes every sync target once. Metering points are processed
// independently; a failing point is logged and counted but does not affect
// the others. Once ctx is done no further point is started, while points
// already in flight finish.
func (w *Worker) RunCycle(ctx context.Context) error {
	start := time.Now()
	defer func() { w.metrics.ObserveCycle(time.Since(start).Seconds()) }()

	targets, err := w.lister.ListSyncTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sync targets: %w", err)
	}
	w.log.Infow("starting sync cycle", "count", len(targets))

	var wg sync.WaitGroup
	for _, info := range targets {
		if ctx.Err() != nil {
			break
		}
		if err := w.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer w.sem.Release(1)
			w.processMeteringPoint(ctx, info)
		}()
	}
	wg.Wait()

	w.log.Infow("finished sync cycle", "count", len(targets), "duration", time.Since(start))
	return ctx.Err()
}

func (w *Worker) processMeteringPoint(ctx context.Context, info types.MeteringPointSyncInfo) {
	stage, err := w.syncMeteringPoint(ctx, info)
	switch {
	case err == nil && stage == "":
		w.metrics.RecordMeteringPoint(metrics.StatusSuccess, "")
	case err == nil:
		w.metrics.RecordMeteringPoint(metrics.StatusSkipped, "")
	default:
		w.log.Errorw("failed to sync metering point", "gsrn", info.GSRN, "stage", stage, "error", err)
		w.metrics.RecordMeteringPoint(metrics.StatusError, stage)
	}
}

// syncMeteringPoint runs one cycle for one metering point. On failure it
// returns the stage that failed; a nil error with a non-empty stage means the
// point was skipped at that stage.
func (w *Worker) syncMeteringPoint(ctx context.Context, info types.MeteringPointSyncInfo) (string, error) {
	window, err := w.loadOrSeed(ctx, info)
	if err != nil {
		return metrics.StageLoad, err
	}

	rng, ok := w.sync.FetchRange(info, window)
	if !ok {
		w.log.Debugw("nothing to fetch", "gsrn", info.GSRN, "from", rng.From, "to", rng.To)
		return metrics.StageFetch, nil
	}

	ms, err := w.sync.Fetch(ctx, info, rng)
	if err != nil {
		return metrics.StageFetch, err
	}

	confirmed := w.windows.FilterMeasurements(window, ms)
	next := w.windows.UpdateSlidingWindow(window, ms, rng.To)

	publishable := make([]types.Measurement, 0, len(confirmed))
	for _, m := range confirmed {
		if m.DateFrom >= next.SynchronizationPoint {
			w.metrics.IncFiltered(metrics.ReasonBeyondSyncPoint)
			continue
		}
		publishable = append(publishable, m)
	}

	// The fetch has completed; from here on the point runs to completion.
	persistCtx := context.WithoutCancel(ctx)

	if failed := w.publisher.Publish(persistCtx, info, publishable); len(failed) > 0 {
		w.log.Warnw("returning unpublished measurements to missing intervals",
			"gsrn", info.GSRN,
			"count", len(failed),
		)
		next = next.WithMissing(failed...)
	}

	if err := checkpointer.SaveWithRetry(persistCtx, w.store, next, w.cfg.Checkpoint, w.metrics); err != nil {
		return metrics.StageSave, err
	}

	if w.watchdog != nil {
		w.watchdog.Inspect(next, w.windows.ClampBoundary())
	}
	w.log.Debugw("synced metering point",
		"gsrn", info.GSRN,
		"from", window.SynchronizationPoint,
		"to", next.SynchronizationPoint,
		"published", len(publishable),
		"missing", len(next.MissingMeasurements),
	)
	return "", nil
}

// loadOrSeed returns the persisted window for info, or a new window seeded at
// the target's start date (or the default start date) rounded down to the hour.
func (w *Worker) loadOrSeed(ctx context.Context, info types.MeteringPointSyncInfo) (slidingwindow.Window, error) {
	window, exists, err := w.store.Load(ctx, info.GSRN)
	if err != nil {
		return slidingwindow.Window{}, fmt.Errorf("failed to load window %s: %w", info.GSRN, err)
	}
	if exists {
		return window, nil
	}

	start := info.StartSyncDate
	if start == 0 {
		start = w.cfg.DefaultStartDate
	}
	w.log.Infow("seeding new sliding window", "gsrn", info.GSRN, "from", start.RoundToLatestHour())
	return slidingwindow.New(info.GSRN, start.RoundToLatestHour()), nil
}
