package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ettgrid/measurements-syncer/internal/repository/inmemory"
	"github.com/ettgrid/measurements-syncer/pkg/checkpointer"
	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

const (
	base     = 1710028800 // 2024-03-10T00:00:00Z
	testGSRN = "571313000000000001"
)

func hour(n int64) types.UnixTimestamp {
	return types.UnixTimestamp(base + n*3600)
}

func reading(gsrn string, n int64) types.Measurement {
	return types.Measurement{
		GSRN:     gsrn,
		DateFrom: hour(n),
		DateTo:   hour(n + 1),
		Quantity: 1000 + n,
		Quality:  types.QualityMeasured,
	}
}

func readings(gsrn string, hours ...int64) []types.Measurement {
	out := make([]types.Measurement, 0, len(hours))
	for _, n := range hours {
		out = append(out, reading(gsrn, n))
	}
	return out
}

func target(gsrn string, startHour int64) types.MeteringPointSyncInfo {
	return types.MeteringPointSyncInfo{
		GSRN:              gsrn,
		Owner:             "owner-1",
		MeteringPointType: types.MeteringPointTypeProduction,
		GridArea:          "DK1",
		RecipientID:       "recipient-1",
		StartSyncDate:     hour(startHour),
	}
}

// fakeClient serves canned measurements per GSRN and records every request.
type fakeClient struct {
	mu       sync.Mutex
	data     map[string][]types.Measurement
	err      error
	block    bool
	requests []types.MeasurementInterval
}

func (c *fakeClient) FetchMeasurements(ctx context.Context, gsrn string, from, to types.UnixTimestamp, _ string) ([]types.Measurement, error) {
	c.mu.Lock()
	c.requests = append(c.requests, types.MeasurementInterval{From: from, To: to})
	block, err, ms := c.block, c.err, c.data[gsrn]
	c.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return ms, err
}

func (c *fakeClient) lastRequest() types.MeasurementInterval {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type fakeLister struct {
	mu      sync.Mutex
	targets []types.MeteringPointSyncInfo
	err     error
	calls   int
	onList  func()
}

func (l *fakeLister) ListSyncTargets(context.Context) ([]types.MeteringPointSyncInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.onList != nil {
		l.onList()
	}
	return l.targets, l.err
}

// recordingPublisher records published measurements and fails the listed intervals.
type recordingPublisher struct {
	mu        sync.Mutex
	published []types.Measurement
	fail      map[types.UnixTimestamp]bool
}

func (p *recordingPublisher) Publish(_ context.Context, _ types.MeteringPointSyncInfo, ms []types.Measurement) []types.MeasurementInterval {
	p.mu.Lock()
	defer p.mu.Unlock()
	var failed []types.MeasurementInterval
	for _, m := range ms {
		if p.fail[m.DateFrom] {
			failed = append(failed, m.Interval())
			continue
		}
		p.published = append(p.published, m)
	}
	return failed
}

func (p *recordingPublisher) starts() []types.UnixTimestamp {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.UnixTimestamp, 0, len(p.published))
	for _, m := range p.published {
		out = append(out, m.DateFrom)
	}
	return out
}

// countingSleeper cancels the run after limit waits.
type countingSleeper struct {
	limit  int
	waits  int
	cancel context.CancelFunc
}

func (s *countingSleeper) Wait(ctx context.Context) error {
	s.waits++
	if s.waits >= s.limit {
		s.cancel()
	}
	return ctx.Err()
}

// failingStore wraps a store and fails the selected operations.
type failingStore struct {
	checkpointer.Store
	loadErr error
	saveErr error
}

func (s *failingStore) Load(ctx context.Context, gsrn string) (slidingwindow.Window, bool, error) {
	if s.loadErr != nil {
		return slidingwindow.Window{}, false, s.loadErr
	}
	return s.Store.Load(ctx, gsrn)
}

func (s *failingStore) Save(ctx context.Context, w slidingwindow.Window) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.Store.Save(ctx, w)
}

var errUpstream = errors.New("registry unavailable")

type harness struct {
	client    *fakeClient
	lister    *fakeLister
	store     *inmemory.WindowRepository
	publisher *recordingPublisher
	reg       *prometheus.Registry
	windows   *slidingwindow.Service
	sync      *SyncService
	metrics   *metrics.Metrics
}

// newHarness builds the collaborators of a worker with the clock at nowHour:30.
func newHarness(t *testing.T, nowHour int64, minAge int) *harness {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	now := time.Unix(int64(hour(nowHour))+1800, 0)
	windows, err := slidingwindow.NewService(log, minAge,
		slidingwindow.WithClock(func() time.Time { return now }),
		slidingwindow.WithMetrics(m),
	)
	require.NoError(t, err)

	client := &fakeClient{data: map[string][]types.Measurement{}}
	svc, err := NewSyncService(client, windows, log, m)
	require.NoError(t, err)

	return &harness{
		client:    client,
		lister:    &fakeLister{},
		store:     inmemory.NewWindowRepository(),
		publisher: &recordingPublisher{fail: map[types.UnixTimestamp]bool{}},
		reg:       reg,
		windows:   windows,
		sync:      svc,
		metrics:   m,
	}
}

func testConfig() Config {
	return Config{
		Concurrency:      2,
		DefaultStartDate: hour(0),
		Checkpoint: checkpointer.Config{
			WriteTimeout: time.Second,
			MaxRetries:   1,
			RetryBackoff: time.Millisecond,
		},
	}
}

func (h *harness) worker(t *testing.T, store checkpointer.Store, sleeper Sleeper, opts ...WorkerOption) *Worker {
	t.Helper()
	if store == nil {
		store = h.store
	}
	if sleeper == nil {
		sleeper = &countingSleeper{limit: 1, cancel: func() {}}
	}
	opts = append([]WorkerOption{WithMetrics(h.metrics)}, opts...)
	w, err := NewWorker(zaptest.NewLogger(t).Sugar(), testConfig(), h.lister, store, h.sync, h.windows, h.publisher, sleeper, opts...)
	require.NoError(t, err)
	return w
}

func (h *harness) window(t *testing.T, gsrn string) slidingwindow.Window {
	t.Helper()
	w, ok, err := h.store.Load(context.Background(), gsrn)
	require.NoError(t, err)
	require.True(t, ok, "window %s not persisted", gsrn)
	return w
}

// metricValue sums the counters or histogram sample counts of name whose
// labels include every pair in labels.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, metric := range mf.GetMetric() {
			matched := 0
			for _, lp := range metric.GetLabel() {
				want, ok := labels[lp.GetName()]
				if !ok {
					continue
				}
				if want != lp.GetValue() {
					continue series
				}
				matched++
			}
			if matched != len(labels) {
				continue
			}
			if c := metric.GetCounter(); c != nil {
				total += c.GetValue()
			}
			if h := metric.GetHistogram(); h != nil {
				total += float64(h.GetSampleCount())
			}
		}
	}
	return total
}

func iv(from, to int64) types.MeasurementInterval {
	return types.MeasurementInterval{From: hour(from), To: hour(to)}
}
