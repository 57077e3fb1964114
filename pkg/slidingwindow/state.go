package slidingwindow

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

var (
	ErrInvalidGSRN          = errors.New("invalid window: gsrn must not be empty")
	ErrUnsortedMissing      = errors.New("invalid window: missing intervals must be sorted and disjoint")
	ErrMissingPastSyncPoint = errors.New("invalid window: missing interval ends after synchronization point")
)

// unbounded is the lower clip bound used when no fetch start applies.
const unbounded = types.UnixTimestamp(math.MinInt64)

// Window is the synchronization state of one metering point: a high-water mark
// up to which the time series is caught up, and the gaps before it that still
// lack usable data. Window is a value; updates return a new Window.
type Window struct {
	GSRN                 string                      `json:"gsrn"`
	SynchronizationPoint types.UnixTimestamp         `json:"synchronization_point"`
	MissingMeasurements  []types.MeasurementInterval `json:"missing_measurements"`
}

// New returns an empty window for gsrn seeded at syncPoint.
func New(gsrn string, syncPoint types.UnixTimestamp) Window {
	return Window{GSRN: gsrn, SynchronizationPoint: syncPoint}
}

// Clone returns a deep copy of w.
func (w Window) Clone() Window {
	return Window{
		GSRN:                 w.GSRN,
		SynchronizationPoint: w.SynchronizationPoint,
		MissingMeasurements:  slices.Clone(w.MissingMeasurements),
	}
}

// IsMissing reports whether iv lies entirely inside one recorded missing interval.
func (w Window) IsMissing(iv types.MeasurementInterval) bool {
	for _, gap := range w.MissingMeasurements {
		if gap.Contains(iv) {
			return true
		}
	}
	return false
}

// MissingHours returns the total length of all missing intervals in hours.
func (w Window) MissingHours() int64 {
	var total int64
	for _, gap := range w.MissingMeasurements {
		total += gap.Hours()
	}
	return total
}

// WithMissing returns a copy of w with ivs merged into its missing intervals.
// Intervals are clipped to the synchronization point.
func (w Window) WithMissing(ivs ...types.MeasurementInterval) Window {
	out := w.Clone()
	all := append(out.MissingMeasurements, ivs...)
	out.MissingMeasurements = normalize(all, unbounded, w.SynchronizationPoint)
	return out
}

// Validate checks the structural invariants of a window loaded from storage.
func (w Window) Validate() error {
	if w.GSRN == "" {
		return ErrInvalidGSRN
	}
	for i, gap := range w.MissingMeasurements {
		if gap.IsEmpty() {
			return fmt.Errorf("%w: empty interval %s", types.ErrInvalidInterval, gap)
		}
		if gap.To > w.SynchronizationPoint {
			return fmt.Errorf("%w: %s > %d", ErrMissingPastSyncPoint, gap, w.SynchronizationPoint)
		}
		if i > 0 && w.MissingMeasurements[i-1].To > gap.From {
			return fmt.Errorf("%w: %s before %s", ErrUnsortedMissing, w.MissingMeasurements[i-1], gap)
		}
	}
	return nil
}

// normalize clips ivs to [lo, hi], drops empty intervals, sorts them and merges
// overlapping or adjacent ones. The input slice is not modified.
func normalize(ivs []types.MeasurementInterval, lo, hi types.UnixTimestamp) []types.MeasurementInterval {
	clipped := make([]types.MeasurementInterval, 0, len(ivs))
	for _, iv := range ivs {
		iv.From = types.Max(iv.From, lo)
		iv.To = types.Min(iv.To, hi)
		if iv.IsEmpty() {
			continue
		}
		clipped = append(clipped, iv)
	}
	if len(clipped) == 0 {
		return nil
	}

	slices.SortFunc(clipped, func(a, b types.MeasurementInterval) int {
		switch {
		case a.From < b.From:
			return -1
		case a.From > b.From:
			return 1
		}
		return 0
	})

	merged := clipped[:1]
	for _, iv := range clipped[1:] {
		last := &merged[len(merged)-1]
		if iv.From <= last.To {
			last.To = types.Max(last.To, iv.To)
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// intersect returns the parts of a that are also covered by b. Both inputs
// must be sorted and disjoint.
func intersect(a, b []types.MeasurementInterval) []types.MeasurementInterval {
	var out []types.MeasurementInterval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		from := types.Max(a[i].From, b[j].From)
		to := types.Min(a[i].To, b[j].To)
		if from < to {
			out = append(out, types.MeasurementInterval{From: from, To: to})
		}
		if a[i].To < b[j].To {
			i++
		} else {
			j++
		}
	}
	return out
}

// Bounds flattens the missing intervals into parallel start and end slices,
// the column layout used by the SQL stores. The slices are never nil.
func (w Window) Bounds() (from, to []int64) {
	from = make([]int64, 0, len(w.MissingMeasurements))
	to = make([]int64, 0, len(w.MissingMeasurements))
	for _, gap := range w.MissingMeasurements {
		from = append(from, int64(gap.From))
		to = append(to, int64(gap.To))
	}
	return from, to
}

// FromBounds rebuilds a window from parallel start and end slices and checks
// its invariants.
func FromBounds(gsrn string, syncPoint int64, from, to []int64) (Window, error) {
	if len(from) != len(to) {
		return Window{}, fmt.Errorf("corrupt window %s: %d interval starts but %d ends", gsrn, len(from), len(to))
	}
	w := New(gsrn, types.UnixTimestamp(syncPoint))
	for i := range from {
		w.MissingMeasurements = append(w.MissingMeasurements, types.MeasurementInterval{
			From: types.UnixTimestamp(from[i]),
			To:   types.UnixTimestamp(to[i]),
		})
	}
	if err := w.Validate(); err != nil {
		return Window{}, fmt.Errorf("corrupt window %s: %w", gsrn, err)
	}
	return w, nil
}
