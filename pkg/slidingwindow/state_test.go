package slidingwindow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

func iv(from, to types.UnixTimestamp) types.MeasurementInterval {
	return types.MeasurementInterval{From: from, To: to}
}

func TestWindow_IsMissing(t *testing.T) {
	t.Parallel()

	w := Window{
		GSRN:                 testGSRN,
		SynchronizationPoint: hour(10),
		MissingMeasurements:  []types.MeasurementInterval{iv(hour(1), hour(3)), iv(hour(5), hour(6))},
	}

	require.True(t, w.IsMissing(iv(hour(1), hour(2))))
	require.True(t, w.IsMissing(iv(hour(1), hour(3))))
	require.True(t, w.IsMissing(iv(hour(5), hour(6))))
	require.False(t, w.IsMissing(iv(hour(2), hour(4))), "straddles the end of a gap")
	require.False(t, w.IsMissing(iv(hour(3), hour(5))), "between gaps")
	require.Equal(t, int64(3), w.MissingHours())
}

func TestWindow_Clone(t *testing.T) {
	t.Parallel()

	w := Window{GSRN: testGSRN, SynchronizationPoint: hour(4), MissingMeasurements: []types.MeasurementInterval{iv(hour(0), hour(1))}}
	c := w.Clone()
	c.MissingMeasurements[0].To = hour(2)

	require.Equal(t, hour(1), w.MissingMeasurements[0].To)
}

func TestWindow_WithMissing(t *testing.T) {
	t.Parallel()

	w := Window{
		GSRN:                 testGSRN,
		SynchronizationPoint: hour(10),
		MissingMeasurements:  []types.MeasurementInterval{iv(hour(2), hour(3))},
	}

	got := w.WithMissing(iv(hour(7), hour(8)), iv(hour(3), hour(4)), iv(hour(9), hour(12)))

	require.Equal(t, []types.MeasurementInterval{
		iv(hour(2), hour(4)),
		iv(hour(7), hour(8)),
		iv(hour(9), hour(10)),
	}, got.MissingMeasurements)
	require.Len(t, w.MissingMeasurements, 1, "original must not change")
	require.NoError(t, got.Validate())
}

func TestWindow_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		window  Window
		wantErr error
	}{
		{
			name:   "empty window",
			window: New(testGSRN, hour(0)),
		},
		{
			name:    "missing gsrn",
			window:  New("", hour(0)),
			wantErr: ErrInvalidGSRN,
		},
		{
			name: "gap past sync point",
			window: Window{
				GSRN:                 testGSRN,
				SynchronizationPoint: hour(2),
				MissingMeasurements:  []types.MeasurementInterval{iv(hour(1), hour(3))},
			},
			wantErr: ErrMissingPastSyncPoint,
		},
		{
			name: "overlapping gaps",
			window: Window{
				GSRN:                 testGSRN,
				SynchronizationPoint: hour(5),
				MissingMeasurements:  []types.MeasurementInterval{iv(hour(1), hour(3)), iv(hour(2), hour(4))},
			},
			wantErr: ErrUnsortedMissing,
		},
		{
			name: "empty gap",
			window: Window{
				GSRN:                 testGSRN,
				SynchronizationPoint: hour(5),
				MissingMeasurements:  []types.MeasurementInterval{iv(hour(1), hour(1))},
			},
			wantErr: types.ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.window.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	in := []types.MeasurementInterval{
		iv(hour(6), hour(8)),
		iv(hour(0), hour(2)),
		iv(hour(1), hour(3)),
		iv(hour(3), hour(4)),
		iv(hour(5), hour(5)),
		iv(hour(9), hour(12)),
	}

	got := normalize(in, hour(1), hour(10))

	require.Equal(t, []types.MeasurementInterval{
		iv(hour(1), hour(4)),
		iv(hour(6), hour(8)),
		iv(hour(9), hour(10)),
	}, got)
	require.Equal(t, hour(6), in[0].From, "input must not be reordered")
	require.Nil(t, normalize(nil, hour(0), hour(1)))
}

func TestIntersect(t *testing.T) {
	t.Parallel()

	a := []types.MeasurementInterval{iv(hour(0), hour(4)), iv(hour(6), hour(9))}
	b := []types.MeasurementInterval{iv(hour(1), hour(2)), iv(hour(3), hour(7)), iv(hour(8), hour(12))}

	require.Equal(t, []types.MeasurementInterval{
		iv(hour(1), hour(2)),
		iv(hour(3), hour(4)),
		iv(hour(6), hour(7)),
		iv(hour(8), hour(9)),
	}, intersect(a, b))
	require.Empty(t, intersect(a, nil))
}

func TestWindow_BoundsRoundTrip(t *testing.T) {
	t.Parallel()

	w := Window{
		GSRN:                 testGSRN,
		SynchronizationPoint: hour(10),
		MissingMeasurements:  []types.MeasurementInterval{iv(hour(1), hour(2)), iv(hour(4), hour(7))},
	}
	from, to := w.Bounds()
	require.Equal(t, []int64{int64(hour(1)), int64(hour(4))}, from)
	require.Equal(t, []int64{int64(hour(2)), int64(hour(7))}, to)

	got, err := FromBounds(testGSRN, int64(hour(10)), from, to)
	require.NoError(t, err)
	require.Equal(t, w, got)

	_, err = FromBounds(testGSRN, int64(hour(10)), from, to[:1])
	require.ErrorContains(t, err, "2 interval starts but 1 ends")

	_, err = FromBounds(testGSRN, int64(hour(5)), from, to)
	require.ErrorIs(t, err, ErrMissingPastSyncPoint)
}
