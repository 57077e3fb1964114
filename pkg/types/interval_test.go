package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMeasurementInterval(t *testing.T) {
	t.Parallel()

	iv, err := NewMeasurementInterval(hour14, hour14.AddHours(1))
	require.NoError(t, err)
	require.Equal(t, int64(1), iv.Hours())

	_, err = NewMeasurementInterval(hour14, hour14)
	require.ErrorIs(t, err, ErrInvalidInterval)

	_, err = NewMeasurementInterval(hour14.AddHours(1), hour14)
	require.ErrorIs(t, err, ErrInvalidInterval)
}

func TestMeasurementInterval_Contains(t *testing.T) {
	t.Parallel()

	outer := MeasurementInterval{From: hour14, To: hour14.AddHours(3)}

	tests := []struct {
		name  string
		other MeasurementInterval
		want  bool
	}{
		{name: "identical", other: outer, want: true},
		{name: "inner hour", other: MeasurementInterval{From: hour14.AddHours(1), To: hour14.AddHours(2)}, want: true},
		{name: "touching end", other: MeasurementInterval{From: hour14.AddHours(2), To: hour14.AddHours(3)}, want: true},
		{name: "spills past end", other: MeasurementInterval{From: hour14.AddHours(2), To: hour14.AddHours(4)}, want: false},
		{name: "starts before", other: MeasurementInterval{From: hour14.AddHours(-1), To: hour14.AddHours(1)}, want: false},
		{name: "disjoint", other: MeasurementInterval{From: hour14.AddHours(5), To: hour14.AddHours(6)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, outer.Contains(tt.other))
		})
	}
}

func TestMeasurementInterval_Overlaps(t *testing.T) {
	t.Parallel()

	a := MeasurementInterval{From: hour14, To: hour14.AddHours(2)}
	require.True(t, a.Overlaps(MeasurementInterval{From: hour14.AddHours(1), To: hour14.AddHours(3)}))
	// half-open: adjacency is not overlap
	require.False(t, a.Overlaps(MeasurementInterval{From: hour14.AddHours(2), To: hour14.AddHours(3)}))
	require.True(t, MeasurementInterval{From: hour14, To: hour14}.IsEmpty())
	require.Equal(t, "[1710079200, 1710086400)", a.String())
}
