package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuality(t *testing.T) {
	t.Parallel()

	q, err := ParseQuality("measured")
	require.NoError(t, err)
	require.Equal(t, QualityMeasured, q)

	_, err = ParseQuality("guessed")
	require.Error(t, err)
}

func TestQuality_IsIssuable(t *testing.T) {
	t.Parallel()

	require.True(t, QualityMeasured.IsIssuable())
	require.True(t, QualityCalculated.IsIssuable())
	require.False(t, QualityEstimated.IsIssuable())
	require.False(t, QualityRevised.IsIssuable())
}

func TestMeasurement_IsUsable(t *testing.T) {
	t.Parallel()

	base := Measurement{
		GSRN:     "571313000000000001",
		DateFrom: hour14,
		DateTo:   hour14.AddHours(1),
		Quantity: 1000,
		Quality:  QualityMeasured,
	}

	tests := []struct {
		name   string
		mutate func(*Measurement)
		want   bool
	}{
		{name: "valid", mutate: func(*Measurement) {}, want: true},
		{name: "quantity missing", mutate: func(m *Measurement) { m.QuantityMissing = true }, want: false},
		{name: "estimated", mutate: func(m *Measurement) { m.Quality = QualityEstimated }, want: false},
		{name: "zero quantity", mutate: func(m *Measurement) { m.Quantity = 0 }, want: false},
		{name: "negative quantity", mutate: func(m *Measurement) { m.Quantity = -5 }, want: false},
		{name: "overflow sentinel", mutate: func(m *Measurement) { m.Quantity = MaxQuantity }, want: false},
		{name: "just below sentinel", mutate: func(m *Measurement) { m.Quantity = MaxQuantity - 1 }, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := base
			tt.mutate(&m)
			require.Equal(t, tt.want, m.IsUsable())
		})
	}

	require.Equal(t, MeasurementInterval{From: hour14, To: hour14.AddHours(1)}, base.Interval())
}
