// Package events turns confirmed measurements into outbound events and publishes them.
package events

import (
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// MeasurementEvent is the outbound event for one confirmed measurement.
// Start and End are epoch seconds of the half-open reading interval.
type MeasurementEvent struct {
	ID          string                  `json:"id"`
	GSRN        string                  `json:"gsrn"`
	RecipientID string                  `json:"recipient_id"`
	GridArea    string                  `json:"grid_area"`
	MeterType   types.MeteringPointType `json:"meter_type"`
	Quality     types.Quality           `json:"quality"`
	Start       int64                   `json:"start"`
	End         int64                   `json:"end"`
	Quantity    int64                   `json:"quantity"`
	Technology  *types.Technology       `json:"technology,omitempty"`
	Address     *types.Address          `json:"address,omitempty"`
}

// Interval returns the reading interval the event covers.
func (e MeasurementEvent) Interval() types.MeasurementInterval {
	return types.MeasurementInterval{
		From: types.UnixTimestamp(e.Start),
		To:   types.UnixTimestamp(e.End),
	}
}
