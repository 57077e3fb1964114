package events

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// eventNamespace scopes event IDs so the same reading always maps to the same ID.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("measurements-syncer/measurement-event"))

// EventID returns the deterministic ID of the event for a reading of gsrn over iv.
// Re-publishing a reading yields the same ID, which lets consumers deduplicate.
func EventID(gsrn string, iv types.MeasurementInterval) string {
	return uuid.NewSHA1(eventNamespace, fmt.Appendf(nil, "%s:%d:%d", gsrn, iv.From, iv.To)).String()
}

// Map builds the event for m using the static metadata in info. The address
// is carried only for production metering points.
func Map(m types.Measurement, info types.MeteringPointSyncInfo) MeasurementEvent {
	e := MeasurementEvent{
		ID:          EventID(m.GSRN, m.Interval()),
		GSRN:        m.GSRN,
		RecipientID: info.RecipientID,
		GridArea:    info.GridArea,
		MeterType:   info.MeteringPointType,
		Quality:     m.Quality,
		Start:       int64(m.DateFrom),
		End:         int64(m.DateTo),
		Quantity:    m.Quantity,
	}
	if info.Technology != nil {
		tech := *info.Technology
		e.Technology = &tech
	}
	if info.MeteringPointType == types.MeteringPointTypeProduction && info.Address != nil {
		addr := *info.Address
		e.Address = &addr
	}
	return e
}
