package checkpoint

import (
	"github.com/ettgrid/measurements-syncer/pkg/slidingwindow"
)

// windowRow is the column layout of one persisted window. Missing intervals are
// stored as two parallel arrays so the table needs no nested types.
type windowRow struct {
	GSRN                 string
	SynchronizationPoint int64
	MissingFrom          []int64
	MissingTo            []int64
}

func toRow(w slidingwindow.Window) windowRow {
	from, to := w.Bounds()
	return windowRow{
		GSRN:                 w.GSRN,
		SynchronizationPoint: int64(w.SynchronizationPoint),
		MissingFrom:          from,
		MissingTo:            to,
	}
}

func (r windowRow) toWindow() (slidingwindow.Window, error) {
	return slidingwindow.FromBounds(r.GSRN, r.SynchronizationPoint, r.MissingFrom, r.MissingTo)
}
