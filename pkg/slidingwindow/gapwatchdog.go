package slidingwindow

import (
	"errors"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// GapWatchdog warns about windows that fall behind or accumulate gaps.
// A zero threshold disables the corresponding check.
type GapWatchdog struct {
	log             *zap.SugaredLogger
	maxMissingHours int64
	maxLagHours     int64
}

func NewGapWatchdog(log *zap.SugaredLogger, maxMissingHours, maxLagHours int64) (*GapWatchdog, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if maxMissingHours < 0 || maxLagHours < 0 {
		return nil, errors.New("invalid watchdog thresholds: must not be negative")
	}
	return &GapWatchdog{log: log, maxMissingHours: maxMissingHours, maxLagHours: maxLagHours}, nil
}

// Inspect checks w against the clamp boundary and reports whether it warned.
func (g *GapWatchdog) Inspect(w Window, clamp types.UnixTimestamp) bool {
	warned := false

	if g.maxMissingHours > 0 {
		if missing := w.MissingHours(); missing > g.maxMissingHours {
			g.log.Warnw("gap too large",
				"gsrn", w.GSRN,
				"missingHours", missing,
				"intervals", len(w.MissingMeasurements),
				"syncPoint", w.SynchronizationPoint,
			)
			warned = true
		}
	}

	if g.maxLagHours > 0 && clamp > w.SynchronizationPoint {
		if lag := int64(clamp-w.SynchronizationPoint) / 3600; lag > g.maxLagHours {
			g.log.Warnw("window lagging clamp boundary",
				"gsrn", w.GSRN,
				"lagHours", lag,
				"syncPoint", w.SynchronizationPoint,
				"clamp", clamp,
			)
			warned = true
		}
	}

	return warned
}
