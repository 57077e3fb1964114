package measurementclient

import (
	"context"

	"github.com/ettgrid/measurements-syncer/pkg/types"
)

// Client fetches raw readings for one metering point over [from, to).
type Client interface {
	FetchMeasurements(ctx context.Context, gsrn string, from, to types.UnixTimestamp, owner string) ([]types.Measurement, error)
}
