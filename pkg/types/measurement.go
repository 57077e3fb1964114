package types

import (
	"fmt"
	"math"
)

// Quality is the upstream quality marker of a reading.
type Quality string

const (
	QualityMeasured   Quality = "measured"
	QualityEstimated  Quality = "estimated"
	QualityCalculated Quality = "calculated"
	QualityRevised    Quality = "revised"
)

// ParseQuality maps an upstream quality code to a Quality.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(s); q {
	case QualityMeasured, QualityEstimated, QualityCalculated, QualityRevised:
		return q, nil
	}
	return "", fmt.Errorf("unknown quality %q", s)
}

// IsIssuable reports whether readings of this quality may be used for issuance.
func (q Quality) IsIssuable() bool {
	return q == QualityMeasured || q == QualityCalculated
}

// MaxQuantity is the overflow sentinel used by the registry; valid quantities are strictly below it.
const MaxQuantity int64 = math.MaxUint32

// Measurement is one reading for one metering point as fetched from the registry.
// Quantity is in Wh.
type Measurement struct {
	GSRN            string        `json:"gsrn"`
	DateFrom        UnixTimestamp `json:"date_from"`
	DateTo          UnixTimestamp `json:"date_to"`
	Quantity        int64         `json:"quantity"`
	Quality         Quality       `json:"quality"`
	QuantityMissing bool          `json:"quantity_missing"`
}

func (m Measurement) Interval() MeasurementInterval {
	return MeasurementInterval{From: m.DateFrom, To: m.DateTo}
}

// HasValidQuantity reports whether the quantity lies in the open range (0, MaxQuantity).
func (m Measurement) HasValidQuantity() bool {
	return m.Quantity > 0 && m.Quantity < MaxQuantity
}

// IsUsable reports whether the reading carries data that can be confirmed,
// independently of any synchronization state.
func (m Measurement) IsUsable() bool {
	return !m.QuantityMissing && m.Quality.IsIssuable() && m.HasValidQuantity()
}
