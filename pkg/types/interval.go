package types

import (
	"errors"
	"fmt"
)

var ErrInvalidInterval = errors.New("invalid interval: to must be after from")

// MeasurementInterval is the half-open time range [From, To).
type MeasurementInterval struct {
	From UnixTimestamp `json:"from"`
	To   UnixTimestamp `json:"to"`
}

// NewMeasurementInterval returns the interval [from, to) or ErrInvalidInterval if it is empty.
func NewMeasurementInterval(from, to UnixTimestamp) (MeasurementInterval, error) {
	if to <= from {
		return MeasurementInterval{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidInterval, from, to)
	}
	return MeasurementInterval{From: from, To: to}, nil
}

// Contains reports whether other lies entirely inside i.
func (i MeasurementInterval) Contains(other MeasurementInterval) bool {
	return i.From <= other.From && other.To <= i.To
}

// Overlaps reports whether i and other share at least one instant.
func (i MeasurementInterval) Overlaps(other MeasurementInterval) bool {
	return i.From < other.To && other.From < i.To
}

func (i MeasurementInterval) IsEmpty() bool {
	return i.To <= i.From
}

// Hours returns the length of the interval in whole hours.
func (i MeasurementInterval) Hours() int64 {
	if i.IsEmpty() {
		return 0
	}
	return int64(i.To-i.From) / secondsPerHour
}

func (i MeasurementInterval) String() string {
	return fmt.Sprintf("[%d, %d)", i.From, i.To)
}
