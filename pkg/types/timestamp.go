package types

import (
	"strconv"
	"time"
)

const (
	secondsPerHour = 3600
	secondsPerDay  = 24 * secondsPerHour
)

// UnixTimestamp is a count of seconds since the Unix epoch (UTC).
type UnixTimestamp int64

// Now returns the current time as a UnixTimestamp.
func Now() UnixTimestamp {
	return FromTime(time.Now())
}

// FromTime converts t to a UnixTimestamp, dropping sub-second precision.
func FromTime(t time.Time) UnixTimestamp {
	return UnixTimestamp(t.Unix())
}

// Time returns the timestamp as a UTC time.Time.
func (u UnixTimestamp) Time() time.Time {
	return time.Unix(int64(u), 0).UTC()
}

func (u UnixTimestamp) AddHours(n int64) UnixTimestamp {
	return u + UnixTimestamp(n*secondsPerHour)
}

func (u UnixTimestamp) AddDays(n int64) UnixTimestamp {
	return u + UnixTimestamp(n*secondsPerDay)
}

// RoundToLatestHour floors the timestamp to the start of its hour.
func (u UnixTimestamp) RoundToLatestHour() UnixTimestamp {
	rem := int64(u) % secondsPerHour
	if rem < 0 {
		rem += secondsPerHour
	}
	return u - UnixTimestamp(rem)
}

// IsHourAligned reports whether the timestamp sits exactly on an hour boundary.
func (u UnixTimestamp) IsHourAligned() bool {
	return u.RoundToLatestHour() == u
}

// MinutesUntilNextHour returns the whole minutes left until the next hour boundary.
// On an exact boundary the next hour is a full 60 minutes away.
func (u UnixTimestamp) MinutesUntilNextHour() int64 {
	return int64(u.DurationUntilNextHour() / time.Minute)
}

// DurationUntilNextHour returns the time left until the next hour boundary.
func (u UnixTimestamp) DurationUntilNextHour() time.Duration {
	next := u.RoundToLatestHour().AddHours(1)
	return time.Duration(next-u) * time.Second
}

func (u UnixTimestamp) String() string {
	return strconv.FormatInt(int64(u), 10)
}

// Min returns the smaller of a and b.
func Min(a, b UnixTimestamp) UnixTimestamp {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max(a, b UnixTimestamp) UnixTimestamp {
	if a > b {
		return a
	}
	return b
}
