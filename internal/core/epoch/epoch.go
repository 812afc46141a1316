// Package epoch converts between wall-clock time and the record store's expiration clock,
// which counts whole seconds from 2010-01-01T00:00:00Z
package epoch

import (
	"math"
	"time"
)

// Epoch is the zero point of store-native timestamps
var Epoch = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// Never is the store-native expiration of a record that does not expire
const Never int64 = 0

// NeverTTL is the remaining TTL the client reports for a record that does not expire
const NeverTTL = math.MaxUint32

var epochUnix = Epoch.Unix()

// ToStoreTime returns whole seconds from Epoch to t, truncated toward zero.
// Instants before Epoch give negative values
func ToStoreTime(t time.Time) int64 {
	secs := t.Unix() - epochUnix
	if secs < 0 && t.Nanosecond() > 0 {
		// Unix() floors; move back toward zero
		secs++
	}
	return secs
}

// ToUTC returns the UTC instant secs seconds after Epoch; fractional seconds are kept to the nanosecond
func ToUTC(secs float64) time.Time {
	whole := math.Trunc(secs)
	nanos := int64(math.Round((secs - whole) * 1e9))
	return time.Unix(epochUnix+int64(whole), nanos).UTC()
}

// FromTTL converts a remaining time-to-live, as reported by the client on scanned records,
// into a store-native expiration relative to now. NeverTTL maps to Never
func FromTTL(ttl uint32, now time.Time) int64 {
	if ttl == NeverTTL {
		return Never
	}
	return ToStoreTime(now) + int64(ttl)
}

// Threshold returns the store-native cutoff "now plus days", computed once per run
func Threshold(now time.Time, days int) int64 {
	return ToStoreTime(now.UTC().AddDate(0, 0, days))
}
