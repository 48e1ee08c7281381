package util

import "time"

// TimeFromMillis converts milliseconds since the Unix epoch, as used by CT tree heads, to a time.
func TimeFromMillis(ms uint64) time.Time {
	return time.UnixMilli(int64(ms)).UTC()
}

// MillisFromTime is the inverse of TimeFromMillis.
func MillisFromTime(t time.Time) uint64 {
	return uint64(t.UnixMilli())
}
