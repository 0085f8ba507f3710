package utils

import (
	"strconv"
	"strings"
	"time"
)

// EpochSeconds returns the integer-seconds part of a Slack message
// timestamp ("1690000000.123456" -> "1690000000"). A timestamp without a
// fractional part, or one starting with '.', is returned unchanged.
func EpochSeconds(ts string) string {
	if i := strings.IndexByte(ts, '.'); i > 0 {
		return ts[:i]
	}
	return ts
}

// ParseTimestamp converts a Slack timestamp into a time.Time
func ParseTimestamp(ts string) (time.Time, error) {
	secs, err := strconv.ParseInt(EpochSeconds(ts), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

func UnixTimestampToHumanReadable(timestamp int64) string {
	t := time.Unix(timestamp, 0)
	return t.Format("2006-01-02 15:04:05")
}
