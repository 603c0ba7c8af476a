package dataset

import (
	"strings"
	"time"
)

// timestampLayouts are tried in order. Zoneless layouts are read as UTC.
var timestampLayouts = []string{
	time.DateTime, // 2017-10-02 10:56:33
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	time.DateOnly,
	"01-02-06 15:04",  // xlsx default display format
	"1/2/2006 15:04:05",
	"1/2/06 15:04",
}

// parseTimestamp normalizes a purchase timestamp to UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
