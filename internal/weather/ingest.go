package weather

import "time"

// ExcludedKeys are station credentials and protocol flags that are never stored.
var ExcludedKeys = []string{"ID", "PASSWORD", "action", "realtime", "rtfreq", "dateutc"}

// IsExcluded reports whether key is stripped on ingest.
func IsExcluded(key string) bool {
	for _, k := range ExcludedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ReadingFromQuery builds a Reading from raw query parameters in request order.
// No validation is done; whatever the station sends is kept.
// A repeated key keeps its first value; later occurrences are ignored.
func ReadingFromQuery(params []Field, now time.Time) Reading {
	fields := make([]Field, 0, len(params))
	seen := make(map[string]struct{}, len(params))

	for _, p := range params {
		if IsExcluded(p.Key) {
			continue
		}
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		fields = append(fields, p)
	}

	return Reading{
		Timestamp: now.Truncate(time.Second),
		fields:    fields,
	}
}
