package weather

import (
	"bytes"
	"encoding/json"
	"time"
)

// TimestampLayout is how reading timestamps are rendered on the bus and on disk.
const TimestampLayout = "2006-01-02 15:04:05"

// Field is one raw key/value pair reported by the station.
type Field struct {
	Key   string
	Value string
}

// Reading is one timestamped observation. Field order is the order the
// station sent them in and decides the column order on disk.
// A Reading is never modified after NewReading returns it.
type Reading struct {
	Timestamp time.Time
	fields    []Field
}

// NewReading copies fields so later changes by the caller are not visible.
func NewReading(ts time.Time, fields []Field) Reading {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return Reading{Timestamp: ts, fields: cp}
}

// Stamp returns the timestamp in TimestampLayout.
func (r Reading) Stamp() string {
	return r.Timestamp.Format(TimestampLayout)
}

// Fields returns a copy of the ordered fields.
func (r Reading) Fields() []Field {
	cp := make([]Field, len(r.fields))
	copy(cp, r.fields)
	return cp
}

// Keys returns the field names in order.
func (r Reading) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Key
	}
	return keys
}

// Values returns the field values in the same order as Keys.
func (r Reading) Values() []string {
	vals := make([]string, len(r.fields))
	for i, f := range r.fields {
		vals[i] = f.Value
	}
	return vals
}

// Get looks up a single field value.
func (r Reading) Get(key string) (string, bool) {
	for _, f := range r.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Len is the number of fields.
func (r Reading) Len() int {
	return len(r.fields)
}

// MarshalJSON renders {"timestamp": ..., <key>: <value>, ...} keeping field
// order, which encoding/json cannot do for maps. A station field named
// timestamp replaces the capture time but stays the first key.
func (r Reading) MarshalJSON() ([]byte, error) {
	stamp := r.Stamp()
	if v, ok := r.Get("timestamp"); ok {
		stamp = v
	}

	var buf bytes.Buffer
	buf.WriteString(`{"timestamp":`)
	ts, err := json.Marshal(stamp)
	if err != nil {
		return nil, err
	}
	buf.Write(ts)

	for _, f := range r.fields {
		if f.Key == "timestamp" {
			continue
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FlushResult describes what one flush wrote to storage.
type FlushResult struct {
	Path          string
	Rows          int
	HeaderWritten bool

	// ExtraFields lists keys that had no column in the file header and were
	// appended to their rows as key=value cells.
	ExtraFields []string
}
