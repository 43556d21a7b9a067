package core

import (
	"bytes"
	"encoding/json"
	"time"
)

// The transaction date reaches the aggregation engine in whatever shape the
// backing document happens to carry: a calendar time, an epoch-milliseconds
// number, a wrapped {seconds,nanoseconds} timestamp, a string, or nothing at
// all. DateValue models that union; Resolve normalizes before any compare.

type dateKind uint8

const (
	dateAbsent dateKind = iota
	dateTime
	dateEpochMillis
	dateTimestamp
	dateString
)

type DateValue struct {
	kind   dateKind
	t      time.Time
	millis int64
	sec    int64
	nanos  int32
	str    string
}

func DateFromTime(t time.Time) DateValue {
	return DateValue{kind: dateTime, t: t}
}

func DateFromEpochMillis(ms int64) DateValue {
	return DateValue{kind: dateEpochMillis, millis: ms}
}

// DateFromTimestamp builds a DateValue from a wrapped server timestamp.
func DateFromTimestamp(sec int64, nanos int32) DateValue {
	return DateValue{kind: dateTimestamp, sec: sec, nanos: nanos}
}

func DateFromString(s string) DateValue {
	return DateValue{kind: dateString, str: s}
}

func NoDate() DateValue {
	return DateValue{}
}

// dateLayouts are tried in order when resolving a string date.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
}

// Resolve normalizes the carried representation to a single comparable
// instant. A missing or unparseable date resolves to the zero instant and
// ok=false — a non-fatal degradation that sorts the record last, never an
// error.
func (d DateValue) Resolve() (time.Time, bool) {
	switch d.kind {
	case dateTime:
		if d.t.IsZero() {
			return time.Time{}, false
		}
		return d.t, true
	case dateEpochMillis:
		return time.UnixMilli(d.millis).UTC(), true
	case dateTimestamp:
		return time.Unix(d.sec, int64(d.nanos)).UTC(), true
	case dateString:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d.str); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// SameDay reports whether the resolved date falls on the given calendar day.
// Comparison is by calendar date, not by a 24h window.
func (d DateValue) SameDay(day time.Time) bool {
	t, ok := d.Resolve()
	if !ok {
		return false
	}
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// MarshalJSON writes a resolvable date as RFC3339 and anything else as null,
// so archive snapshots carry one canonical shape.
func (d DateValue) MarshalJSON() ([]byte, error) {
	if t, ok := d.Resolve(); ok {
		return json.Marshal(t.Format(time.RFC3339Nano))
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts the document shapes: string, epoch-millis number,
// {"seconds":..,"nanoseconds":..} object, or null.
func (d *DateValue) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = NoDate()
	case string:
		*d = DateFromString(v)
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			*d = NoDate()
			return nil
		}
		*d = DateFromEpochMillis(ms)
	case map[string]any:
		sec := numberField(v, "seconds")
		nanos := numberField(v, "nanoseconds")
		*d = DateFromTimestamp(sec, int32(nanos))
	default:
		*d = NoDate()
	}
	return nil
}

func numberField(m map[string]any, key string) int64 {
	if n, ok := m[key].(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	return 0
}
