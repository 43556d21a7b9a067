package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDateValueResolve(t *testing.T) {
	ref := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		d    DateValue
		want time.Time
		ok   bool
	}{
		{"time", DateFromTime(ref), ref, true},
		{"zero time", DateFromTime(time.Time{}), time.Time{}, false},
		{"epoch millis", DateFromEpochMillis(ref.UnixMilli()), ref, true},
		{"timestamp", DateFromTimestamp(ref.Unix(), 0), ref, true},
		{"rfc3339 string", DateFromString("2026-03-05T12:00:00Z"), ref, true},
		{"calendar string", DateFromString("2026-03-05"), time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), true},
		{"garbage string", DateFromString("not-a-date"), time.Time{}, false},
		{"empty string", DateFromString(""), time.Time{}, false},
		{"absent", NoDate(), time.Time{}, false},
	}
	for _, tc := range cases {
		got, ok := tc.d.Resolve()
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.name, tc.ok, ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestDateValueSameDay(t *testing.T) {
	day := time.Date(2026, 3, 5, 23, 59, 0, 0, time.UTC)
	if !DateFromString("2026-03-05").SameDay(day) {
		t.Fatal("expected same calendar day")
	}
	if DateFromString("2026-03-04").SameDay(day) {
		t.Fatal("different day must not match")
	}
	if NoDate().SameDay(day) {
		t.Fatal("unresolvable date never matches a day")
	}
}

func TestDateValueJSON(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{`"2026-03-05T12:00:00Z"`, true},
		{`1772971200000`, true},
		{`{"seconds":1772971200,"nanoseconds":0}`, true},
		{`null`, false},
		{`"garbage"`, false},
	}
	for _, tc := range cases {
		var d DateValue
		if err := json.Unmarshal([]byte(tc.in), &d); err != nil {
			t.Fatalf("%s: unexpected error %v", tc.in, err)
		}
		if _, ok := d.Resolve(); ok != tc.ok {
			t.Fatalf("%s: expected resolvable=%v, got %v", tc.in, tc.ok, ok)
		}
	}

	// Resolvable dates round-trip through the canonical string form.
	orig := DateFromEpochMillis(time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC).UnixMilli())
	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back DateValue
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	t1, _ := orig.Resolve()
	t2, ok := back.Resolve()
	if !ok || !t1.Equal(t2) {
		t.Fatalf("round-trip mismatch: %v vs %v", t1, t2)
	}
}
