package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"0", 0, true}, // sign lives on the type, a zero magnitude is fine
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"+1", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestParseAmountValue(t *testing.T) {
	cases := []struct {
		in  any
		out int64
		ok  bool
	}{
		{4.50, 450, true},
		{"4.50", 450, true},
		{json.Number("4.50"), 450, true},
		{int64(4), 400, true},
		{-4.50, 0, false},
		{"treasure", 0, false},
		{nil, 0, false},
		{[]string{"4.50"}, 0, false},
	}
	for i, tc := range cases {
		got, err := ParseAmountValue(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("case %d expected %d, got %d (err=%v)", i, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 10000}
	b := Money{Cents: 4000}
	if got := a.Sub(b).Cents; got != 6000 {
		t.Fatalf("expected 6000, got %d", got)
	}
	if got := a.Add(b).Cents; got != 14000 {
		t.Fatalf("expected 14000, got %d", got)
	}
	if !(Money{Cents: -1}).Negative() {
		t.Fatal("expected negative")
	}
	if got := b.Dollars(); got != 40.0 {
		t.Fatalf("expected 40.0, got %v", got)
	}
}
