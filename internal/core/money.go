// Package core holds the pure transaction domain: money parsing, date
// normalization, the category registry and the aggregation engine. It
// performs no I/O so every adapter can depend on it.
package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a decimal string to Money with half-up rounding on
// the third decimal place. Both dot (12.34) and comma (12,34) separators
// are accepted. Negative values are rejected; zero is allowed — the sign
// of a transaction is carried by its type, never by the stored amount.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234 cents
//	ParseAmount("12,34")  -> 1234 cents
//	ParseAmount("12.345") -> 1234 cents (rounds down)
//	ParseAmount("12.346") -> 1235 cents (rounds up)
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Money{}, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return Money{}, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 100
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return Money{}, ErrInvalidAmount
	}
	// Take the first two fractional digits; half-up rounding on the third
	var fracCents int64
	if len(fracPart) > 0 {
		d1 := int64(fracPart[0] - '0')
		fracCents = d1 * 10
		if len(fracPart) > 1 {
			d2 := int64(fracPart[1] - '0')
			fracCents += d2
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return Money{Cents: iv*100 + fracCents}, nil
}

// ParseAmountValue coerces the amount shapes a decoded JSON body or
// stored document may carry (float64, int64, json.Number, numeric
// string) into Money. Every numeric form is read as whole currency
// units, matching ParseAmount; legacy records store amounts as strings
// and newer ones as numbers.
func ParseAmountValue(v any) (Money, error) {
	switch x := v.(type) {
	case nil:
		return Money{}, ErrInvalidAmount
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return Money{}, ErrInvalidAmount
		}
		return Money{Cents: int64(math.Round(x * 100))}, nil
	case int64:
		if x < 0 {
			return Money{}, ErrInvalidAmount
		}
		return Money{Cents: x * 100}, nil
	case json.Number:
		return ParseAmount(x.String())
	case string:
		return ParseAmount(x)
	default:
		return Money{}, ErrInvalidAmount
	}
}

// Negative reports whether the amount violates the non-negative invariant.
// Such a record must never be persisted.
func (m Money) Negative() bool {
	return m.Cents < 0
}

// Dollars returns the value as a float64 for display purposes only.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}

// Sub returns m − o. Totals may legitimately go negative.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// String formats the amount as a plain decimal, e.g. "12.34" or "-0.05".
func (m Money) String() string {
	c := m.Cents
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return sign + strconv.FormatInt(c/100, 10) + "." + fmt.Sprintf("%02d", c%100)
}
