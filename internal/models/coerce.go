package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// NonNegative maps NaN, infinities and negative amounts to zero.
func NonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// CoerceAmount converts a loosely typed stored value into an amount.
// Anything that is not numeric becomes 0.
func CoerceAmount(v any) float64 {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n), ",", ""), 64)
		if err != nil {
			return 0
		}
		f = parsed
	case interface{ Float64() (float64, bool) }:
		f, _ = n.Float64()
	case fmt.Stringer:
		// decimal types such as bson Decimal128
		return CoerceAmount(n.String())
	default:
		return 0
	}
	return NonNegative(f)
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
}

// CoerceDate converts a loosely typed stored value into a time. Invalid or
// zero values are reported as absent (nil).
func CoerceDate(v any) *time.Time {
	var t time.Time
	switch d := v.(type) {
	case time.Time:
		t = d
	case *time.Time:
		if d == nil {
			return nil
		}
		t = *d
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return nil
		}
		parsed, ok := parseDate(s)
		if !ok {
			return nil
		}
		t = parsed
	case interface{ Time() time.Time }:
		t = d.Time()
	default:
		return nil
	}
	if t.IsZero() {
		return nil
	}
	return &t
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFrequency maps stored plan names ("monthly", "2 installments",
// "custom", ...) to a FeeFrequency. Unknown names yield an invalid value.
func ParseFrequency(s string) FeeFrequency {
	norm := strings.ToLower(strings.TrimSpace(s))
	switch norm {
	case "monthly", "month":
		return Monthly()
	case "custom", "custom_date", "customdate", "custom date":
		return CustomDate()
	}
	for n := 2; n <= 4; n++ {
		digit := strconv.Itoa(n)
		if norm == digit || strings.HasPrefix(norm, digit+" ") || strings.HasPrefix(norm, digit+"_") || norm == "installments_"+digit {
			return Installments(n)
		}
	}
	return FeeFrequency{Kind: FeeFrequencyKind(norm)}
}

// String is the canonical stored form understood by ParseFrequency.
func (f FeeFrequency) String() string {
	if f.Kind == FrequencyInstallments {
		return strconv.Itoa(f.Installments) + " installments"
	}
	return string(f.Kind)
}
