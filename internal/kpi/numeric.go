package kpi

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/ignite/netsuite-kpi/internal/domain"
)

// toFloat coerces a raw field to a float64. Missing, nil and empty values are
// 0. The second result is false when the value is present but not numeric.
func toFloat(r domain.Record, field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, true
	}

	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(string(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
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
	case uint:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// round2 rounds to two decimals from the exact binary value of x, the same
// result a correctly rounded decimal formatter gives.
func round2(x float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', 2, 64), 64)
	if err != nil {
		return 0
	}
	return r
}
