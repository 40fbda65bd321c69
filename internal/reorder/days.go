package reorder

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	unboundedJSON = "Infinity"
	unboundedText = "inf"
)

// Days is a non-negative number of days that may be unbounded, as is the case
// for days until stockout of a product with no demand.
type Days struct {
	value     float64
	unbounded bool
}

// Unbounded returns the "never" value.
func Unbounded() Days { return Days{unbounded: true} }

// DaysOf wraps v; +Inf maps to Unbounded.
func DaysOf(v float64) Days {
	if math.IsInf(v, 1) {
		return Unbounded()
	}
	return Days{value: v}
}

func (d Days) IsUnbounded() bool { return d.unbounded }

// Float64 returns +Inf for an unbounded value.
func (d Days) Float64() float64 {
	if d.unbounded {
		return math.Inf(1)
	}
	return d.value
}

// Before reports whether d is finite and strictly less than limit.
func (d Days) Before(limit float64) bool {
	return !d.unbounded && d.value < limit
}

func (d Days) Round(places int32) Days {
	if d.unbounded {
		return d
	}
	return Days{value: roundTo(d.value, places)}
}

func (d Days) String() string {
	if d.unbounded {
		return unboundedText
	}
	return strconv.FormatFloat(d.value, 'f', -1, 64)
}

func (d Days) MarshalJSON() ([]byte, error) {
	if d.unbounded {
		return json.Marshal(unboundedJSON)
	}
	return json.Marshal(d.value)
}

func (d *Days) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		parsed, err := ParseDays(text)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("days: %w", err)
	}
	*d = DaysOf(v)
	return nil
}

// ParseDays accepts a decimal number or one of inf, +inf, infinity (any case).
func ParseDays(s string) (Days, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	switch text {
	case "inf", "+inf", "infinity", "+infinity":
		return Unbounded(), nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Days{}, fmt.Errorf("days: invalid value %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, -1) {
		return Days{}, fmt.Errorf("days: invalid value %q", s)
	}
	return DaysOf(v), nil
}
