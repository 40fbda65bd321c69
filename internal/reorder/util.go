package reorder

import (
	"math"

	"github.com/shopspring/decimal"
)

// roundTo rounds half away from zero on the decimal representation of v, so
// 15.745 becomes 15.75 rather than falling victim to binary error.
func roundTo(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
