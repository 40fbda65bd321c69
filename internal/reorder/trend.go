package reorder

import (
	"errors"
	"strings"
)

// ErrUnknownProduct is returned by BuildTrend when no record matches.
var ErrUnknownProduct = errors.New("no data found for product")

type TrendPoint struct {
	Date      string   `json:"date"`
	SoldUnits int      `json:"sold_units"`
	MovingAvg *float64 `json:"moving_avg,omitempty"`
}

// Trend is a product's daily sales series with a trailing moving average.
type Trend struct {
	Product      string       `json:"product"`
	Window       int          `json:"window"`
	Average      float64      `json:"average"`
	CurrentStock int          `json:"current_stock"`
	Points       []TrendPoint `json:"points"`
}

// BuildTrend matches product case-insensitively. Points before the first
// full window carry no moving average.
func BuildTrend(ds *Dataset, product string, window int) (*Trend, error) {
	if window < 1 {
		window = DefaultWindow
	}
	want := strings.ToLower(strings.TrimSpace(product))

	var rows []SalesRecord
	for _, g := range groupByProduct(ds.Records) {
		if strings.ToLower(g.product) == want {
			rows = g.rows
			product = g.product
			break
		}
	}
	if len(rows) == 0 {
		return nil, ErrUnknownProduct
	}

	stats := summarize(product, rows, window)
	t := &Trend{
		Product:      product,
		Window:       window,
		Average:      roundTo(stats.AvgDemand, 2),
		CurrentStock: stats.CurrentStock,
		Points:       make([]TrendPoint, len(rows)),
	}
	var running float64
	for i, r := range rows {
		running += float64(r.SoldUnits)
		if i >= window {
			running -= float64(rows[i-window].SoldUnits)
		}
		p := TrendPoint{Date: r.Date.Format(DateLayout), SoldUnits: r.SoldUnits}
		if i+1 >= window {
			v := roundTo(running/float64(window), 2)
			p.MovingAvg = &v
		}
		t.Points[i] = p
	}
	return t, nil
}
