package reorder

import (
	"math"
	"sort"
	"time"
)

// MovingAverage is the mean of the last Window observations. Valid is false
// when fewer than Window observations exist.
type MovingAverage struct {
	Value  float64
	Window int
	Valid  bool
}

// DemandStats summarizes one product's history.
type DemandStats struct {
	Product      string
	Observations int
	AvgDemand    float64
	StdDemand    float64
	MovingAvg    MovingAverage
	CurrentStock int
	FirstDate    time.Time
	LastDate     time.Time
}

type productGroup struct {
	product string
	rows    []SalesRecord
}

// groupByProduct keeps first-encounter product order and sorts each group by
// date. Same-date rows keep their input order.
func groupByProduct(records []SalesRecord) []productGroup {
	index := make(map[string]int)
	var groups []productGroup
	for _, r := range records {
		i, ok := index[r.Product]
		if !ok {
			i = len(groups)
			index[r.Product] = i
			groups = append(groups, productGroup{product: r.Product})
		}
		groups[i].rows = append(groups[i].rows, r)
	}
	for _, g := range groups {
		rows := g.rows
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].Date.Before(rows[b].Date)
		})
	}
	return groups
}

// ComputeDemandStats returns one entry per product in first-encounter order.
// Current stock is taken from the latest dated row.
func ComputeDemandStats(records []SalesRecord, window int) []DemandStats {
	groups := groupByProduct(records)
	out := make([]DemandStats, 0, len(groups))
	for _, g := range groups {
		out = append(out, summarize(g.product, g.rows, window))
	}
	return out
}

func summarize(product string, rows []SalesRecord, window int) DemandStats {
	n := len(rows)
	s := DemandStats{
		Product:      product,
		Observations: n,
		MovingAvg:    MovingAverage{Window: window},
	}
	if n == 0 {
		return s
	}

	s.AvgDemand = meanSold(rows)
	if n > 1 {
		var ss float64
		for _, r := range rows {
			d := float64(r.SoldUnits) - s.AvgDemand
			ss += d * d
		}
		s.StdDemand = math.Sqrt(ss / float64(n-1))
	}
	if window > 0 && n >= window {
		s.MovingAvg.Value = meanSold(rows[n-window:])
		s.MovingAvg.Valid = true
	}

	s.CurrentStock = rows[n-1].CurrentStock
	s.FirstDate = rows[0].Date
	s.LastDate = rows[n-1].Date
	return s
}

func meanSold(rows []SalesRecord) float64 {
	var sum float64
	for _, r := range rows {
		sum += float64(r.SoldUnits)
	}
	return sum / float64(len(rows))
}
