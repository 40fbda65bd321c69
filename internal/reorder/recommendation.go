package reorder

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Recommendation is the per-product output row.
type Recommendation struct {
	Product           string   `json:"product"`
	CurrentStock      int      `json:"current_stock"`
	AvgDemand         float64  `json:"avg_demand"`
	SafetyStock       float64  `json:"safety_stock"`
	ReorderPoint      float64  `json:"reorder_point"`
	InventoryTurnover float64  `json:"inventory_turnover"`
	NeedsReorder      bool     `json:"needs_reorder"`
	PotentialStockout bool     `json:"potential_stockout"`
	DaysUntilStockout Days     `json:"days_until_stockout"`
	StdDemand         float64  `json:"std_demand"`
	MovingAvgDemand   *float64 `json:"moving_avg_demand,omitempty"`
}

// Result is a completed recommendation run.
type Result struct {
	Recommendations []Recommendation `json:"items"`
	Warnings        []Warning        `json:"warnings"`
	Params          Params           `json:"params"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// NeedingReorder counts recommendations with NeedsReorder set.
func (r *Result) NeedingReorder() int {
	n := 0
	for _, rec := range r.Recommendations {
		if rec.NeedsReorder {
			n++
		}
	}
	return n
}

func assemble(s DemandStats, out PolicyOutput) Recommendation {
	rec := Recommendation{
		Product:           s.Product,
		CurrentStock:      s.CurrentStock,
		AvgDemand:         roundTo(s.AvgDemand, 2),
		SafetyStock:       roundTo(out.SafetyStock, 2),
		ReorderPoint:      roundTo(out.ReorderPoint, 2),
		InventoryTurnover: roundTo(out.InventoryTurnover, 2),
		NeedsReorder:      out.NeedsReorder,
		PotentialStockout: out.PotentialStockout,
		DaysUntilStockout: out.DaysUntilStockout.Round(1),
		StdDemand:         roundTo(s.StdDemand, 2),
	}
	if s.MovingAvg.Valid {
		v := roundTo(s.MovingAvg.Value, 2)
		rec.MovingAvgDemand = &v
	}
	return rec
}

// ComputeRecommendations evaluates every product in ds. Products the policy
// rejects are skipped with a warning; the run fails only if none survive.
func (e *Engine) ComputeRecommendations(ds *Dataset, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ds == nil || len(ds.Records) == 0 {
		return nil, &EmptyResultError{}
	}

	stats := ComputeDemandStats(ds.Records, params.Window)
	policy := params.Policy()

	res := &Result{
		Recommendations: make([]Recommendation, 0, len(stats)),
		Warnings:        append([]Warning(nil), ds.Warnings...),
		Params:          params,
		GeneratedAt:     e.clock().UTC(),
	}
	skipped := 0
	for _, s := range stats {
		out, err := policy.Evaluate(s)
		if err != nil {
			skipped++
			e.log.Warn().Err(err).Str("product", s.Product).Msg("skipping product")
			res.Warnings = append(res.Warnings, Warning{
				Kind:    WarnProductSkipped,
				Product: s.Product,
				Message: err.Error(),
			})
			continue
		}
		res.Recommendations = append(res.Recommendations, assemble(s, out))
	}

	if len(res.Recommendations) == 0 {
		return nil, &EmptyResultError{Skipped: skipped}
	}

	e.log.Info().
		Int("products", len(res.Recommendations)).
		Int("needs_reorder", res.NeedingReorder()).
		Int("skipped", skipped).
		Float64("lead_time_days", params.LeadTimeDays).
		Float64("z_value", params.ZValue).
		Int("window", params.Window).
		Msg("recommendations computed")
	return res, nil
}

// SortKey selects the ordering of a recommendation list.
type SortKey string

const (
	SortInput        SortKey = "input"
	SortUrgency      SortKey = "urgency"
	SortProduct      SortKey = "product"
	SortReorderPoint SortKey = "reorder_point"
)

func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortInput, nil
	case SortInput, SortUrgency, SortProduct, SortReorderPoint:
		return k, nil
	default:
		return "", &InvalidParamsError{Err: fmt.Errorf("unknown sort key %q", s)}
	}
}

// SortRecommendations returns a sorted copy of recs. Urgency orders by days
// until stockout with unbounded last, then by product.
func SortRecommendations(recs []Recommendation, key SortKey) []Recommendation {
	out := append([]Recommendation(nil), recs...)
	switch key {
	case SortUrgency:
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DaysUntilStockout.Float64(), out[j].DaysUntilStockout.Float64()
			if a != b {
				return a < b
			}
			return strings.ToLower(out[i].Product) < strings.ToLower(out[j].Product)
		})
	case SortProduct:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Product) < strings.ToLower(out[j].Product)
		})
	case SortReorderPoint:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ReorderPoint > out[j].ReorderPoint
		})
	}
	return out
}
