package reorder

import (
	"fmt"
	"math"
)

const (
	daysPerYear = 365
	// A product is flagged when it runs out within this multiple of the lead time.
	stockoutHorizonFactor = 1.5
)

// Policy turns demand statistics into reorder decisions.
type Policy struct {
	LeadTimeDays float64
	ZValue       float64
}

// PolicyOutput holds unrounded policy results for one product.
type PolicyOutput struct {
	SafetyStock       float64
	ReorderPoint      float64
	DaysOfInventory   float64
	InventoryTurnover float64
	DaysUntilStockout Days
	NeedsReorder      bool
	PotentialStockout bool
}

func (p Policy) Evaluate(s DemandStats) (PolicyOutput, error) {
	if s.Observations == 0 {
		return PolicyOutput{}, fmt.Errorf("product %q has no observations", s.Product)
	}
	if !isFinite(s.AvgDemand) || !isFinite(s.StdDemand) {
		return PolicyOutput{}, fmt.Errorf("product %q has non-finite demand statistics", s.Product)
	}
	if s.AvgDemand < 0 || s.StdDemand < 0 || s.CurrentStock < 0 {
		return PolicyOutput{}, fmt.Errorf("product %q has negative demand or stock (avg %g, std %g, stock %d)",
			s.Product, s.AvgDemand, s.StdDemand, s.CurrentStock)
	}

	lead := p.LeadTimeDays
	stock := float64(s.CurrentStock)

	out := PolicyOutput{
		SafetyStock: p.ZValue * s.StdDemand * math.Sqrt(lead),
	}
	out.ReorderPoint = s.AvgDemand*lead + out.SafetyStock
	if !isFinite(out.ReorderPoint) {
		return PolicyOutput{}, fmt.Errorf("product %q produced a non-finite reorder point", s.Product)
	}

	out.DaysUntilStockout = Unbounded()
	if s.AvgDemand > 0 {
		out.DaysOfInventory = stock / s.AvgDemand
		out.DaysUntilStockout = DaysOf(out.DaysOfInventory)
	}
	if out.DaysOfInventory > 0 {
		out.InventoryTurnover = daysPerYear / out.DaysOfInventory
	}

	out.NeedsReorder = stock <= out.ReorderPoint
	out.PotentialStockout = out.DaysUntilStockout.Before(stockoutHorizonFactor * lead)
	return out, nil
}
