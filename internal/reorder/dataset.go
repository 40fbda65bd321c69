package reorder

import (
	"strconv"
	"time"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
)

// DateLayout is the layout used when a validated dataset is written out.
const DateLayout = "2006-01-02"

// SalesRecord is one validated row.
type SalesRecord struct {
	Date         time.Time
	Product      string
	SoldUnits    int
	CurrentStock int
}

// Dataset is the output of NormalizeAndValidate.
type Dataset struct {
	Records  []SalesRecord
	Warnings []Warning
	// Columns maps each matched canonical field to its original header.
	Columns map[string]string
}

// Products lists distinct products in first-encounter order.
func (d *Dataset) Products() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range d.Records {
		if _, ok := seen[r.Product]; ok {
			continue
		}
		seen[r.Product] = struct{}{}
		out = append(out, r.Product)
	}
	return out
}

// Table renders the dataset with the canonical columns, suitable for
// persisting and reloading.
func (d *Dataset) Table() *ingest.Table {
	rows := make([][]string, len(d.Records))
	for i, r := range d.Records {
		rows[i] = []string{
			r.Date.Format(DateLayout),
			r.Product,
			strconv.Itoa(r.SoldUnits),
			strconv.Itoa(r.CurrentStock),
		}
	}
	return ingest.NewTable(append([]string(nil), CanonicalColumns...), rows)
}
