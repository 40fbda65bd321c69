package reorder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
)

// maxCount bounds quantities so the float to int conversion cannot overflow.
const maxCount = 1e15

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1-2-2006",
	"1/2/06",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"20060102",
}

// parseDate truncates to a UTC calendar date.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// parseCount coerces a cell to a non-negative integer. Thousands separators
// are dropped and fractions truncate toward zero.
func parseCount(s string) (int, bool) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > maxCount {
		return 0, false
	}
	return int(f), true
}

// NormalizeAndValidate maps raw onto the canonical schema and coerces every
// row. Bad quantities become warnings; unparseable dates are fatal.
func (e *Engine) NormalizeAndValidate(raw *ingest.Table) (*Dataset, error) {
	if raw == nil || len(raw.Columns) == 0 {
		return nil, ErrEmptyTable
	}

	// Column errors take precedence so a header-only upload still names what is missing.
	table, mapping, err := NormalizeColumns(raw)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		return nil, ErrEmptyTable
	}

	var (
		dateIdx    = table.ColumnIndex(FieldDate)
		productIdx = table.ColumnIndex(FieldProduct)
		soldIdx    = table.ColumnIndex(FieldSoldUnits)
		stockIdx   = table.ColumnIndex(FieldCurrentStock)
	)

	records := make([]SalesRecord, 0, table.Len())
	var (
		dateErr                         *DateParseError
		badQty, badStock, blankProducts int
	)
	for i := range table.Rows {
		rawDate := table.Cell(i, dateIdx)
		date, ok := parseDate(rawDate)
		if !ok {
			if dateErr == nil {
				dateErr = &DateParseError{Row: i + 1, Value: rawDate, Expected: ExpectedDateFormat}
			}
			dateErr.Failures++
			continue
		}
		if dateErr != nil {
			continue
		}

		product := table.Cell(i, productIdx)
		if product == "" {
			blankProducts++
			continue
		}

		sold, ok := parseCount(table.Cell(i, soldIdx))
		if !ok {
			badQty++
		}

		stock := 0
		if stockIdx >= 0 {
			if stock, ok = parseCount(table.Cell(i, stockIdx)); !ok {
				badStock++
			}
		}

		records = append(records, SalesRecord{
			Date:         date,
			Product:      product,
			SoldUnits:    sold,
			CurrentStock: stock,
		})
	}

	if dateErr != nil {
		e.log.Error().
			Int("failures", dateErr.Failures).
			Int("row", dateErr.Row).
			Str("value", dateErr.Value).
			Msg("date column could not be parsed")
		return nil, dateErr
	}

	ds := &Dataset{Records: records, Columns: mapping}
	if badQty > 0 {
		ds.addWarning(e, Warning{
			Kind:    WarnInvalidQuantity,
			Count:   badQty,
			Message: fmt.Sprintf("%d rows had invalid quantity values and were set to 0", badQty),
		})
	}
	if badStock > 0 {
		ds.addWarning(e, Warning{
			Kind:    WarnInvalidStock,
			Count:   badStock,
			Message: fmt.Sprintf("%d rows had invalid stock values and were set to 0", badStock),
		})
	}
	if blankProducts > 0 {
		ds.addWarning(e, Warning{
			Kind:    WarnBlankProduct,
			Count:   blankProducts,
			Message: fmt.Sprintf("%d rows had no product and were dropped", blankProducts),
		})
	}
	if len(records) > 0 && allZeroSold(records) {
		ds.addWarning(e, Warning{
			Kind:    WarnAllZeroQuantity,
			Count:   len(records),
			Message: "all quantity values are zero, which may affect calculations",
		})
	}

	e.log.Debug().
		Int("rows", len(records)).
		Int("warnings", len(ds.Warnings)).
		Interface("columns", mapping).
		Msg("dataset validated")
	return ds, nil
}

func (d *Dataset) addWarning(e *Engine, w Warning) {
	d.Warnings = append(d.Warnings, w)
	e.log.Warn().Str("kind", string(w.Kind)).Int("count", w.Count).Msg(w.Message)
}

func allZeroSold(records []SalesRecord) bool {
	for _, r := range records {
		if r.SoldUnits != 0 {
			return false
		}
	}
	return true
}
