// Package snapshot persists recommendation tables as CSV files that are
// replaced atomically, so readers never see a partial write.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/andresuchdata/inventory-optimizer/internal/reorder"
)

// ErrNoSnapshot is returned when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no recommendation snapshot available")

// Columns is the header written by WriteCSV.
var Columns = []string{
	"product",
	"current_stock",
	"avg_demand",
	"safety_stock",
	"reorder_point",
	"inventory_turnover",
	"needs_reorder",
	"potential_stockout",
	"days_until_stockout",
	"std_demand",
	"moving_avg_demand",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes recs with the Columns header.
func WriteCSV(w io.Writer, recs []reorder.Recommendation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range recs {
		movingAvg := ""
		if r.MovingAvgDemand != nil {
			movingAvg = formatFloat(*r.MovingAvgDemand)
		}
		record := []string{
			r.Product,
			strconv.Itoa(r.CurrentStock),
			formatFloat(r.AvgDemand),
			formatFloat(r.SafetyStock),
			formatFloat(r.ReorderPoint),
			formatFloat(r.InventoryTurnover),
			strconv.FormatBool(r.NeedsReorder),
			strconv.FormatBool(r.PotentialStockout),
			r.DaysUntilStockout.String(),
			formatFloat(r.StdDemand),
			movingAvg,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a table written by WriteCSV. Columns are located by name so
// older snapshots without the trailing columns still load.
func ReadCSV(r io.Reader) ([]reorder.Recommendation, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, required := range Columns[:9] {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("snapshot is missing column %q", required)
		}
	}

	var recs []reorder.Recommendation
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read snapshot line %d: %w", line, err)
		}
		rec, err := parseRecord(record, idx)
		if err != nil {
			return nil, fmt.Errorf("snapshot line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

type fieldReader struct {
	record []string
	idx    map[string]int
	err    error
}

func (f *fieldReader) text(name string) string {
	i, ok := f.idx[name]
	if !ok || i >= len(f.record) {
		return ""
	}
	return f.record[i]
}

func (f *fieldReader) float(name string) float64 {
	if f.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(f.text(name), 64)
	if err != nil {
		f.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func (f *fieldReader) bool(name string) bool {
	if f.err != nil {
		return false
	}
	v, err := strconv.ParseBool(f.text(name))
	if err != nil {
		f.err = fmt.Errorf("%s: %w", name, err)
	}
	return v
}

func parseRecord(record []string, idx map[string]int) (reorder.Recommendation, error) {
	f := &fieldReader{record: record, idx: idx}
	rec := reorder.Recommendation{
		Product:           f.text("product"),
		CurrentStock:      int(f.float("current_stock")),
		AvgDemand:         f.float("avg_demand"),
		SafetyStock:       f.float("safety_stock"),
		ReorderPoint:      f.float("reorder_point"),
		InventoryTurnover: f.float("inventory_turnover"),
		NeedsReorder:      f.bool("needs_reorder"),
		PotentialStockout: f.bool("potential_stockout"),
	}
	if f.err != nil {
		return rec, f.err
	}

	days, err := reorder.ParseDays(f.text("days_until_stockout"))
	if err != nil {
		return rec, err
	}
	rec.DaysUntilStockout = days

	if f.text("std_demand") != "" {
		rec.StdDemand = f.float("std_demand")
	}
	if s := f.text("moving_avg_demand"); s != "" {
		v := f.float("moving_avg_demand")
		rec.MovingAvgDemand = &v
	}
	return rec, f.err
}

// WriteFileAtomic writes to a temp file in the target directory, syncs it and
// renames it over path.
func WriteFileAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
