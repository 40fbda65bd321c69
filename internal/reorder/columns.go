package reorder

import (
	"regexp"
	"strings"

	"github.com/andresuchdata/inventory-optimizer/internal/ingest"
)

// Canonical column names of a normalized sales table.
const (
	FieldDate         = "date"
	FieldProduct      = "product"
	FieldSoldUnits    = "sold_units"
	FieldCurrentStock = "current_stock"
)

// FieldSpec is one canonical field and its synonym patterns in priority order.
type FieldSpec struct {
	Name     string
	Required bool
	Synonyms []string
	patterns []*regexp.Regexp
}

func newFieldSpec(name string, required bool, synonyms ...string) FieldSpec {
	patterns := make([]*regexp.Regexp, len(synonyms))
	for i, s := range synonyms {
		patterns[i] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(s))
	}
	return FieldSpec{Name: name, Required: required, Synonyms: synonyms, patterns: patterns}
}

// CanonicalFields is evaluated top to bottom; a column claimed by an earlier
// field is not offered to later ones.
var CanonicalFields = []FieldSpec{
	newFieldSpec(FieldDate, true, "date", "order date", "sale date", "transaction date", "day"),
	newFieldSpec(FieldProduct, true, "product", "item", "sku", "product name", "item name", "product id"),
	newFieldSpec(FieldSoldUnits, true, "sold_units", "quantity", "units sold", "sold", "sales quantity", "qty", "units"),
	newFieldSpec(FieldCurrentStock, false, "current_stock", "stock", "inventory", "on hand", "current inventory"),
}

// CanonicalColumns is the column order of a validated table.
var CanonicalColumns = []string{FieldDate, FieldProduct, FieldSoldUnits, FieldCurrentStock}

func fieldHint(name string) string {
	for _, f := range CanonicalFields {
		if f.Name == name && len(f.Synonyms) > 1 {
			return name + " (or " + strings.Join(f.Synonyms[1:], ", ") + ")"
		}
	}
	return name
}

// MatchColumn resolves field against already cleaned column names. A column
// named exactly field.Name wins; otherwise the first pattern that matches any
// unclaimed column does.
func MatchColumn(field FieldSpec, columns []string, claimed map[int]bool) (int, bool) {
	for i, c := range columns {
		if !claimed[i] && c == field.Name {
			return i, true
		}
	}
	for _, p := range field.patterns {
		for i, c := range columns {
			if claimed[i] {
				continue
			}
			if p.MatchString(c) {
				return i, true
			}
		}
	}
	return -1, false
}

func cleanColumnName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NormalizeColumns returns a copy of raw with matched columns renamed to their
// canonical names and every other column lower-cased and trimmed. The mapping
// goes from canonical name to the original header.
func NormalizeColumns(raw *ingest.Table) (*ingest.Table, map[string]string, error) {
	out := raw.Clone()
	for i, c := range out.Columns {
		out.Columns[i] = cleanColumnName(c)
	}

	claimed := make(map[int]bool, len(CanonicalFields))
	matched := make(map[string]int, len(CanonicalFields))
	var missing []string
	for _, field := range CanonicalFields {
		idx, ok := MatchColumn(field, out.Columns, claimed)
		if !ok {
			if field.Required {
				missing = append(missing, field.Name)
			}
			continue
		}
		claimed[idx] = true
		matched[field.Name] = idx
	}

	if len(missing) > 0 {
		return nil, nil, &MissingColumnError{
			Missing:   missing,
			Available: append([]string(nil), out.Columns...),
		}
	}

	mapping := make(map[string]string, len(matched))
	for name, idx := range matched {
		mapping[name] = raw.Columns[idx]
		out.Columns[idx] = name
	}
	return out, mapping, nil
}
