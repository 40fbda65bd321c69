package reorder

// WarningKind classifies a non-fatal data quality problem.
type WarningKind string

const (
	WarnInvalidQuantity WarningKind = "invalid_quantity"
	WarnInvalidStock    WarningKind = "invalid_stock"
	WarnAllZeroQuantity WarningKind = "all_zero_quantity"
	WarnBlankProduct    WarningKind = "blank_product"
	WarnProductSkipped  WarningKind = "product_skipped"
)

// Warning is surfaced to callers and logged; it never aborts a run.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
	Count   int         `json:"count,omitempty"`
	Product string      `json:"product,omitempty"`
}
