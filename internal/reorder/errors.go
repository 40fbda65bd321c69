package reorder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyTable is returned when the input table has no data rows at all.
var ErrEmptyTable = errors.New("the table contains no data rows")

// MissingColumnError reports every mandatory field that no column could be
// matched to, together with the columns that were available.
type MissingColumnError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnError) Error() string {
	hints := make([]string, 0, len(e.Missing))
	for _, name := range e.Missing {
		hints = append(hints, fieldHint(name))
	}
	return fmt.Sprintf("could not find required columns: %s. available columns: %s",
		strings.Join(hints, ", "), strings.Join(e.Available, ", "))
}

// ExpectedDateFormat is the format named in date parse failures.
const ExpectedDateFormat = "YYYY-MM-DD"

// DateParseError aborts ingestion when any date cell cannot be parsed.
// Row is the 1-based data row of the first failure.
type DateParseError struct {
	Row      int
	Value    string
	Failures int
	Expected string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("could not parse date column: %d value(s) failed, first %q at row %d; "+
		"please ensure dates are in a standard format such as %s", e.Failures, e.Value, e.Row, e.Expected)
}

// EmptyResultError is returned when no product produced a recommendation.
type EmptyResultError struct {
	Skipped int
}

func (e *EmptyResultError) Error() string {
	if e.Skipped > 0 {
		return fmt.Sprintf("no valid products found in the data (%d skipped), please check your file format", e.Skipped)
	}
	return "no valid products found in the data, please check your file format"
}

// InvalidParamsError wraps a failed Params validation.
type InvalidParamsError struct {
	Err error
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameters: %v", e.Err)
}

func (e *InvalidParamsError) Unwrap() error { return e.Err }

// IsInputError reports whether err is caused by the uploaded data itself
// rather than by the system.
func IsInputError(err error) bool {
	var (
		missing *MissingColumnError
		date    *DateParseError
		empty   *EmptyResultError
	)
	return errors.As(err, &missing) || errors.As(err, &date) || errors.As(err, &empty) || errors.Is(err, ErrEmptyTable)
}
