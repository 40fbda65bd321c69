package reorder

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultLeadTimeDays = 7
	DefaultZValue       = 1.65
	DefaultWindow       = 7
)

var (
	validate     = validator.New()
	errNonFinite = errors.New("lead_time_days and z_value must be finite numbers")
)

// Params are the tunable inputs of a recommendation run.
type Params struct {
	LeadTimeDays float64 `json:"lead_time_days" validate:"gt=0,lte=365"`
	ZValue       float64 `json:"z_value" validate:"gte=0,lte=10"`
	Window       int     `json:"window" validate:"gte=1,lte=365"`
}

func DefaultParams() Params {
	return Params{
		LeadTimeDays: DefaultLeadTimeDays,
		ZValue:       DefaultZValue,
		Window:       DefaultWindow,
	}
}

// Validate returns an *InvalidParamsError when any field is out of range.
func (p Params) Validate() error {
	if !isFinite(p.LeadTimeDays) || !isFinite(p.ZValue) {
		return &InvalidParamsError{Err: errNonFinite}
	}
	if err := validate.Struct(p); err != nil {
		return &InvalidParamsError{Err: err}
	}
	return nil
}

func (p Params) Policy() Policy {
	return Policy{LeadTimeDays: p.LeadTimeDays, ZValue: p.ZValue}
}
