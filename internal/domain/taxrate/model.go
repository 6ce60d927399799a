package taxrate

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

// TaxRate is a flat percentage tax, e.g. Rate 16.0000 for 16%
type TaxRate struct {
	ID   string          `db:"id" json:"id"`
	Name string          `db:"name" json:"name"`
	Code string          `db:"code" json:"code"`
	Rate decimal.Decimal `db:"rate" json:"rate"`
	types.BaseModel
}

func (t *TaxRate) Validate() error {
	if t.Name == "" {
		return ierr.NewError("tax rate name is required").
			WithHint("Please provide a tax rate name").
			Mark(ierr.ErrValidation)
	}
	if t.Rate.IsNegative() || t.Rate.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("tax rate out of range").
			WithHint("Tax rate must be between 0 and 100 percent").
			WithReportableDetails(map[string]any{
				"rate": t.Rate.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
