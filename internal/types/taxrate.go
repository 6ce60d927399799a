package types

import (
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/samber/lo"
)

// TaxApplication controls how a line's tax rate is applied to its amount
type TaxApplication string

const (
	// TaxApplicationExclusive adds tax on top of the line amount
	TaxApplicationExclusive TaxApplication = "exclusive"
	// TaxApplicationInclusive treats the line amount as already containing tax
	TaxApplicationInclusive TaxApplication = "inclusive"
	// TaxApplicationExempt charges no tax
	TaxApplicationExempt TaxApplication = "exempt"
)

func (t TaxApplication) String() string {
	return string(t)
}

func (t TaxApplication) Validate() error {
	allowed := []TaxApplication{
		TaxApplicationExclusive,
		TaxApplicationInclusive,
		TaxApplicationExempt,
	}
	if !lo.Contains(allowed, t) {
		return ierr.NewError("invalid tax application").
			WithHint("Tax application must be one of exclusive, inclusive or exempt").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
