package invoice

import (
	"testing"

	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInvoiceValidateTotals(t *testing.T) {
	valid := func() *Invoice {
		return &Invoice{
			AccountID:     "acct_1",
			InvoiceStatus: types.InvoiceStatusIssued,
			Currency:      "KES",
			Subtotal:      decimal.NewFromInt(100),
			TaxTotal:      decimal.NewFromInt(16),
			Total:         decimal.NewFromInt(116),
			BalanceDue:    decimal.NewFromInt(116),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Invoice)
		wantErr bool
	}{
		{"derived totals", func(*Invoice) {}, false},
		{"zero invoice", func(i *Invoice) {
			i.Subtotal, i.TaxTotal, i.Total, i.BalanceDue = decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
		}, false},
		{"negative subtotal", func(i *Invoice) { i.Subtotal = decimal.NewFromInt(-1) }, true},
		{"negative total", func(i *Invoice) { i.Total = decimal.NewFromInt(-116) }, true},
		{"balance due above total", func(i *Invoice) { i.BalanceDue = decimal.NewFromInt(117) }, true},
		{"missing account", func(i *Invoice) { i.AccountID = "" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inv := valid()
			tc.mutate(inv)
			err := inv.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, ierr.IsValidation(err))
		})
	}
}
