package idempotency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	g := NewGenerator()

	a := g.GenerateKey(ScopeBillingRunInvoice, map[string]interface{}{
		"account_id":   "acct_1",
		"period_start": "2025-04-01T00:00:00Z",
		"period_end":   "2025-05-01T00:00:00Z",
		"run_id":       "brun_1",
	})
	b := g.GenerateKey(ScopeBillingRunInvoice, map[string]interface{}{
		"run_id":       "brun_1",
		"period_end":   "2025-05-01T00:00:00Z",
		"period_start": "2025-04-01T00:00:00Z",
		"account_id":   "acct_1",
	})
	assert.Equal(t, a, b, "parameter order must not matter")
	assert.Contains(t, a, string(ScopeBillingRunInvoice)+"-")

	c := g.GenerateKey(ScopeBillingRunInvoice, map[string]interface{}{
		"account_id":   "acct_2",
		"period_start": "2025-04-01T00:00:00Z",
		"period_end":   "2025-05-01T00:00:00Z",
		"run_id":       "brun_1",
	})
	assert.NotEqual(t, a, c)

	assert.True(t, g.ValidateKey(ScopeBillingRunInvoice, map[string]interface{}{
		"account_id":   "acct_1",
		"period_start": "2025-04-01T00:00:00Z",
		"period_end":   "2025-05-01T00:00:00Z",
		"run_id":       "brun_1",
	}, a))
}

func TestGenerateKey_ScopeSeparatesKeys(t *testing.T) {
	g := NewGenerator()
	params := map[string]interface{}{"id": "x"}
	assert.NotEqual(t,
		g.GenerateKey(ScopeBillingRunInvoice, params),
		g.GenerateKey(ScopeProviderEvent, params))
}
