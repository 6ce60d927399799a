package service

import (
	"github.com/flexprice/ispbilling/internal/testutil"
)

// newTestServiceParams wires every service dependency to the suite's in-memory stores
func newTestServiceParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return NewServiceParams(
		s.GetLogger(),
		s.GetConfig(),
		s.GetDB(),
		s.GetCache(),
		s.GetSentry(),
		stores.AccountRepo,
		stores.TaxRateRepo,
		stores.InvoiceRepo,
		stores.InvoiceLineRepo,
		stores.CreditNoteRepo,
		stores.CreditNoteLineRepo,
		stores.CreditNoteApplicationRepo,
		stores.PaymentRepo,
		stores.PaymentAllocationRepo,
		stores.PaymentChannelRepo,
		stores.LedgerRepo,
		stores.ProviderRepo,
		stores.ProviderEventRepo,
		stores.SubscriptionRepo,
		stores.OfferRepo,
		stores.BillingRunRepo,
		stores.SequenceRepo,
		s.GetPublisher(),
	)
}
