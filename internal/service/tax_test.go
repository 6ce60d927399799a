package service

import (
	"testing"

	"github.com/flexprice/ispbilling/internal/cache"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestComputeTax(t *testing.T) {
	tests := []struct {
		name        string
		amount      string
		rate        string
		application types.TaxApplication
		want        string
	}{
		{"exclusive", "100", "16", types.TaxApplicationExclusive, "16"},
		{"exclusive rounds", "12.34", "16", types.TaxApplicationExclusive, "1.97"},
		{"exclusive half rounds away from zero", "0.05", "10", types.TaxApplicationExclusive, "0.01"},
		{"inclusive", "116", "16", types.TaxApplicationInclusive, "16"},
		{"inclusive rounds", "100", "16", types.TaxApplicationInclusive, "13.79"},
		{"exempt", "100", "16", types.TaxApplicationExempt, "0"},
		{"zero rate", "100", "0", types.TaxApplicationExclusive, "0"},
		{"negative adjustment", "-50", "16", types.TaxApplicationExclusive, "-8"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeTax(decimal.RequireFromString(tc.amount), decimal.RequireFromString(tc.rate), tc.application)
			assert.True(t, decimal.RequireFromString(tc.want).Equal(got), "got %s want %s", got, tc.want)
		})
	}
}

type TaxServiceSuite struct {
	testutil.BaseServiceTestSuite
	service TaxService
}

func TestTaxService(t *testing.T) {
	suite.Run(t, new(TaxServiceSuite))
}

func (s *TaxServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewTaxService(newTestServiceParams(&s.BaseServiceTestSuite))
}

func (s *TaxServiceSuite) TestLineTax() {
	vat := s.CreateTaxRate("VAT", "16")
	amount := decimal.NewFromInt(50)

	tests := []struct {
		name        string
		taxRateID   *string
		application types.TaxApplication
		want        string
	}{
		{"no rate", nil, types.TaxApplicationExclusive, "0"},
		{"empty rate id", lo.ToPtr(""), types.TaxApplicationExclusive, "0"},
		{"exempt line", lo.ToPtr(vat.ID), types.TaxApplicationExempt, "0"},
		{"exclusive", lo.ToPtr(vat.ID), types.TaxApplicationExclusive, "8"},
		{"inclusive", lo.ToPtr(vat.ID), types.TaxApplicationInclusive, "6.9"},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			got, err := s.service.LineTax(s.GetContext(), amount, tc.taxRateID, tc.application)
			s.Require().NoError(err)
			s.True(decimal.RequireFromString(tc.want).Equal(got), "got %s want %s", got, tc.want)
		})
	}

	_, err := s.service.LineTax(s.GetContext(), amount, lo.ToPtr("tax_missing"), types.TaxApplicationExclusive)
	s.True(ierr.IsNotFound(err))
}

func (s *TaxServiceSuite) TestGetTaxRateIsCached() {
	vat := s.CreateTaxRate("VAT", "16")

	cfg := *s.GetConfig()
	cfg.Cache.Enabled = true
	params := newTestServiceParams(&s.BaseServiceTestSuite)
	params.Cache = cache.NewInMemoryCache(&cfg, s.GetLogger())
	svc := NewTaxService(params)

	first, err := svc.GetTaxRate(s.GetContext(), vat.ID)
	s.Require().NoError(err)
	s.Equal("VAT", first.Code)

	s.GetStores().TaxRateRepo.Clear()

	cached, err := svc.GetTaxRate(s.GetContext(), vat.ID)
	s.Require().NoError(err)
	s.Equal(vat.ID, cached.ID)
}
