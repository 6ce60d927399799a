package service

import (
	"context"

	"github.com/flexprice/ispbilling/internal/cache"
	"github.com/flexprice/ispbilling/internal/domain/taxrate"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaxService resolves tax rates and computes the tax carried by a line
type TaxService interface {
	GetTaxRate(ctx context.Context, id string) (*taxrate.TaxRate, error)

	// LineTax returns the tax on amount for the given rate reference and application mode.
	// A nil rate or an exempt line carries no tax.
	LineTax(ctx context.Context, amount decimal.Decimal, taxRateID *string, application types.TaxApplication) (decimal.Decimal, error)
}

type taxService struct {
	ServiceParams
}

func NewTaxService(params ServiceParams) TaxService {
	return &taxService{ServiceParams: params}
}

func (s *taxService) GetTaxRate(ctx context.Context, id string) (*taxrate.TaxRate, error) {
	key := cache.GenerateKey(cache.PrefixTaxRate, types.GetTenantID(ctx), id)
	if s.Cache != nil {
		if v, ok := s.Cache.Get(ctx, key); ok {
			if rate, ok := v.(*taxrate.TaxRate); ok {
				return rate, nil
			}
		}
	}

	rate, err := s.TaxRateRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Set(ctx, key, rate, 0)
	}
	return rate, nil
}

func (s *taxService) LineTax(ctx context.Context, amount decimal.Decimal, taxRateID *string, application types.TaxApplication) (decimal.Decimal, error) {
	if taxRateID == nil || *taxRateID == "" || application == types.TaxApplicationExempt {
		return decimal.Zero, nil
	}
	rate, err := s.GetTaxRate(ctx, *taxRateID)
	if err != nil {
		return decimal.Zero, err
	}
	return ComputeTax(amount, rate.Rate, application), nil
}

// ComputeTax applies a percentage rate to amount.
// Exclusive: round(amount * rate / 100).
// Inclusive: round(amount - amount / (1 + rate / 100)), the tax already inside amount.
func ComputeTax(amount, rate decimal.Decimal, application types.TaxApplication) decimal.Decimal {
	rate = types.RoundRate(rate)
	switch application {
	case types.TaxApplicationExclusive:
		return types.RoundMoney(amount.Mul(rate).Div(hundred))
	case types.TaxApplicationInclusive:
		divisor := decimal.NewFromInt(1).Add(rate.Div(hundred))
		return types.RoundMoney(amount.Sub(amount.Div(divisor)))
	default:
		return decimal.Zero
	}
}
