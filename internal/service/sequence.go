package service

import (
	"context"
	"fmt"

	"github.com/flexprice/ispbilling/internal/domain/sequence"
)

// SequenceService mints human-readable document numbers
type SequenceService interface {
	NextInvoiceNumber(ctx context.Context) (string, error)
	NextCreditNoteNumber(ctx context.Context) (string, error)
}

type sequenceService struct {
	ServiceParams
}

func NewSequenceService(params ServiceParams) SequenceService {
	return &sequenceService{ServiceParams: params}
}

func (s *sequenceService) NextInvoiceNumber(ctx context.Context) (string, error) {
	return s.next(ctx, sequence.KeyInvoice, s.Config.Billing.InvoiceNumberPrefix)
}

func (s *sequenceService) NextCreditNoteNumber(ctx context.Context) (string, error) {
	return s.next(ctx, sequence.KeyCreditNote, s.Config.Billing.CreditNoteNumberPrefix)
}

func (s *sequenceService) next(ctx context.Context, key, prefix string) (string, error) {
	value, err := s.SequenceRepo.Next(ctx, key, s.Config.Billing.NumberStart)
	if err != nil {
		return "", err
	}
	return FormatDocumentNumber(prefix, s.Config.Billing.NumberPadding, value), nil
}

// FormatDocumentNumber renders prefix followed by value zero-padded to padding digits
func FormatDocumentNumber(prefix string, padding int, value int64) string {
	return fmt.Sprintf("%s%0*d", prefix, padding, value)
}
