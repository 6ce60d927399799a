package service

import (
	"context"

	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/types"
)

// postLedgerEntry fills identity and audit fields, validates and appends the entry
func (s *ServiceParams) postLedgerEntry(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, error) {
	entry.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LEDGER_ENTRY)
	entry.Amount = types.RoundMoney(entry.Amount)
	entry.Currency = types.NormalizeCurrency(entry.Currency)
	entry.BaseModel = types.GetDefaultBaseModel(ctx)

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := s.LedgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.Logger.Debugw("posted ledger entry",
		"ledger_entry_id", entry.ID,
		"account_id", entry.AccountID,
		"invoice_id", entry.InvoiceID,
		"payment_id", entry.PaymentID,
		"credit_note_id", entry.CreditNoteID,
		"entry_type", entry.EntryType,
		"source", entry.Source,
		"amount", entry.Amount,
	)
	return entry, nil
}
