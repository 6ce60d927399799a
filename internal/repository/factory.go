package repository

import (
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/billingrun"
	"github.com/flexprice/ispbilling/internal/domain/creditnote"
	"github.com/flexprice/ispbilling/internal/domain/invoice"
	"github.com/flexprice/ispbilling/internal/domain/ledger"
	"github.com/flexprice/ispbilling/internal/domain/payment"
	"github.com/flexprice/ispbilling/internal/domain/paymentchannel"
	"github.com/flexprice/ispbilling/internal/domain/provider"
	"github.com/flexprice/ispbilling/internal/domain/sequence"
	"github.com/flexprice/ispbilling/internal/domain/subscription"
	"github.com/flexprice/ispbilling/internal/domain/taxrate"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/postgres"
	postgresRepo "github.com/flexprice/ispbilling/internal/repository/postgres"
	"go.uber.org/fx"
)

type RepositoryType string

const (
	PostgresRepo RepositoryType = "postgres"
)

// Module provides every billing repository backed by postgres
func Module() fx.Option {
	return fx.Module("repository",
		fx.Provide(
			NewAccountRepository,
			NewTaxRateRepository,
			NewInvoiceRepository,
			NewInvoiceLineRepository,
			NewCreditNoteRepository,
			NewCreditNoteLineRepository,
			NewCreditNoteApplicationRepository,
			NewPaymentRepository,
			NewPaymentAllocationRepository,
			NewPaymentChannelRepository,
			NewLedgerRepository,
			NewProviderRepository,
			NewProviderEventRepository,
			NewSubscriptionRepository,
			NewOfferRepository,
			NewBillingRunRepository,
			NewSequenceRepository,
		),
	)
}

func NewAccountRepository(db *postgres.DB, logger *logger.Logger) account.Repository {
	return postgresRepo.NewAccountRepository(db, logger)
}

func NewTaxRateRepository(db *postgres.DB, logger *logger.Logger) taxrate.Repository {
	return postgresRepo.NewTaxRateRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewInvoiceLineRepository(db *postgres.DB, logger *logger.Logger) invoice.LineRepository {
	return postgresRepo.NewInvoiceLineRepository(db, logger)
}

func NewCreditNoteRepository(db *postgres.DB, logger *logger.Logger) creditnote.Repository {
	return postgresRepo.NewCreditNoteRepository(db, logger)
}

func NewCreditNoteLineRepository(db *postgres.DB, logger *logger.Logger) creditnote.LineRepository {
	return postgresRepo.NewCreditNoteLineRepository(db, logger)
}

func NewCreditNoteApplicationRepository(db *postgres.DB, logger *logger.Logger) creditnote.ApplicationRepository {
	return postgresRepo.NewCreditNoteApplicationRepository(db, logger)
}

func NewPaymentRepository(db *postgres.DB, logger *logger.Logger) payment.Repository {
	return postgresRepo.NewPaymentRepository(db, logger)
}

func NewPaymentAllocationRepository(db *postgres.DB, logger *logger.Logger) payment.AllocationRepository {
	return postgresRepo.NewPaymentAllocationRepository(db, logger)
}

func NewPaymentChannelRepository(db *postgres.DB, logger *logger.Logger) paymentchannel.Repository {
	return postgresRepo.NewPaymentChannelRepository(db, logger)
}

func NewLedgerRepository(db *postgres.DB, logger *logger.Logger) ledger.Repository {
	return postgresRepo.NewLedgerRepository(db, logger)
}

func NewProviderRepository(db *postgres.DB, logger *logger.Logger) provider.Repository {
	return postgresRepo.NewProviderRepository(db, logger)
}

func NewProviderEventRepository(db *postgres.DB, logger *logger.Logger) provider.EventRepository {
	return postgresRepo.NewProviderEventRepository(db, logger)
}

func NewSubscriptionRepository(db *postgres.DB, logger *logger.Logger) subscription.Repository {
	return postgresRepo.NewSubscriptionRepository(db, logger)
}

func NewOfferRepository(db *postgres.DB, logger *logger.Logger) subscription.OfferRepository {
	return postgresRepo.NewOfferRepository(db, logger)
}

func NewBillingRunRepository(db *postgres.DB, logger *logger.Logger) billingrun.Repository {
	return postgresRepo.NewBillingRunRepository(db, logger)
}

func NewSequenceRepository(db *postgres.DB, logger *logger.Logger) sequence.Repository {
	return postgresRepo.NewSequenceRepository(db, logger)
}
