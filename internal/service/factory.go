package service

import (
	"github.com/flexprice/ispbilling/internal/cache"
	"github.com/flexprice/ispbilling/internal/config"
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
	"github.com/flexprice/ispbilling/internal/notification"
	"github.com/flexprice/ispbilling/internal/postgres"
	"github.com/flexprice/ispbilling/internal/sentry"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentry.Service

	// Repositories
	AccountRepo               account.Repository
	TaxRateRepo               taxrate.Repository
	InvoiceRepo               invoice.Repository
	InvoiceLineRepo           invoice.LineRepository
	CreditNoteRepo            creditnote.Repository
	CreditNoteLineRepo        creditnote.LineRepository
	CreditNoteApplicationRepo creditnote.ApplicationRepository
	PaymentRepo               payment.Repository
	PaymentAllocationRepo     payment.AllocationRepository
	PaymentChannelRepo        paymentchannel.Repository
	LedgerRepo                ledger.Repository
	ProviderRepo              provider.Repository
	ProviderEventRepo         provider.EventRepository
	SubRepo                   subscription.Repository
	OfferRepo                 subscription.OfferRepository
	BillingRunRepo            billingrun.Repository
	SequenceRepo              sequence.Repository

	NotificationPublisher notification.Publisher
}

func NewServiceParams(
	logger *logger.Logger,
	config *config.Configuration,
	db postgres.IClient,
	cache cache.Cache,
	sentry *sentry.Service,
	accountRepo account.Repository,
	taxRateRepo taxrate.Repository,
	invoiceRepo invoice.Repository,
	invoiceLineRepo invoice.LineRepository,
	creditNoteRepo creditnote.Repository,
	creditNoteLineRepo creditnote.LineRepository,
	creditNoteApplicationRepo creditnote.ApplicationRepository,
	paymentRepo payment.Repository,
	paymentAllocationRepo payment.AllocationRepository,
	paymentChannelRepo paymentchannel.Repository,
	ledgerRepo ledger.Repository,
	providerRepo provider.Repository,
	providerEventRepo provider.EventRepository,
	subRepo subscription.Repository,
	offerRepo subscription.OfferRepository,
	billingRunRepo billingrun.Repository,
	sequenceRepo sequence.Repository,
	notificationPublisher notification.Publisher,
) ServiceParams {
	return ServiceParams{
		Logger:                    logger,
		Config:                    config,
		DB:                        db,
		Cache:                     cache,
		Sentry:                    sentry,
		AccountRepo:               accountRepo,
		TaxRateRepo:               taxRateRepo,
		InvoiceRepo:               invoiceRepo,
		InvoiceLineRepo:           invoiceLineRepo,
		CreditNoteRepo:            creditNoteRepo,
		CreditNoteLineRepo:        creditNoteLineRepo,
		CreditNoteApplicationRepo: creditNoteApplicationRepo,
		PaymentRepo:               paymentRepo,
		PaymentAllocationRepo:     paymentAllocationRepo,
		PaymentChannelRepo:        paymentChannelRepo,
		LedgerRepo:                ledgerRepo,
		ProviderRepo:              providerRepo,
		ProviderEventRepo:         providerEventRepo,
		SubRepo:                   subRepo,
		OfferRepo:                 offerRepo,
		BillingRunRepo:            billingRunRepo,
		SequenceRepo:              sequenceRepo,
		NotificationPublisher:     notificationPublisher,
	}
}

// Module provides every billing service to the fx graph
func Module() fx.Option {
	return fx.Module("service",
		fx.Provide(
			NewServiceParams,
			NewSequenceService,
			NewTaxService,
			NewInvoiceService,
			NewCreditNoteService,
			NewPaymentService,
			NewProviderEventService,
			NewBillingAutomationService,
		),
	)
}
