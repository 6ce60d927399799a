package testutil

import (
	"context"
	"time"

	"github.com/flexprice/ispbilling/internal/cache"
	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/domain/provider"
	"github.com/flexprice/ispbilling/internal/domain/subscription"
	"github.com/flexprice/ispbilling/internal/domain/taxrate"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/notification"
	"github.com/flexprice/ispbilling/internal/sentry"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/flexprice/ispbilling/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// Stores holds the in-memory repositories for testing
type Stores struct {
	AccountRepo               *InMemoryAccountStore
	TaxRateRepo               *InMemoryTaxRateStore
	InvoiceRepo               *InMemoryInvoiceStore
	InvoiceLineRepo           *InMemoryInvoiceLineStore
	CreditNoteRepo            *InMemoryCreditNoteStore
	CreditNoteLineRepo        *InMemoryCreditNoteLineStore
	CreditNoteApplicationRepo *InMemoryCreditNoteApplicationStore
	PaymentRepo               *InMemoryPaymentStore
	PaymentAllocationRepo     *InMemoryPaymentAllocationStore
	PaymentChannelRepo        *InMemoryPaymentChannelStore
	LedgerRepo                *InMemoryLedgerStore
	ProviderRepo              *InMemoryProviderStore
	ProviderEventRepo         *InMemoryProviderEventStore
	SubscriptionRepo          *InMemorySubscriptionStore
	OfferRepo                 *InMemoryOfferStore
	BillingRunRepo            *InMemoryBillingRunStore
	SequenceRepo              *InMemorySequenceStore
}

func (s Stores) all() []Snapshotter {
	return []Snapshotter{
		s.AccountRepo, s.TaxRateRepo, s.InvoiceRepo, s.InvoiceLineRepo,
		s.CreditNoteRepo, s.CreditNoteLineRepo, s.CreditNoteApplicationRepo,
		s.PaymentRepo, s.PaymentAllocationRepo, s.PaymentChannelRepo, s.LedgerRepo,
		s.ProviderRepo, s.ProviderEventRepo, s.SubscriptionRepo, s.OfferRepo,
		s.BillingRunRepo, s.SequenceRepo,
	}
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	stores    Stores
	db        *MockPostgresClient
	pubSub    *InMemoryPubSub
	publisher notification.Publisher
	cache     cache.Cache
	sentry    *sentry.Service
	logger    *logger.Logger
	config    *config.Configuration
	now       time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()
	s.logger = logger.NewNopLogger()
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.now = time.Now().UTC()
	s.setupConfig()
	s.setupStores()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.ClearStores()
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
}

func (s *BaseServiceTestSuite) setupConfig() {
	s.config = config.GetDefaultConfig()
	s.config.Billing.RetryDelay = time.Millisecond
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		AccountRepo:               NewInMemoryAccountStore(),
		TaxRateRepo:               NewInMemoryTaxRateStore(),
		InvoiceRepo:               NewInMemoryInvoiceStore(),
		InvoiceLineRepo:           NewInMemoryInvoiceLineStore(),
		CreditNoteRepo:            NewInMemoryCreditNoteStore(),
		CreditNoteLineRepo:        NewInMemoryCreditNoteLineStore(),
		CreditNoteApplicationRepo: NewInMemoryCreditNoteApplicationStore(),
		PaymentRepo:               NewInMemoryPaymentStore(),
		PaymentAllocationRepo:     NewInMemoryPaymentAllocationStore(),
		PaymentChannelRepo:        NewInMemoryPaymentChannelStore(),
		LedgerRepo:                NewInMemoryLedgerStore(),
		ProviderRepo:              NewInMemoryProviderStore(),
		ProviderEventRepo:         NewInMemoryProviderEventStore(),
		SubscriptionRepo:          NewInMemorySubscriptionStore(),
		OfferRepo:                 NewInMemoryOfferStore(),
		BillingRunRepo:            NewInMemoryBillingRunStore(),
		SequenceRepo:              NewInMemorySequenceStore(),
	}

	s.db = NewMockPostgresClient(s.logger, s.stores.all()...)
	s.cache = cache.NewInMemoryCache(s.config, s.logger)
	s.sentry = sentry.NewSentryService(s.config, s.logger)
	s.pubSub = NewInMemoryPubSub()
	s.publisher = notification.NewPublisher(s.pubSub, s.config, s.logger)
}

// ClearStores empties every store and the notification log
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.AccountRepo.Clear()
	s.stores.TaxRateRepo.Clear()
	s.stores.InvoiceRepo.Clear()
	s.stores.InvoiceLineRepo.Clear()
	s.stores.CreditNoteRepo.Clear()
	s.stores.CreditNoteLineRepo.Clear()
	s.stores.CreditNoteApplicationRepo.Clear()
	s.stores.PaymentRepo.Clear()
	s.stores.PaymentAllocationRepo.Clear()
	s.stores.PaymentChannelRepo.Clear()
	s.stores.LedgerRepo.Clear()
	s.stores.ProviderRepo.Clear()
	s.stores.ProviderEventRepo.Clear()
	s.stores.SubscriptionRepo.Clear()
	s.stores.OfferRepo.Clear()
	s.stores.BillingRunRepo.Clear()
	s.stores.SequenceRepo.Clear()
	if s.pubSub != nil {
		s.pubSub.ClearMessages()
	}
	if s.cache != nil {
		s.cache.Flush(s.ctx)
	}
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetPublisher returns the notification publisher backed by GetPubSub
func (s *BaseServiceTestSuite) GetPublisher() notification.Publisher {
	return s.publisher
}

func (s *BaseServiceTestSuite) GetPubSub() *InMemoryPubSub {
	return s.pubSub
}

// GetNotifications decodes the notifications published so far
func (s *BaseServiceTestSuite) GetNotifications() []*types.NotificationEvent {
	events, err := s.pubSub.NotificationEvents(s.config.Notification.Topic)
	s.Require().NoError(err)
	return events
}

// GetNotificationNames lists the published notification names in order
func (s *BaseServiceTestSuite) GetNotificationNames() []types.NotificationEventName {
	return lo.Map(s.GetNotifications(), func(e *types.NotificationEvent, _ int) types.NotificationEventName {
		return e.EventName
	})
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}

// CreateAccount stores an active account billed in USD
func (s *BaseServiceTestSuite) CreateAccount(name string) *account.Account {
	acct := &account.Account{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_ACCOUNT),
		Name:          name,
		AccountStatus: types.AccountStatusActive,
		Currency:      "USD",
		BaseModel:     types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.AccountRepo.Create(s.ctx, acct))
	return acct
}

// CreateTaxRate stores a percentage tax rate, e.g. "16" for 16%
func (s *BaseServiceTestSuite) CreateTaxRate(code, rate string) *taxrate.TaxRate {
	tr := &taxrate.TaxRate{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE),
		Name:      code,
		Code:      code,
		Rate:      decimal.RequireFromString(rate),
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.TaxRateRepo.Create(s.ctx, tr))
	return tr
}

func (s *BaseServiceTestSuite) CreateProvider(code string) *provider.Provider {
	p := &provider.Provider{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_PROVIDER),
		Name:      code,
		Code:      code,
		BaseModel: types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.ProviderRepo.Create(s.ctx, p))
	return p
}

// CreateOffer stores a USD offer. A nil price leaves the offer unpriced.
func (s *BaseServiceTestSuite) CreateOffer(name string, price *decimal.Decimal, cycle types.BillingCycle) *subscription.Offer {
	offer := &subscription.Offer{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OFFER),
		Name:         name,
		Price:        price,
		Currency:     "USD",
		BillingCycle: cycle,
		BaseModel:    types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.stores.OfferRepo.Create(s.ctx, offer))
	return offer
}

func (s *BaseServiceTestSuite) CreateSubscription(accountID, offerID string, status types.SubscriptionStatus, startAt time.Time) *subscription.Subscription {
	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		AccountID:          accountID,
		OfferID:            offerID,
		SubscriptionStatus: status,
		StartAt:            startAt,
		BaseModel:          types.GetDefaultBaseModel(s.ctx),
	}
	if status == types.SubscriptionStatusActive {
		sub.ActivatedAt = lo.ToPtr(startAt)
	}
	s.Require().NoError(s.stores.SubscriptionRepo.Create(s.ctx, sub))
	return sub
}
