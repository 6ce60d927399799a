package email_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/flexprice/ispbilling/internal/config"
	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/email"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/testutil"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, text string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) Send(ctx context.Context, to, subject, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, text: text})
	return "msg_1", nil
}

type countingSink struct {
	events []types.NotificationEventName
}

func (c *countingSink) Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error {
	c.events = append(c.events, eventName)
	return nil
}

func setup(t *testing.T, emailAddr string) (context.Context, *fakeSender, *countingSink, *email.ReceiptSink) {
	t.Helper()
	ctx := testutil.SetupContext()
	accounts := testutil.NewInMemoryAccountStore()
	require.NoError(t, accounts.Create(ctx, &account.Account{
		ID:            "acct_1",
		Name:          "Kilimani Heights",
		Email:         emailAddr,
		AccountStatus: types.AccountStatusActive,
		Currency:      "KES",
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}))

	sender := &fakeSender{}
	next := &countingSink{}
	return ctx, sender, next, email.NewReceiptSink(sender, accounts, next, logger.NewNopLogger())
}

func payload(t *testing.T, v map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestPaymentReceivedReceipt(t *testing.T) {
	ctx, sender, next, sink := setup(t, "ops@kilimani.example")

	err := sink.Emit(ctx, types.NotificationEventPaymentReceived, payload(t, map[string]any{
		"amount":      "2500",
		"currency":    "KES",
		"external_id": "QK71XYZ",
	}), "acct_1", nil)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops@kilimani.example", sender.sent[0].to)
	assert.Equal(t, "Payment received", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].text, "Hello Kilimani Heights")
	assert.Contains(t, sender.sent[0].text, "KES 2500 (reference QK71XYZ)")
	assert.Equal(t, []types.NotificationEventName{types.NotificationEventPaymentReceived}, next.events)
}

func TestInvoicePaidReceipt(t *testing.T) {
	ctx, sender, _, sink := setup(t, "ops@kilimani.example")

	err := sink.Emit(ctx, types.NotificationEventInvoicePaid, payload(t, map[string]any{
		"invoice_number": "INV-000007",
		"currency":       "KES",
		"total":          "2500.00",
	}), "acct_1", nil)
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Invoice INV-000007 paid", sender.sent[0].subject)
}

func TestEventsWithoutReceiptOnlyForward(t *testing.T) {
	ctx, sender, next, sink := setup(t, "ops@kilimani.example")

	require.NoError(t, sink.Emit(ctx, types.NotificationEventInvoiceCreated, nil, "acct_1", nil))
	require.NoError(t, sink.Emit(ctx, types.NotificationEventSubscriptionActivated, nil, "acct_1", nil))

	assert.Empty(t, sender.sent)
	assert.Len(t, next.events, 2)
}

func TestAccountWithoutEmailIsSkipped(t *testing.T) {
	ctx, sender, next, sink := setup(t, "")

	require.NoError(t, sink.Emit(ctx, types.NotificationEventPaymentFailed, nil, "acct_1", nil))
	assert.Empty(t, sender.sent)
	assert.Len(t, next.events, 1)
}

func TestUnknownAccount(t *testing.T) {
	ctx, _, _, sink := setup(t, "ops@kilimani.example")

	err := sink.Emit(ctx, types.NotificationEventPaymentFailed, nil, "acct_missing", nil)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSendFailureIsReturned(t *testing.T) {
	ctx, sender, _, sink := setup(t, "ops@kilimani.example")
	sender.err = errors.New("resend unavailable")

	err := sink.Emit(ctx, types.NotificationEventPaymentRefunded, payload(t, map[string]any{
		"amount":        "100",
		"refund_amount": "40",
		"currency":      "USD",
	}), "acct_1", nil)
	require.Error(t, err)
}

func TestNewClientDisabled(t *testing.T) {
	assert.Nil(t, email.NewClient(config.EmailConfig{Enabled: false, APIKey: "re_123"}))
	assert.Nil(t, email.NewClient(config.EmailConfig{Enabled: true}))
	assert.NotNil(t, email.NewClient(config.EmailConfig{Enabled: true, APIKey: "re_123", FromAddress: "billing@example.net"}))
}
