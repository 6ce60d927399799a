package notification_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flexprice/ispbilling/internal/config"
	ierr "github.com/flexprice/ispbilling/internal/errors"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/notification"
	"github.com/flexprice/ispbilling/internal/pubsub/memory"
	"github.com/flexprice/ispbilling/internal/sentry"
	"github.com/flexprice/ispbilling/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	restored []string
	resolved []string
	emitted  []types.NotificationEventName
	tenants  []string
	fail     error
}

func (r *recorder) RestoreAccountServices(ctx context.Context, accountID, invoiceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restored = append(r.restored, invoiceID)
	return r.fail
}

func (r *recorder) ResolveCasesForAccount(ctx context.Context, accountID string, invoiceID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, accountID)
	return nil
}

func (r *recorder) Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emitted = append(r.emitted, eventName)
	r.tenants = append(r.tenants, types.GetTenantID(ctx))
	return nil
}

func newHandler(t *testing.T, rec *recorder) notification.Handler {
	t.Helper()
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	return notification.NewHandler(memory.NewPubSub(log), cfg, rec, rec, rec, log, sentry.NewSentryService(cfg, log))
}

func newMessage(t *testing.T, event types.NotificationEvent) *message.Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return message.NewMessage(event.ID, payload)
}

func TestHandleInvoicePaid(t *testing.T) {
	rec := &recorder{}
	h := newHandler(t, rec)

	err := h.Handle(newMessage(t, types.NotificationEvent{
		ID:        "ntf_1",
		EventName: types.NotificationEventInvoicePaid,
		TenantID:  "tenant_a",
		AccountID: "acct_1",
		InvoiceID: lo.ToPtr("inv_1"),
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"inv_1"}, rec.restored)
	assert.Empty(t, rec.resolved)
	assert.Equal(t, []types.NotificationEventName{types.NotificationEventInvoicePaid}, rec.emitted)
	assert.Equal(t, []string{"tenant_a"}, rec.tenants)
}

func TestHandlePaymentReceived(t *testing.T) {
	rec := &recorder{}
	h := newHandler(t, rec)

	err := h.Handle(newMessage(t, types.NotificationEvent{
		ID:        "ntf_2",
		EventName: types.NotificationEventPaymentReceived,
		AccountID: "acct_1",
		PaymentID: lo.ToPtr("pay_1"),
	}))
	require.NoError(t, err)

	assert.Empty(t, rec.restored)
	assert.Equal(t, []string{"acct_1"}, rec.resolved)
	assert.Len(t, rec.emitted, 1)
}

func TestHandleOtherEventsOnlyEmit(t *testing.T) {
	rec := &recorder{}
	h := newHandler(t, rec)

	for _, name := range []types.NotificationEventName{
		types.NotificationEventInvoiceCreated,
		types.NotificationEventInvoiceOverdue,
		types.NotificationEventPaymentRefunded,
		types.NotificationEventSubscriptionActivated,
	} {
		require.NoError(t, h.Handle(newMessage(t, types.NotificationEvent{
			ID:        types.GenerateUUID(),
			EventName: name,
			AccountID: "acct_1",
		})))
	}

	assert.Empty(t, rec.restored)
	assert.Empty(t, rec.resolved)
	assert.Len(t, rec.emitted, 4)
}

func TestHandleCollaboratorFailureIsRetryable(t *testing.T) {
	rec := &recorder{fail: errors.New("radius unreachable")}
	h := newHandler(t, rec)

	err := h.Handle(newMessage(t, types.NotificationEvent{
		ID:        "ntf_3",
		EventName: types.NotificationEventInvoicePaid,
		AccountID: "acct_1",
		InvoiceID: lo.ToPtr("inv_1"),
	}))
	require.Error(t, err)
	assert.True(t, ierr.IsTransient(err))
	// the sink still ran
	assert.Len(t, rec.emitted, 1)
}

func TestHandleMalformedMessageIsDropped(t *testing.T) {
	rec := &recorder{}
	h := newHandler(t, rec)

	err := h.Handle(message.NewMessage("bad", []byte("{not json")))
	require.NoError(t, err)
	assert.Empty(t, rec.emitted)
}

func TestPublishThroughMemoryPubSub(t *testing.T) {
	cfg := config.GetDefaultConfig()
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	msgs, err := ps.Subscribe(ctx, cfg.Notification.Topic)
	require.NoError(t, err)

	pub := notification.NewPublisher(ps, cfg, log)
	ctx = types.SetTenantID(ctx, "tenant_a")
	require.NoError(t, pub.Publish(ctx, &types.NotificationEvent{
		EventName: types.NotificationEventInvoicePaid,
		AccountID: "acct_1",
		InvoiceID: lo.ToPtr("inv_1"),
	}))

	rec := &recorder{}
	h := notification.NewHandler(ps, cfg, rec, rec, rec, log, sentry.NewSentryService(cfg, log))

	select {
	case msg := <-msgs:
		assert.Equal(t, "tenant_a", msg.Metadata.Get("tenant_id"))
		assert.Equal(t, string(types.NotificationEventInvoicePaid), msg.Metadata.Get("event_name"))
		require.NoError(t, h.Handle(msg))
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("notification was not delivered")
	}

	assert.Equal(t, []string{"inv_1"}, rec.restored)
	assert.Equal(t, []string{"tenant_a"}, rec.tenants)
}

func TestPublishDisabled(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Notification.Enabled = false
	log := logger.NewNopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	pub := notification.NewPublisher(ps, cfg, log)
	event := &types.NotificationEvent{EventName: types.NotificationEventInvoiceSent, AccountID: "acct_1"}
	require.NoError(t, pub.Publish(context.Background(), event))
	assert.Empty(t, event.ID)
}
