package types

import (
	"encoding/json"
	"time"
)

// NotificationEventName is the name of an outbound notification produced after commit
type NotificationEventName string

const (
	NotificationEventInvoiceCreated        NotificationEventName = "invoice.created"
	NotificationEventInvoiceSent           NotificationEventName = "invoice.sent"
	NotificationEventInvoicePaid           NotificationEventName = "invoice.paid"
	NotificationEventInvoiceOverdue        NotificationEventName = "invoice.overdue"
	NotificationEventPaymentReceived       NotificationEventName = "payment.received"
	NotificationEventPaymentFailed         NotificationEventName = "payment.failed"
	NotificationEventPaymentRefunded       NotificationEventName = "payment.refunded"
	NotificationEventSubscriptionActivated NotificationEventName = "subscription.activated"
)

// NotificationEvent is the envelope published on the notification topic
type NotificationEvent struct {
	ID        string                `json:"id"`
	EventName NotificationEventName `json:"event_name"`
	TenantID  string                `json:"tenant_id"`
	UserID    string                `json:"user_id"`
	AccountID string                `json:"account_id"`
	InvoiceID *string               `json:"invoice_id,omitempty"`
	PaymentID *string               `json:"payment_id,omitempty"`
	Timestamp time.Time             `json:"timestamp"`
	Payload   json.RawMessage       `json:"payload,omitempty"`
}
