package email

import (
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/flexprice/ispbilling/internal/domain/account"
	"github.com/flexprice/ispbilling/internal/logger"
	"github.com/flexprice/ispbilling/internal/types"
)

// EventSink is the notification sink contract, repeated here to keep email free of the consumer package
type EventSink interface {
	Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error
}

type receiptTemplate struct {
	subject *template.Template
	body    *template.Template
}

func mustReceipt(name, subject, body string) receiptTemplate {
	return receiptTemplate{
		subject: template.Must(template.New(name + "_subject").Option("missingkey=zero").Parse(subject)),
		body:    template.Must(template.New(name + "_body").Option("missingkey=zero").Parse(body)),
	}
}

// receipts lists the events a subscriber is mailed about
var receipts = map[types.NotificationEventName]receiptTemplate{
	types.NotificationEventInvoiceSent: mustReceipt("invoice_sent",
		"Invoice {{.invoice_number}} is ready",
		"Hello {{.account_name}},\n\nInvoice {{.invoice_number}} for {{.currency}} {{.total}} has been issued.\nAmount due: {{.currency}} {{.balance_due}}.\n"),
	types.NotificationEventInvoicePaid: mustReceipt("invoice_paid",
		"Invoice {{.invoice_number}} paid",
		"Hello {{.account_name}},\n\nInvoice {{.invoice_number}} for {{.currency}} {{.total}} is fully paid. Thank you.\n"),
	types.NotificationEventPaymentReceived: mustReceipt("payment_received",
		"Payment received",
		"Hello {{.account_name}},\n\nWe received your payment of {{.currency}} {{.amount}}{{if .external_id}} (reference {{.external_id}}){{end}}.\n"),
	types.NotificationEventPaymentFailed: mustReceipt("payment_failed",
		"Payment failed",
		"Hello {{.account_name}},\n\nYour payment of {{.currency}} {{.amount}} could not be completed. Please try again.\n"),
	types.NotificationEventPaymentRefunded: mustReceipt("payment_refunded",
		"Refund issued",
		"Hello {{.account_name}},\n\nA refund of {{.currency}} {{.refund_amount}} has been issued for your payment of {{.currency}} {{.amount}}.\n"),
}

// ReceiptSink mails subscribers about billing events and then hands every
// event to the next sink.
type ReceiptSink struct {
	sender   Sender
	accounts account.Repository
	next     EventSink
	logger   *logger.Logger
}

func NewReceiptSink(sender Sender, accounts account.Repository, next EventSink, logger *logger.Logger) *ReceiptSink {
	return &ReceiptSink{
		sender:   sender,
		accounts: accounts,
		next:     next,
		logger:   logger,
	}
}

func (s *ReceiptSink) Emit(ctx context.Context, eventName types.NotificationEventName, payload json.RawMessage, accountID string, invoiceID *string) error {
	if err := s.next.Emit(ctx, eventName, payload, accountID, invoiceID); err != nil {
		return err
	}

	tmpl, ok := receipts[eventName]
	if !ok {
		return nil
	}

	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return err
	}
	if acct.Email == "" {
		s.logger.Debugw("account has no email, skipping receipt",
			"account_id", accountID,
			"event_name", eventName,
		)
		return nil
	}

	data := make(map[string]any)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &data); err != nil {
			s.logger.Warnw("unreadable notification payload, skipping receipt",
				"account_id", accountID,
				"event_name", eventName,
				"error", err,
			)
			return nil
		}
	}
	data["account_name"] = acct.Name

	subject, body, err := render(tmpl, data)
	if err != nil {
		return err
	}

	messageID, err := s.sender.Send(ctx, acct.Email, subject, body)
	if err != nil {
		return err
	}

	s.logger.Infow("receipt sent",
		"message_id", messageID,
		"account_id", accountID,
		"event_name", eventName,
	)
	return nil
}

func render(tmpl receiptTemplate, data map[string]any) (string, string, error) {
	var subject, body strings.Builder
	if err := tmpl.subject.Execute(&subject, data); err != nil {
		return "", "", err
	}
	if err := tmpl.body.Execute(&body, data); err != nil {
		return "", "", err
	}
	return subject.String(), body.String(), nil
}
