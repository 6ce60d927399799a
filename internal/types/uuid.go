package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex inv_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

const (
	UUID_PREFIX_ACCOUNT                 = "acct"
	UUID_PREFIX_INVOICE                 = "inv"
	UUID_PREFIX_INVOICE_LINE            = "inv_line"
	UUID_PREFIX_CREDIT_NOTE             = "cn"
	UUID_PREFIX_CREDIT_NOTE_LINE        = "cn_line"
	UUID_PREFIX_CREDIT_NOTE_APPLICATION = "cn_app"
	UUID_PREFIX_PAYMENT                 = "pay"
	UUID_PREFIX_PAYMENT_ALLOCATION      = "pay_alloc"
	UUID_PREFIX_LEDGER_ENTRY            = "ledger"
	UUID_PREFIX_PAYMENT_PROVIDER        = "pprov"
	UUID_PREFIX_PROVIDER_EVENT          = "pevt"
	UUID_PREFIX_PAYMENT_CHANNEL         = "pch"
	UUID_PREFIX_PAYMENT_METHOD          = "pmeth"
	UUID_PREFIX_COLLECTION_ACCOUNT      = "cacc"
	UUID_PREFIX_CHANNEL_ACCOUNT         = "pch_acc"
	UUID_PREFIX_TAX_RATE                = "tax"
	UUID_PREFIX_SUBSCRIPTION            = "sub"
	UUID_PREFIX_OFFER                   = "offer"
	UUID_PREFIX_OFFER_VERSION           = "offerv"
	UUID_PREFIX_BILLING_RUN             = "brun"
	UUID_PREFIX_NOTIFICATION            = "ntf"
)
