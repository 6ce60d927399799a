package paymentchannel

import (
	"github.com/flexprice/ispbilling/internal/types"
)

// Method is an account's saved way of paying, optionally pinned to a channel
type Method struct {
	ID               string  `db:"id" json:"id"`
	AccountID        string  `db:"account_id" json:"account_id"`
	ProviderID       *string `db:"provider_id" json:"provider_id,omitempty"`
	PaymentChannelID *string `db:"payment_channel_id" json:"payment_channel_id,omitempty"`
	Kind             string  `db:"kind" json:"kind"`
	Label            string  `db:"label" json:"label"`
	types.BaseModel
}

// Channel is a route payments arrive through (M-Pesa paybill, card, bank transfer)
type Channel struct {
	ID                         string  `db:"id" json:"id"`
	ProviderID                 *string `db:"provider_id" json:"provider_id,omitempty"`
	Name                       string  `db:"name" json:"name"`
	IsDefault                  bool    `db:"is_default" json:"is_default"`
	DefaultCollectionAccountID *string `db:"default_collection_account_id" json:"default_collection_account_id,omitempty"`
	types.BaseModel
}

// CollectionAccount is the bank or wallet account money settles into
type CollectionAccount struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	BankName      string  `db:"bank_name" json:"bank_name"`
	AccountNumber string  `db:"account_number" json:"account_number"`
	Currency      *string `db:"currency" json:"currency,omitempty"`
	types.BaseModel
}

// ChannelAccount maps a channel to a collection account. A nil currency matches any currency.
type ChannelAccount struct {
	ID                  string  `db:"id" json:"id"`
	PaymentChannelID    string  `db:"payment_channel_id" json:"payment_channel_id"`
	CollectionAccountID string  `db:"collection_account_id" json:"collection_account_id"`
	Currency            *string `db:"currency" json:"currency,omitempty"`
	IsDefault           bool    `db:"is_default" json:"is_default"`
	Priority            int     `db:"priority" json:"priority"`
	types.BaseModel
}
