package sequence

import "time"

const (
	KeyInvoice    = "invoice"
	KeyCreditNote = "credit_note"
)

// DocumentSequence is one row per key holding the next number to hand out
type DocumentSequence struct {
	TenantID  string    `db:"tenant_id" json:"tenant_id"`
	Key       string    `db:"sequence_key" json:"sequence_key"`
	NextValue int64     `db:"next_value" json:"next_value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
