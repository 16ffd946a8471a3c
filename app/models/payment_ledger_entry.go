package models

import "time"

const (
	PaymentOutcomeSucceeded = "succeeded"
	PaymentOutcomeFailed    = "failed"
)

// PaymentLedgerEntry is one invoice outcome, append-only. The composite unique
// index on (invoice id, outcome) makes redelivered invoice events no-ops.
type PaymentLedgerEntry struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	InvoiceID   string     `gorm:"type:varchar(191);not null;index:ux_payment_ledger_invoice_outcome,unique,priority:1" json:"invoice_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Currency    string     `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Outcome     string     `gorm:"type:varchar(16);not null;index:ux_payment_ledger_invoice_outcome,unique,priority:2" json:"outcome"`
	PeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"period_start,omitempty"`
	PeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"period_end,omitempty"`
	OccurredAt  *time.Time `gorm:"type:timestamp;default:null" json:"occurred_at,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}
