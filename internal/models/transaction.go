package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one normalized meter transaction as produced by the import
// pipeline. ExpiresAt is nil for open sessions and Revenue is invalid when the
// source did not report one.
type TransactionRecord struct {
	SpaceID     string              `json:"space_id" db:"stall"`
	PurchasedAt time.Time           `json:"purchased_at" db:"purchased_date"`
	ExpiresAt   *time.Time          `json:"expires_at" db:"expiry_date"`
	Revenue     decimal.NullDecimal `json:"revenue" db:"revenue"`
}

// HasSession reports whether the record describes a closed, positive-length session.
func (r TransactionRecord) HasSession() bool {
	return r.ExpiresAt != nil && r.ExpiresAt.After(r.PurchasedAt)
}

// Duration returns the paid session length, or zero for open sessions.
func (r TransactionRecord) Duration() time.Duration {
	if r.ExpiresAt == nil {
		return 0
	}
	return r.ExpiresAt.Sub(r.PurchasedAt)
}
