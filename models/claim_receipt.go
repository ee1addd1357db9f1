package models

import (
	"time"

	"gorm.io/gorm"
)

// ClaimReceipt is an audit row for a payout the reward service accepted.
// Table name: claim_receipts
type ClaimReceipt struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	Wallet         string         `gorm:"type:varchar(64);not null;index" json:"wallet"`
	Amount         int64          `gorm:"not null" json:"amount"`
	ChallengeIDs   string         `gorm:"type:text;not null" json:"challenge_ids"` // comma separated
	Day            string         `gorm:"type:varchar(10);not null;index" json:"day"`
	IdempotencyKey string         `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_key"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
