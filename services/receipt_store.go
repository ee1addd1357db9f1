package services

import (
	"context"
	"strings"

	"daily-challenge-bridge/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReceiptStore records payouts that the reward service accepted.
type ReceiptStore interface {
	SaveReceipt(ctx context.Context, receipt *models.ClaimReceipt) error
}

type GormReceiptStore struct {
	DB *gorm.DB
}

func NewGormReceiptStore(db *gorm.DB) *GormReceiptStore {
	return &GormReceiptStore{DB: db}
}

func (s *GormReceiptStore) SaveReceipt(ctx context.Context, receipt *models.ClaimReceipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	return s.DB.WithContext(ctx).Create(receipt).Error
}

// ReceiptsForWallet lists a wallet's receipts, newest first.
func (s *GormReceiptStore) ReceiptsForWallet(ctx context.Context, wallet string, limit int) ([]models.ClaimReceipt, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var receipts []models.ClaimReceipt
	err := s.DB.WithContext(ctx).
		Where("wallet = ?", wallet).
		Order("created_at DESC").
		Limit(limit).
		Find(&receipts).Error
	return receipts, err
}

func newReceipt(ticket claimTicket, idempotencyKey string) *models.ClaimReceipt {
	return &models.ClaimReceipt{
		ID:             uuid.NewString(),
		Wallet:         ticket.Wallet,
		Amount:         ticket.Total,
		ChallengeIDs:   strings.Join(ticket.ChallengeIDs, ","),
		Day:            ticket.Day,
		IdempotencyKey: idempotencyKey,
	}
}
