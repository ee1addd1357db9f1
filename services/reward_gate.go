package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"daily-challenge-bridge/models"

	"github.com/google/uuid"
)

const (
	DefaultPayoutTimeout = 15 * time.Second
	payoutAttempts       = 3
	payoutBackoff        = 250 * time.Millisecond
	receiptTimeout       = 5 * time.Second
)

// ProfileUpdater takes non-critical identity updates; implementations must
// not block the caller.
type ProfileUpdater interface {
	EnqueueStats(wallet string, stats map[string]int64)
	EnqueueBadge(wallet string, badgeIndex int)
}

// ClaimResult is what a successful claim paid.
type ClaimResult struct {
	Reward       int64    `json:"reward"`
	ChallengeIDs []string `json:"challengeIds"`
}

// RewardGate turns completed progress into at most one payout per challenge.
type RewardGate struct {
	ledger   *ProgressLedger
	issuer   RewardIssuer
	timeout  time.Duration
	attempts int
	backoff  time.Duration

	// Optional collaborators.
	Profiles ProfileUpdater
	Receipts ReceiptStore
}

func NewRewardGate(ledger *ProgressLedger, issuer RewardIssuer, timeout time.Duration) *RewardGate {
	if timeout <= 0 {
		timeout = DefaultPayoutTimeout
	}
	return &RewardGate{
		ledger:   ledger,
		issuer:   issuer,
		timeout:  timeout,
		attempts: payoutAttempts,
		backoff:  payoutBackoff,
	}
}

// ReportProgress records progress and queues a stats update when the report
// completes a challenge.
func (g *RewardGate) ReportProgress(wallet, challengeID string, delta int64) (models.ProgressRecord, error) {
	update, err := g.ledger.ReportProgress(wallet, challengeID, delta)
	if err != nil {
		return models.ProgressRecord{}, err
	}
	progressReports.Inc()

	if update.JustCompleted {
		challengesCompleted.Inc()
		log.Printf("🏁 [PROGRESS] Wallet %s completed challenge %s", wallet, challengeID)
		if g.Profiles != nil {
			done := int64(0)
			for _, rec := range g.ledger.Snapshot(wallet) {
				if rec.Target > 0 && rec.Completed >= rec.Target {
					done++
				}
			}
			g.Profiles.EnqueueStats(wallet, map[string]int64{"daily_challenges_completed": done})
		}
	}
	return update.Record, nil
}

// Claim pays out every completed, unclaimed challenge of wallet in one call
// to the reward service. The ledger lock is not held during the payout; on
// failure or timeout the records return to completed-unclaimed.
func (g *RewardGate) Claim(ctx context.Context, wallet string) (ClaimResult, error) {
	if wallet == "" {
		return ClaimResult{}, fmt.Errorf("%w: wallet is required", ErrValidation)
	}

	ticket, err := g.ledger.beginClaim(wallet)
	if err != nil {
		claimsTotal.WithLabelValues("empty").Inc()
		return ClaimResult{}, err
	}

	idempotencyKey := uuid.NewString()
	log.Printf("💸 [CLAIM] Paying %d to %s for %v (key %s)", ticket.Total, wallet, ticket.ChallengeIDs, idempotencyKey)

	payCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	_, err = retryOperation(payCtx, g.attempts, g.backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.issuer.IssueReward(ctx, wallet, ticket.Total, idempotencyKey)
	})
	payoutDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		g.ledger.finishClaim(ticket, false)
		claimsTotal.WithLabelValues("failed").Inc()
		log.Printf("❌ [CLAIM] Payout for %s failed, rolled back: %v", wallet, err)
		return ClaimResult{}, fmt.Errorf("%w: payout failed: %v", ErrExternalService, err)
	}

	if !g.ledger.finishClaim(ticket, true) {
		log.Printf("⚠️ [CLAIM] Day rotated during payout for %s; records already discarded", wallet)
	}
	claimsTotal.WithLabelValues("paid").Inc()
	pointsPaid.Add(float64(ticket.Total))
	log.Printf("✅ [CLAIM] Paid %d to %s", ticket.Total, wallet)

	if g.Receipts != nil {
		rctx, rcancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
		if err := g.Receipts.SaveReceipt(rctx, newReceipt(ticket, idempotencyKey)); err != nil {
			log.Printf("⚠️ [CLAIM] Failed to store receipt %s: %v", idempotencyKey, err)
		}
		rcancel()
	}

	if g.Profiles != nil {
		for _, idx := range ticket.BadgeIndexes {
			g.Profiles.EnqueueBadge(wallet, idx)
		}
		g.Profiles.EnqueueStats(wallet, map[string]int64{"daily_points_claimed": ticket.Total})
	}

	return ClaimResult{Reward: ticket.Total, ChallengeIDs: ticket.ChallengeIDs}, nil
}
