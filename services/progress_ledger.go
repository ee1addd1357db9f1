package services

import (
	"fmt"
	"sort"
	"sync"

	"daily-challenge-bridge/models"
)

type walletProgress struct {
	mu      sync.Mutex
	records map[string]*models.ProgressRecord // challenge id -> record
}

// ProgressLedger holds per-wallet, per-challenge counters for the current day.
type ProgressLedger struct {
	catalog *ChallengeCatalog

	mu      sync.Mutex
	wallets map[string]*walletProgress
}

// ProgressUpdate is the outcome of one progress report.
type ProgressUpdate struct {
	Record models.ProgressRecord
	// JustCompleted is true only for the report that moved the record to its target.
	JustCompleted bool
}

// claimTicket identifies the records a claim marked as pending.
type claimTicket struct {
	Wallet       string
	Day          string
	Epoch        uint64
	ChallengeIDs []string
	BadgeIndexes []int
	Total        int64
}

func NewProgressLedger(catalog *ChallengeCatalog) *ProgressLedger {
	l := &ProgressLedger{
		catalog: catalog,
		wallets: make(map[string]*walletProgress),
	}
	catalog.OnReset(l.reset)
	return l
}

func (l *ProgressLedger) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets = make(map[string]*walletProgress)
}

func (l *ProgressLedger) wallet(address string, create bool) *walletProgress {
	l.mu.Lock()
	defer l.mu.Unlock()

	wp, ok := l.wallets[address]
	if !ok && create {
		wp = &walletProgress{records: make(map[string]*models.ProgressRecord)}
		l.wallets[address] = wp
	}
	return wp
}

// ReportProgress adds delta to the wallet's counter for challengeID, clamped
// to the challenge amount.
func (l *ProgressLedger) ReportProgress(wallet, challengeID string, delta int64) (ProgressUpdate, error) {
	var out ProgressUpdate
	if wallet == "" || challengeID == "" {
		return out, fmt.Errorf("%w: wallet and challenge id are required", ErrValidation)
	}
	if delta < 0 {
		return out, fmt.Errorf("%w: progress must not be negative", ErrValidation)
	}

	err := l.catalog.Within(func(d Day) error {
		challenge, ok := d.Find(challengeID)
		if !ok {
			return ErrChallengeNotFound
		}

		wp := l.wallet(wallet, true)
		wp.mu.Lock()
		defer wp.mu.Unlock()

		rec, ok := wp.records[challengeID]
		if !ok {
			rec = &models.ProgressRecord{
				Wallet:      wallet,
				ChallengeID: challengeID,
				Target:      challenge.Amount,
				Reward:      challenge.Reward,
				BadgeIndex:  challenge.BadgeIndex,
			}
			wp.records[challengeID] = rec
		}

		before := rec.Completed
		// compare against the remainder so a huge delta cannot overflow
		if delta >= rec.Target-rec.Completed {
			rec.Completed = rec.Target
		} else {
			rec.Completed += delta
		}

		out.Record = *rec
		out.JustCompleted = before < rec.Target && rec.Completed == rec.Target && !rec.Claimed
		return nil
	})
	return out, err
}

// Get returns the record for (wallet, challengeID) if one exists.
func (l *ProgressLedger) Get(wallet, challengeID string) (models.ProgressRecord, bool) {
	var out models.ProgressRecord
	var found bool
	_ = l.catalog.Within(func(Day) error {
		wp := l.wallet(wallet, false)
		if wp == nil {
			return nil
		}
		wp.mu.Lock()
		defer wp.mu.Unlock()
		if rec, ok := wp.records[challengeID]; ok {
			out, found = *rec, true
		}
		return nil
	})
	return out, found
}

// Snapshot returns every record the wallet has today, ordered by badge index.
func (l *ProgressLedger) Snapshot(wallet string) []models.ProgressRecord {
	out := []models.ProgressRecord{}
	_ = l.catalog.Within(func(Day) error {
		wp := l.wallet(wallet, false)
		if wp == nil {
			return nil
		}
		wp.mu.Lock()
		defer wp.mu.Unlock()
		for _, rec := range wp.records {
			out = append(out, *rec)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeIndex < out[j].BadgeIndex })
	return out
}

// beginClaim moves every completed-unclaimed record of wallet to claim-pending
// and returns what has to be paid. Nothing changes if there is nothing to claim.
func (l *ProgressLedger) beginClaim(wallet string) (claimTicket, error) {
	ticket := claimTicket{Wallet: wallet}
	err := l.catalog.Within(func(d Day) error {
		wp := l.wallet(wallet, false)
		if wp == nil {
			return ErrNoRewardsAvailable
		}
		wp.mu.Lock()
		defer wp.mu.Unlock()

		var ready []*models.ProgressRecord
		for _, rec := range wp.records {
			if rec.State() == models.ProgressStateCompletedUnclaimed {
				ready = append(ready, rec)
			}
		}
		if len(ready) == 0 {
			return ErrNoRewardsAvailable
		}
		sort.Slice(ready, func(i, j int) bool { return ready[i].BadgeIndex < ready[j].BadgeIndex })

		for _, rec := range ready {
			rec.Pending = true
			ticket.ChallengeIDs = append(ticket.ChallengeIDs, rec.ChallengeID)
			ticket.BadgeIndexes = append(ticket.BadgeIndexes, rec.BadgeIndex)
			ticket.Total += rec.Reward
		}
		ticket.Day = d.Key
		ticket.Epoch = d.Epoch
		return nil
	})
	return ticket, err
}

// finishClaim settles a ticket: paid records become claimed, unpaid ones go
// back to completed-unclaimed. It reports false when a rotation discarded the
// records in the meantime.
func (l *ProgressLedger) finishClaim(ticket claimTicket, paid bool) bool {
	settled := false
	_ = l.catalog.Within(func(d Day) error {
		if d.Epoch != ticket.Epoch {
			return nil
		}
		wp := l.wallet(ticket.Wallet, false)
		if wp == nil {
			return nil
		}
		wp.mu.Lock()
		defer wp.mu.Unlock()

		for _, id := range ticket.ChallengeIDs {
			rec, ok := wp.records[id]
			if !ok || !rec.Pending {
				continue
			}
			rec.Pending = false
			if paid {
				rec.Claimed = true
			}
		}
		settled = true
		return nil
	})
	return settled
}
