package models

// ProgressState is the claim lifecycle of a single (wallet, challenge) record.
type ProgressState string

const (
	ProgressStateNone               ProgressState = "none"
	ProgressStatePartial            ProgressState = "partial"
	ProgressStateCompletedUnclaimed ProgressState = "completed-unclaimed"
	ProgressStateClaimPending       ProgressState = "claim-pending"
	ProgressStateClaimed            ProgressState = "claimed"
)

// ProgressRecord tracks how far a wallet got on one challenge today.
// Completed never decreases and never exceeds Target.
type ProgressRecord struct {
	Wallet      string `json:"wallet"`
	ChallengeID string `json:"challengeId"`
	Completed   int64  `json:"completed"`
	Target      int64  `json:"target"`
	Reward      int64  `json:"reward"`
	BadgeIndex  int    `json:"badgeIndex"`
	Claimed     bool   `json:"claimed"`
	Pending     bool   `json:"pending"`
}

func (r ProgressRecord) State() ProgressState {
	switch {
	case r.Claimed:
		return ProgressStateClaimed
	case r.Pending:
		return ProgressStateClaimPending
	case r.Target > 0 && r.Completed >= r.Target:
		return ProgressStateCompletedUnclaimed
	case r.Completed > 0:
		return ProgressStatePartial
	default:
		return ProgressStateNone
	}
}
