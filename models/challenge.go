package models

// Challenge is one of the day's objectives, e.g. "defeat 5 slimes" for 40 points.
// The catalog owns these; they are immutable until the next rotation.
type Challenge struct {
	ID         string `json:"id"`
	Verb       string `json:"verb"`
	Target     string `json:"target"`
	Title      string `json:"title"`
	Amount     int64  `json:"amount"`
	Reward     int64  `json:"reward"`
	BadgeIndex int    `json:"badgeIndex"`
}
