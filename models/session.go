package models

import "time"

// Session binds an opaque bearer token to a wallet that proved ownership
// by signing a nonce. It lives until the next daily rotation.
type Session struct {
	Token               string    `json:"-"`
	WalletAddress       string    `json:"walletAddress"`
	VerifiedAt          time.Time `json:"verifiedAt"`
	ExternalAccessToken string    `json:"accessToken,omitempty"`
}
