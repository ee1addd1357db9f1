package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"sync"
	"time"

	"daily-challenge-bridge/models"
	"daily-challenge-bridge/utils"
)

const (
	DefaultNonceTTL = 5 * time.Minute
	sessionTokenLen = 32 // bytes, hex encoded to 64 chars
)

type pendingNonce struct {
	message  string
	issuedAt time.Time
}

// SessionBroker proves wallet ownership through a signed nonce and hands out
// session tokens that a second client can use to act for that wallet.
// All state is discarded on catalog rotation.
type SessionBroker struct {
	catalog  *ChallengeCatalog
	nonceTTL time.Duration

	mu       sync.Mutex
	nonces   map[string]pendingNonce // wallet -> pending challenge
	sessions map[string]*models.Session

	// OnConfirmed, when set, is called after a session is minted (outside locks).
	OnConfirmed func(wallet string)
}

func NewSessionBroker(catalog *ChallengeCatalog, nonceTTL time.Duration) *SessionBroker {
	if nonceTTL <= 0 {
		nonceTTL = DefaultNonceTTL
	}
	b := &SessionBroker{
		catalog:  catalog,
		nonceTTL: nonceTTL,
		nonces:   make(map[string]pendingNonce),
		sessions: make(map[string]*models.Session),
	}
	catalog.OnReset(b.reset)
	return b
}

func (b *SessionBroker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nonces = make(map[string]pendingNonce)
	b.sessions = make(map[string]*models.Session)
}

func authMessage(wallet, nonce string, issuedAt time.Time) string {
	return fmt.Sprintf(
		"Sign this message to link your wallet to today's challenges.\n\nWallet: %s\nNonce: %s\nIssued At: %s",
		wallet, nonce, issuedAt.UTC().Format(time.RFC3339),
	)
}

// IssueNonce returns the message the wallet has to sign. A new call replaces
// any earlier pending nonce for the same wallet.
func (b *SessionBroker) IssueNonce(wallet string) (string, error) {
	if !ValidWallet(wallet) {
		return "", fmt.Errorf("%w: %v", ErrValidation, errInvalidWallet)
	}

	nonce, err := randomHex(16)
	if err != nil {
		return "", err
	}

	var message string
	err = b.catalog.Within(func(Day) error {
		now := b.catalog.Now()
		message = authMessage(wallet, nonce, now)

		b.mu.Lock()
		b.nonces[wallet] = pendingNonce{message: message, issuedAt: now}
		b.mu.Unlock()
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("🔑 [AUTH] Nonce issued for wallet %s", wallet)
	return message, nil
}

// Confirm checks the signature over the pending message for wallet and, if it
// verifies, mints a session token. The pending nonce is consumed either way.
func (b *SessionBroker) Confirm(wallet, signature string) (string, error) {
	if wallet == "" || signature == "" {
		return "", fmt.Errorf("%w: wallet and signature are required", ErrValidation)
	}

	var token string
	err := b.catalog.Within(func(Day) error {
		now := b.catalog.Now()

		b.mu.Lock()
		pending, ok := b.nonces[wallet]
		delete(b.nonces, wallet)
		b.mu.Unlock()

		if !ok {
			return fmt.Errorf("%w: no pending challenge for wallet", ErrAuth)
		}
		if now.Sub(pending.issuedAt) > b.nonceTTL {
			return fmt.Errorf("%w: challenge expired", ErrAuth)
		}
		if !VerifySignature(pending.message, signature, wallet) {
			return fmt.Errorf("%w: invalid signature", ErrAuth)
		}

		t, err := randomHex(sessionTokenLen)
		if err != nil {
			return err
		}

		b.mu.Lock()
		b.sessions[t] = &models.Session{
			Token:         t,
			WalletAddress: wallet,
			VerifiedAt:    now,
		}
		b.mu.Unlock()

		token = t
		return nil
	})
	if err != nil {
		authFailures.Inc()
		log.Printf("❌ [AUTH] Confirm failed for wallet %s: %v", wallet, err)
		return "", err
	}

	sessionsIssued.Inc()
	log.Printf("✅ [AUTH] Session %s linked to wallet %s", utils.TokenFingerprint(token), wallet)
	if b.OnConfirmed != nil {
		b.OnConfirmed(wallet)
	}
	return token, nil
}

// AttachExternalToken stores an access token obtained from the identity
// service on an existing session.
func (b *SessionBroker) AttachExternalToken(token, accessToken string) error {
	if token == "" || accessToken == "" {
		return fmt.Errorf("%w: session token and access token are required", ErrValidation)
	}
	return b.catalog.Within(func(Day) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		s, ok := b.sessions[token]
		if !ok {
			return ErrSessionNotFound
		}
		if s.ExternalAccessToken != "" && s.ExternalAccessToken != accessToken {
			log.Printf("⚠️ [AUTH] Replacing access token on session %s", utils.TokenFingerprint(token))
		}
		s.ExternalAccessToken = accessToken
		return nil
	})
}

// Lookup returns a copy of the session for token.
func (b *SessionBroker) Lookup(token string) (models.Session, error) {
	var out models.Session
	if token == "" {
		return out, ErrSessionNotFound
	}
	err := b.catalog.Within(func(Day) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		s, ok := b.sessions[token]
		if !ok {
			return ErrSessionNotFound
		}
		out = *s
		return nil
	})
	return out, err
}

func (b *SessionBroker) SessionCount() int {
	var n int
	_ = b.catalog.Within(func(Day) error {
		b.mu.Lock()
		n = len(b.sessions)
		b.mu.Unlock()
		return nil
	})
	return n
}

// SweepExpiredNonces drops pending nonces older than the TTL and returns how
// many were removed.
func (b *SessionBroker) SweepExpiredNonces(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for wallet, p := range b.nonces {
		if now.Sub(p.issuedAt) > b.nonceTTL {
			delete(b.nonces, wallet)
			removed++
		}
	}
	return removed
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
