package services

import (
	"context"
	"crypto/ed25519"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var day1 = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

func newTestCatalog(clock *fakeClock, amount, reward IntRange) *ChallengeCatalog {
	return NewChallengeCatalog(CatalogConfig{
		AmountRange: amount,
		RewardRange: reward,
		Rand:        rand.New(rand.NewPCG(1, 2)),
		Now:         clock.Now,
	})
}

type testWallet struct {
	Address string
	priv    ed25519.PrivateKey
}

func newTestWallet(t *testing.T) testWallet {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return testWallet{Address: base58.Encode(pub), priv: priv}
}

func (w testWallet) Sign(message string) string {
	return base58.Encode(ed25519.Sign(w.priv, []byte(message)))
}

// fakeIssuer records payouts; fail/block hooks let tests script failures.
type fakeIssuer struct {
	mu    sync.Mutex
	calls []issuerCall
	paid  int64
	fn    func(ctx context.Context, call int) error
}

type issuerCall struct {
	Wallet string
	Amount int64
	Key    string
}

func (f *fakeIssuer) IssueReward(ctx context.Context, wallet string, amount int64, key string) error {
	f.mu.Lock()
	f.calls = append(f.calls, issuerCall{wallet, amount, key})
	n := len(f.calls)
	fn := f.fn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, n); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.paid += amount
	f.mu.Unlock()
	return nil
}

func (f *fakeIssuer) Calls() []issuerCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]issuerCall(nil), f.calls...)
}

func (f *fakeIssuer) Paid() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid
}

type fakeProfiles struct {
	mu     sync.Mutex
	stats  []map[string]int64
	badges []int
}

func (f *fakeProfiles) EnqueueStats(_ string, stats map[string]int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats)
}

func (f *fakeProfiles) EnqueueBadge(_ string, badgeIndex int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badges = append(f.badges, badgeIndex)
}
