package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeIdentity struct {
	mu       sync.Mutex
	profiles []string
	stats    []map[string]int64
	badges   []int
	fail     bool
}

func (f *fakeIdentity) EnsureProject(context.Context) error { return nil }

func (f *fakeIdentity) EnsureProfile(_ context.Context, wallet string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("identity down")
	}
	f.profiles = append(f.profiles, wallet)
	return nil
}

func (f *fakeIdentity) UpdateStats(_ context.Context, _ string, stats map[string]int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = append(f.stats, stats)
	return nil
}

func (f *fakeIdentity) AwardBadge(_ context.Context, _ string, badgeIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.badges = append(f.badges, badgeIndex)
	return nil
}

func (f *fakeIdentity) counts() (int, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.profiles), len(f.stats), len(f.badges)
}

func TestProfileSyncWorkerDeliversUpdates(t *testing.T) {
	identity := &fakeIdentity{}
	w := NewProfileSyncWorker(identity, 8)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.EnqueueProfile("wallet-1")
	w.EnqueueStats("wallet-1", map[string]int64{"daily_points_claimed": 40})
	w.EnqueueBadge("wallet-1", 1)

	assert.Eventually(t, func() bool {
		p, s, b := identity.counts()
		return p == 1 && s == 1 && b == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
}

func TestProfileSyncWorkerDrainsOnShutdown(t *testing.T) {
	identity := &fakeIdentity{}
	w := NewProfileSyncWorker(identity, 8)

	// queued before the worker runs
	w.EnqueueBadge("wallet-1", 0)
	w.EnqueueBadge("wallet-1", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Start(ctx)
	w.Wait()

	_, _, badges := identity.counts()
	assert.Equal(t, 2, badges)
}

func TestProfileSyncWorkerDropsWhenFull(t *testing.T) {
	identity := &fakeIdentity{}
	w := NewProfileSyncWorker(identity, 1)

	w.EnqueueProfile("wallet-1")
	w.EnqueueProfile("wallet-2") // not started, queue holds one

	assert.Len(t, w.queue, 1)
}

func TestProfileSyncWorkerSurvivesFailures(t *testing.T) {
	identity := &fakeIdentity{fail: true}
	w := NewProfileSyncWorker(identity, 4)
	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)

	w.EnqueueProfile("wallet-1")
	w.EnqueueBadge("wallet-1", 0)

	assert.Eventually(t, func() bool {
		_, _, b := identity.counts()
		return b == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	w.Wait()
}
