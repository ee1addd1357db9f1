package workers

import (
	"context"
	"log"
	"sync"
	"time"

	"daily-challenge-bridge/services"
)

type updateKind int

const (
	updateProfile updateKind = iota
	updateStats
	updateBadge
)

type profileUpdate struct {
	kind       updateKind
	wallet     string
	stats      map[string]int64
	badgeIndex int
}

// ProfileSyncWorker pushes non-critical wallet updates (profiles, stats,
// badges) to the identity service in the background. Enqueue never blocks;
// when the queue is full the update is dropped and logged.
type ProfileSyncWorker struct {
	identity services.IdentityService
	queue    chan profileUpdate
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewProfileSyncWorker(identity services.IdentityService, queueSize int) *ProfileSyncWorker {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &ProfileSyncWorker{
		identity: identity,
		queue:    make(chan profileUpdate, queueSize),
		timeout:  10 * time.Second,
	}
}

func (w *ProfileSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Profile Sync Worker (bridge → identity service)…")
	w.wg.Add(1)
	go w.run(ctx)
}

// Wait blocks until the worker has drained and stopped after ctx is done.
func (w *ProfileSyncWorker) Wait() {
	w.wg.Wait()
}

func (w *ProfileSyncWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case u := <-w.queue:
			w.push(ctx, u)
		case <-ctx.Done():
			w.drain()
			log.Println("⏹️ Profile Sync Worker stopped")
			return
		}
	}
}

// drain flushes whatever is still queued with a fresh deadline.
func (w *ProfileSyncWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	for {
		select {
		case u := <-w.queue:
			w.push(ctx, u)
		default:
			return
		}
	}
}

func (w *ProfileSyncWorker) push(parent context.Context, u profileUpdate) {
	ctx, cancel := context.WithTimeout(parent, w.timeout)
	defer cancel()

	var err error
	switch u.kind {
	case updateProfile:
		err = w.identity.EnsureProfile(ctx, u.wallet)
	case updateStats:
		err = w.identity.UpdateStats(ctx, u.wallet, u.stats)
	case updateBadge:
		err = w.identity.AwardBadge(ctx, u.wallet, u.badgeIndex)
	}
	if err != nil {
		log.Printf("❌ [PROFILE_SYNC] Update for %s failed: %v", u.wallet, err)
	}
}

func (w *ProfileSyncWorker) enqueue(u profileUpdate) {
	select {
	case w.queue <- u:
	default:
		log.Printf("⚠️ [PROFILE_SYNC] Queue full, dropping update for %s", u.wallet)
	}
}

func (w *ProfileSyncWorker) EnqueueProfile(wallet string) {
	w.enqueue(profileUpdate{kind: updateProfile, wallet: wallet})
}

func (w *ProfileSyncWorker) EnqueueStats(wallet string, stats map[string]int64) {
	w.enqueue(profileUpdate{kind: updateStats, wallet: wallet, stats: stats})
}

func (w *ProfileSyncWorker) EnqueueBadge(wallet string, badgeIndex int) {
	w.enqueue(profileUpdate{kind: updateBadge, wallet: wallet, badgeIndex: badgeIndex})
}
