package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartNonceSweeper removes expired pending nonces every interval. Sessions
// and progress are not touched here; they only go away on rotation.
func (b *SessionBroker) StartNonceSweeper(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if removed := b.SweepExpiredNonces(b.catalog.Now()); removed > 0 {
				log.Printf("🧹 [Scheduler] Dropped %d expired nonce(s)", removed)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
