package services

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"daily-challenge-bridge/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ChallengesPerDay is the size of every generated challenge set.
const ChallengesPerDay = 3

type challengeTemplate struct {
	Verb   string
	Target string
}

var challengeTemplates = []challengeTemplate{
	{"defeat", "slimes"},
	{"collect", "coins"},
	{"open", "chests"},
	{"harvest", "crops"},
	{"craft", "potions"},
	{"catch", "fish"},
	{"mine", "ores"},
	{"win", "duels"},
	{"explore", "dungeons"},
	{"tame", "beasts"},
}

// IntRange is an inclusive range of positive integers.
type IntRange struct {
	Min int64
	Max int64
}

func (r IntRange) pick(rng *rand.Rand) int64 {
	lo, hi := r.Min, r.Max
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	return lo + rng.Int64N(hi-lo+1)
}

// Day is the read-only view handed to callers of Within. It is only valid
// inside the callback.
type Day struct {
	Key        string
	Epoch      uint64
	Challenges []models.Challenge
}

// Find returns the challenge with the given id in this day's set.
func (d Day) Find(id string) (models.Challenge, bool) {
	for _, c := range d.Challenges {
		if c.ID == id {
			return c, true
		}
	}
	return models.Challenge{}, false
}

type CatalogConfig struct {
	Location    *time.Location
	AmountRange IntRange
	RewardRange IntRange
	Rand        *rand.Rand
	Now         func() time.Time
}

// ChallengeCatalog owns the current day's challenges. Its lock is also the
// rotation guard for everything else that lives for one day: reset hooks
// registered with OnReset run while the write lock is held.
type ChallengeCatalog struct {
	mu        sync.RWMutex
	day       string
	epoch     uint64
	active    []models.Challenge
	lastReset time.Time

	loc         *time.Location
	amountRange IntRange
	rewardRange IntRange
	rngMu       sync.Mutex
	rng         *rand.Rand
	now         func() time.Time
	titler      cases.Caser

	resetHooks []func()
	observers  []func(day string, challenges []models.Challenge)
}

func NewChallengeCatalog(cfg CatalogConfig) *ChallengeCatalog {
	c := &ChallengeCatalog{
		loc:         cfg.Location,
		amountRange: cfg.AmountRange,
		rewardRange: cfg.RewardRange,
		rng:         cfg.Rand,
		now:         cfg.Now,
		titler:      cases.Title(language.English),
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// OnReset registers a hook that clears day-scoped state. Hooks run under the
// rotation write lock, so they must not call back into the catalog.
func (c *ChallengeCatalog) OnReset(hook func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetHooks = append(c.resetHooks, hook)
}

// OnRotate registers an observer notified after a rotation, outside the lock.
func (c *ChallengeCatalog) OnRotate(observer func(day string, challenges []models.Challenge)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, observer)
}

func (c *ChallengeCatalog) Now() time.Time {
	return c.now()
}

func (c *ChallengeCatalog) dayKey(t time.Time) string {
	return t.In(c.loc).Format("2006-01-02")
}

// Rotate replaces the challenge set and clears all day-scoped state when now
// falls on a later calendar day than the stored one. Calls for the current or
// an earlier day do nothing. It reports whether a rotation happened.
func (c *ChallengeCatalog) Rotate(now time.Time) bool {
	key := c.dayKey(now)

	// day keys are YYYY-MM-DD, so string order is calendar order
	c.mu.RLock()
	current := c.day
	c.mu.RUnlock()
	if key <= current {
		return false
	}

	c.mu.Lock()
	if key <= c.day {
		c.mu.Unlock()
		return false
	}

	fresh := c.generate()
	for _, hook := range c.resetHooks {
		hook()
	}
	previous := c.day
	c.active = fresh
	c.day = key
	c.epoch++
	c.lastReset = now
	observers := append([]func(string, []models.Challenge){}, c.observers...)
	c.mu.Unlock()
	rotations.Inc()

	if previous == "" {
		log.Printf("🗓️ [CATALOG] Generated challenges for %s", key)
	} else {
		log.Printf("🔄 [CATALOG] Rotated %s → %s; sessions and progress cleared", previous, key)
	}

	snapshot := cloneChallenges(fresh)
	for _, observe := range observers {
		observe(key, snapshot)
	}
	return true
}

// Active returns a copy of today's challenges, rotating first if needed.
func (c *ChallengeCatalog) Active() []models.Challenge {
	var out []models.Challenge
	_ = c.Within(func(d Day) error {
		out = cloneChallenges(d.Challenges)
		return nil
	})
	return out
}

// Within rotates if the day advanced and then runs fn while holding the
// rotation read lock, so fn never sees a half-reset state. A caller whose
// clock reading is older than the stored day runs against the stored day.
func (c *ChallengeCatalog) Within(fn func(Day) error) error {
	c.Rotate(c.now())

	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(Day{Key: c.day, Epoch: c.epoch, Challenges: c.active})
}

// LastReset is when the current challenge set was generated.
func (c *ChallengeCatalog) LastReset() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReset
}

// generate must be called with c.mu held.
func (c *ChallengeCatalog) generate() []models.Challenge {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	picks := c.rng.Perm(len(challengeTemplates))[:ChallengesPerDay]
	out := make([]models.Challenge, 0, ChallengesPerDay)
	for i, idx := range picks {
		tpl := challengeTemplates[idx]
		amount := c.amountRange.pick(c.rng)
		reward := c.rewardRange.pick(c.rng)
		out = append(out, models.Challenge{
			ID:         fmt.Sprintf("%s-%s", slug.Make(tpl.Verb+" "+tpl.Target), uuid.NewString()[:8]),
			Verb:       tpl.Verb,
			Target:     tpl.Target,
			Title:      c.titler.String(fmt.Sprintf("%s %d %s", tpl.Verb, amount, tpl.Target)),
			Amount:     amount,
			Reward:     reward,
			BadgeIndex: i,
		})
	}
	return out
}

func cloneChallenges(in []models.Challenge) []models.Challenge {
	out := make([]models.Challenge, len(in))
	copy(out, in)
	return out
}
