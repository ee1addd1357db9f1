package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("REWARD_SERVICE_URL", "https://rewards.example.com/")
	t.Setenv("REWARD_SERVICE_TOKEN", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5200", cfg.Port)
	assert.Equal(t, "https://rewards.example.com", cfg.RewardServiceURL)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, int64(3), cfg.AmountMin)
	assert.Equal(t, int64(10), cfg.AmountMax)
	assert.Equal(t, int64(10), cfg.RewardMin)
	assert.Equal(t, int64(100), cfg.RewardMax)
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL)
	assert.Equal(t, 15*time.Second, cfg.PayoutTO)
	assert.Equal(t, time.Minute, cfg.SweepPeriod)
	assert.Equal(t, 5.0, cfg.AuthRPS)
	assert.False(t, cfg.R2.Enabled())
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.TrustedProxies)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("CHALLENGE_TIMEZONE", "Europe/Sofia")
	t.Setenv("CHALLENGE_AMOUNT_MIN", "2")
	t.Setenv("CHALLENGE_AMOUNT_MAX", "4")
	t.Setenv("NONCE_TTL", "90s")
	t.Setenv("AUTH_RATE_LIMIT", "0.5")
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acct")
	t.Setenv("R2_BUCKET_NAME", "challenges")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://a.example,https://b.example", cfg.AllowedOrigins)
	assert.Equal(t, "Europe/Sofia", cfg.Location.String())
	assert.Equal(t, int64(2), cfg.AmountMin)
	assert.Equal(t, int64(4), cfg.AmountMax)
	assert.Equal(t, 90*time.Second, cfg.NonceTTL)
	assert.Equal(t, 0.5, cfg.AuthRPS)
	assert.True(t, cfg.R2.Enabled())
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}

func TestLoadConfigReportsEveryProblem(t *testing.T) {
	t.Setenv("REWARD_SERVICE_URL", "")
	t.Setenv("REWARD_SERVICE_TOKEN", "")
	t.Setenv("IDENTITY_SERVICE_URL", "https://identity.example.com")
	t.Setenv("IDENTITY_SERVICE_TOKEN", "")
	t.Setenv("CHALLENGE_TIMEZONE", "Mars/Olympus")
	t.Setenv("CHALLENGE_AMOUNT_MIN", "9")
	t.Setenv("CHALLENGE_AMOUNT_MAX", "3")
	t.Setenv("PAYOUT_TIMEOUT", "soon")

	_, err := LoadConfig()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"REWARD_SERVICE_URL",
		"REWARD_SERVICE_TOKEN",
		"IDENTITY_SERVICE_TOKEN",
		"CHALLENGE_TIMEZONE",
		"invalid challenge amount range [9, 3]",
		"PAYOUT_TIMEOUT",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestChallengeKeys(t *testing.T) {
	assert.Equal(t, []string{"challenges/2026-10-19.json", "challenges/today.json"}, ChallengeKeys("2026-10-19"))
}

func TestTokenFingerprint(t *testing.T) {
	a := TokenFingerprint("token-a")
	assert.Len(t, a, 12)
	assert.Equal(t, a, TokenFingerprint("token-a"))
	assert.NotEqual(t, a, TokenFingerprint("token-b"))
	assert.NotContains(t, a, "token")
	assert.Equal(t, "<none>", TokenFingerprint(""))
}
