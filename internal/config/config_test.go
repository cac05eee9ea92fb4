package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CHALLENGE_QUESTION_COUNT", "")
	t.Setenv("CHALLENGE_K_FACTOR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Challenge.QuestionCount)
	assert.Equal(t, float64(10), cfg.Challenge.KFactor)
	assert.Equal(t, time.Second, cfg.Challenge.Tick)
	assert.Equal(t, 30*time.Second, cfg.Challenge.BaseTime)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHALLENGE_QUESTION_COUNT", "5")
	t.Setenv("CHALLENGE_BASE_TIME", "45s")
	t.Setenv("CHALLENGE_K_FACTOR", "16")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Challenge.QuestionCount)
	assert.Equal(t, 45*time.Second, cfg.Challenge.BaseTime)
	assert.Equal(t, float64(16), cfg.Challenge.KFactor)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}

func TestParseDuration_InvalidFallsBack(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("not-a-duration", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
