package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Database
	DatabaseURL string

	// Redis (비어 있으면 인메모리 rate limit 사용)
	RedisURL string

	// JWT
	JWTSecret     string
	JWTExpiration time.Duration

	// CORS
	CORSAllowedOrigins []string

	// Challenge
	Challenge ChallengeConfig

	// WebSocket inbound message limits (per user)
	WSMessageRate  int64
	WSMessageBurst int64
}

// ChallengeConfig 1:1 퀴즈 대결 설정
type ChallengeConfig struct {
	QuestionCount   int
	MaxQuestions    int
	BaseTime        time.Duration
	QuestionTime    time.Duration // per-question allowance when a question carries none
	Tick            time.Duration
	KFactor         float64
	DefaultRating   int
	PendingTimeout  time.Duration
	StoreTimeout    time.Duration
	JanitorInterval time.Duration
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiration:      parseDuration(getEnv("JWT_EXPIRATION", "24h"), 24*time.Hour),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")),
		Challenge:          DefaultChallengeConfig(),
		WSMessageRate:      int64(getEnvInt("WS_MESSAGE_RATE", 5)),
		WSMessageBurst:     int64(getEnvInt("WS_MESSAGE_BURST", 20)),
	}

	ch := &cfg.Challenge
	ch.QuestionCount = getEnvInt("CHALLENGE_QUESTION_COUNT", ch.QuestionCount)
	ch.MaxQuestions = getEnvInt("CHALLENGE_MAX_QUESTIONS", ch.MaxQuestions)
	ch.BaseTime = parseDuration(getEnv("CHALLENGE_BASE_TIME", ""), ch.BaseTime)
	ch.QuestionTime = parseDuration(getEnv("CHALLENGE_QUESTION_TIME", ""), ch.QuestionTime)
	ch.Tick = parseDuration(getEnv("CHALLENGE_TICK", ""), ch.Tick)
	ch.KFactor = float64(getEnvInt("CHALLENGE_K_FACTOR", int(ch.KFactor)))
	ch.DefaultRating = getEnvInt("CHALLENGE_DEFAULT_RATING", ch.DefaultRating)
	ch.PendingTimeout = parseDuration(getEnv("CHALLENGE_PENDING_TIMEOUT", ""), ch.PendingTimeout)
	ch.StoreTimeout = parseDuration(getEnv("CHALLENGE_STORE_TIMEOUT", ""), ch.StoreTimeout)
	ch.JanitorInterval = parseDuration(getEnv("CHALLENGE_JANITOR_INTERVAL", ""), ch.JanitorInterval)

	return cfg, nil
}

// DefaultChallengeConfig 기본 대결 설정
func DefaultChallengeConfig() ChallengeConfig {
	return ChallengeConfig{
		QuestionCount:   2,
		MaxQuestions:    20,
		BaseTime:        30 * time.Second,
		QuestionTime:    30 * time.Second,
		Tick:            time.Second,
		KFactor:         10,
		DefaultRating:   1200,
		PendingTimeout:  5 * time.Minute,
		StoreTimeout:    10 * time.Second,
		JanitorInterval: 30 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
