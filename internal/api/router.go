package api

import (
	"context"
	"fmt"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/api/handlers"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/api/middleware"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/config"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/repository"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/service"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/websocket"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/database"
	jwtutil "github.com/RankMarg-Learning/RankMarg-sub004/pkg/jwt"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/logger"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Components 라우터와 수명 주기를 함께 하는 구성 요소
type Components struct {
	Hub          *websocket.Hub
	Coordinator  *service.MatchCoordinator
	Janitor      *service.Janitor
	RedisLimiter *ratelimit.RedisRateLimiter
}

// Start 백그라운드 작업 시작
func (c *Components) Start() {
	c.Janitor.Start()
}

// Stop 타이머/스케줄러/Redis 정리
func (c *Components) Stop() {
	if err := c.Janitor.Stop(); err != nil {
		logger.Warn("Failed to stop janitor", "error", err)
	}
	c.Coordinator.Shutdown()
	if c.RedisLimiter != nil {
		if err := c.RedisLimiter.Close(); err != nil {
			logger.Warn("Failed to close redis rate limiter", "error", err)
		}
	}
}

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, db *database.DB) (*gin.Engine, *Components, error) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Redis rate limiter (REDIS_URL 이 있을 때만, 실패하면 인메모리로 대체)
	var redisLimiter *ratelimit.RedisRateLimiter
	if cfg.RedisURL != "" {
		limiter, err := connectRedisLimiter(cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, using in-memory rate limiting", "error", err)
		} else {
			redisLimiter = limiter
			logger.Info("Redis rate limiter connected")
		}
	}

	// Repository 초기화
	matchRepo := repository.NewMatchRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	ratingRepo := repository.NewRatingRepository(db)

	// WebSocket Hub + 매치 코디네이터
	wsHub := websocket.NewHub(logger.L().Named("hub"))

	coordinator := service.NewMatchCoordinator(service.SessionDeps{
		Store:   matchRepo,
		Ratings: ratingRepo,
		ELO:     service.NewELOService(cfg.Challenge.KFactor),
		Hub:     wsHub,
		Logger:  logger.L().Named("match"),
		Config: service.SessionConfig{
			BaseTime:     cfg.Challenge.BaseTime,
			QuestionTime: cfg.Challenge.QuestionTime,
			Tick:         cfg.Challenge.Tick,
			StoreTimeout: cfg.Challenge.StoreTimeout,
		},
	}, questionRepo, service.CoordinatorConfig{
		QuestionCount:  cfg.Challenge.QuestionCount,
		MaxQuestions:   cfg.Challenge.MaxQuestions,
		PendingTimeout: cfg.Challenge.PendingTimeout,
	})

	// 연결당 수신 메시지 제한
	messageLimiter := ratelimit.NewRateLimiter(cfg.WSMessageBurst, cfg.WSMessageRate)

	janitor, err := service.NewJanitor(coordinator, messageLimiter,
		cfg.Challenge.JanitorInterval, 10*time.Minute, logger.L().Named("janitor"))
	if err != nil {
		return nil, nil, fmt.Errorf("create janitor: %w", err)
	}

	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)

	// Handler 초기화
	wsHandler := handlers.NewWebSocketHandler(wsHub, coordinator, messageLimiter, ratingRepo, cfg.Challenge.DefaultRating)
	matchHandler := handlers.NewMatchHandler(matchRepo)
	leaderboardHandler := handlers.NewLeaderboardHandler(ratingRepo)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/ws", middleware.Auth(jwtManager), middleware.ConnectRateLimit(redisLimiter), wsHandler.HandleWebSocket)

		rest := v1.Group("")
		rest.Use(middleware.GeneralAPIRateLimit())
		{
			rest.GET("/matches/:id", matchHandler.GetMatch)
			rest.GET("/leaderboard", leaderboardHandler.GetLeaderboard)
		}
	}

	logger.L().Info("Router configured",
		zap.Int("questionCount", cfg.Challenge.QuestionCount),
		zap.Duration("baseTime", cfg.Challenge.BaseTime),
		zap.Bool("redisRateLimit", redisLimiter != nil))

	return router, &Components{
		Hub:          wsHub,
		Coordinator:  coordinator,
		Janitor:      janitor,
		RedisLimiter: redisLimiter,
	}, nil
}

func connectRedisLimiter(url string) (*ratelimit.RedisRateLimiter, error) {
	limiter, err := ratelimit.NewRedisRateLimiter(ratelimit.RedisRateLimiterConfig{URL: url})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := limiter.Ping(ctx); err != nil {
		limiter.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return limiter, nil
}
