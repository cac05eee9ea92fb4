package service

import (
	"context"
	"fmt"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/ratelimit"
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Janitor 주기 작업: 만료된 대기 매치 취소, 유휴 레이트리밋 버킷 정리
type Janitor struct {
	scheduler gocron.Scheduler
	logger    *zap.Logger
}

// NewJanitor 스케줄러 생성 (limiter 는 nil 가능)
func NewJanitor(coordinator *MatchCoordinator, limiter *ratelimit.RateLimiter, interval, limiterIdle time.Duration, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			coordinator.ExpirePending(context.Background())
		}),
		gocron.WithName("expire-pending-matches"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule pending expiry: %w", err)
	}

	if limiter != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(limiterIdle),
			gocron.NewTask(func() {
				if removed := limiter.Cleanup(limiterIdle); removed > 0 {
					logger.Debug("Removed idle rate limit buckets", zap.Int("removed", removed))
				}
			}),
			gocron.WithName("ratelimit-cleanup"),
		)
		if err != nil {
			return nil, fmt.Errorf("schedule rate limit cleanup: %w", err)
		}
	}

	return &Janitor{scheduler: sched, logger: logger}, nil
}

func (j *Janitor) Start() {
	j.scheduler.Start()
	j.logger.Info("Janitor started", zap.Int("jobs", len(j.scheduler.Jobs())))
}

func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}
