package handlers

import (
	"context"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
)

// MatchFinder 매치 레코드 조회 (없으면 nil, nil)
type MatchFinder interface {
	FindByID(ctx context.Context, id string) (*models.Match, error)
}

// RatingInitializer 연결 시 기본 레이팅 보장
type RatingInitializer interface {
	EnsureRating(ctx context.Context, userID string, defaultRating int) error
}

// RatingLister 상위 레이팅 조회
type RatingLister interface {
	Top(ctx context.Context, limit int) ([]models.UserRating, error)
}
