package service

import (
	"context"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
)

// QuestionBank 무작위 문항 공급자 (요청보다 적게 반환할 수 있음)
type QuestionBank interface {
	DrawRandom(ctx context.Context, count int) ([]models.Question, error)
}

// MatchStore 매치 영속 저장소
// FindByID 는 레코드가 없으면 nil, nil 을 반환한다.
type MatchStore interface {
	Create(ctx context.Context, match *models.Match) error
	Start(ctx context.Context, matchID string, playerB models.Player, startedAt, deadline time.Time) error
	Settle(ctx context.Context, settlement models.Settlement) error
	Cancel(ctx context.Context, matchID string) error
	FindByID(ctx context.Context, id string) (*models.Match, error)
}

// RatingStore 레이팅 저장소 (레코드가 없으면 GetRating 이 nil, nil)
type RatingStore interface {
	GetRating(ctx context.Context, userID string) (*int, error)
	UpdateRating(ctx context.Context, userID string, rating int) error
}

// Broadcaster 룸 단위 메시지 전달 (websocket.Hub 가 구현)
type Broadcaster interface {
	Join(userID, roomID string)
	Leave(userID string)
	Broadcast(roomID, msgType string, payload interface{})
	SendToUser(userID, msgType string, payload interface{})
	RoomOf(userID string) (string, bool)
}
