package service

import (
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
)

// 클라이언트 -> 서버 메시지 타입
const (
	MsgRequestMatch = "request_match"
	MsgSubmitAnswer = "submit_answer"
	MsgLeaveMatch   = "leave_match"
	MsgJoinRoom     = "join_room"
)

// 서버 -> 클라이언트 메시지 타입
const (
	MsgMatchPending       = "match_pending"
	MsgMatchStarted       = "match_started"
	MsgAnswerRecorded     = "answer_recorded"
	MsgMatchCompleted     = "match_completed"
	MsgMatchNotFound      = "match_not_found"
	MsgMatchAlreadyEnded  = "match_already_ended"
	MsgSelfPairingBlocked = "self_pairing_rejected"
	MsgMatchJoined        = "match_joined"
	MsgPlayerLeft         = "player_left"
	MsgMatchExpired       = "match_expired"
	MsgError              = "error"
)

type RequestMatchPayload struct {
	QuestionCount int `json:"questionCount,omitempty"`
}

type SubmitAnswerPayload struct {
	MatchID    string `json:"matchId"`
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
}

type MatchRefPayload struct {
	MatchID string `json:"matchId"`
}

// MatchSnapshot 매치 현재 상태 (재접속/조회 응답)
type MatchSnapshot struct {
	MatchID   string             `json:"matchId"`
	Status    models.MatchStatus `json:"status"`
	Result    models.MatchResult `json:"result,omitempty"`
	PlayerA   models.Player      `json:"playerA"`
	PlayerB   *models.Player     `json:"playerB,omitempty"`
	Questions []models.Question  `json:"questions"`
	ScoreA    []bool             `json:"scoreA"`
	ScoreB    []bool             `json:"scoreB"`
	Deadline  *time.Time         `json:"deadline,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
}

// SnapshotFromRecord 영속 레코드를 스냅샷으로 변환
func SnapshotFromRecord(m *models.Match) MatchSnapshot {
	snap := MatchSnapshot{
		MatchID:   m.ID,
		Status:    m.Status,
		Result:    m.Result,
		PlayerA:   m.PlayerA(),
		Questions: m.Questions,
		ScoreA:    append([]bool{}, m.ScoreA...),
		ScoreB:    append([]bool{}, m.ScoreB...),
		Deadline:  m.Deadline,
		CreatedAt: m.CreatedAt,
	}
	if m.Questions == nil {
		snap.Questions = []models.Question{}
	}
	if b, ok := m.PlayerB(); ok {
		snap.PlayerB = &b
	}
	return snap
}

type MatchPendingPayload struct {
	MatchID   string            `json:"matchId"`
	PlayerA   models.Player     `json:"playerA"`
	Questions []models.Question `json:"questions"`
}

type MatchStartedPayload struct {
	MatchID   string            `json:"matchId"`
	PlayerA   models.Player     `json:"playerA"`
	PlayerB   models.Player     `json:"playerB"`
	Questions []models.Question `json:"questions"`
	StartedAt time.Time         `json:"startedAt"`
	Deadline  time.Time         `json:"deadline"`
}

type AnswerRecordedPayload struct {
	MatchID    string `json:"matchId"`
	PlayerID   string `json:"playerId"`
	QuestionID string `json:"questionId"`
	IsCorrect  bool   `json:"isCorrect"`
	ScoreA     []bool `json:"scoreA"`
	ScoreB     []bool `json:"scoreB"`
}

// PlayerOutcome 정산 결과의 플레이어별 요약
// 레이팅 갱신을 건너뛴 경우 RatingDelta 는 null.
type PlayerOutcome struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Scores      []bool `json:"scores"`
	Correct     int    `json:"correct"`
	RatingDelta *int   `json:"ratingDelta"`
}

type MatchCompletedPayload struct {
	MatchID     string             `json:"matchId"`
	Result      models.MatchResult `json:"result"`
	WinnerID    *string            `json:"winnerId"`
	Questions   []models.Question  `json:"questions"`
	PlayerA     PlayerOutcome      `json:"playerA"`
	PlayerB     PlayerOutcome      `json:"playerB"`
	CompletedAt time.Time          `json:"completedAt"`
}

type PlayerLeftPayload struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
