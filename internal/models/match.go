package models

import (
	"encoding/json"
	"time"
)

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// MatchResult 정산 결과 (정산 전에는 빈 문자열)
type MatchResult string

const (
	ResultNone    MatchResult = ""
	ResultPlayerA MatchResult = "player_a"
	ResultPlayerB MatchResult = "player_b"
	ResultDraw    MatchResult = "draw"
)

// Identity 연결에 바인딩된 사용자 식별 정보
type Identity struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
}

// Player 매치에 앉은 플레이어
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Match 대결의 영속 레코드
type Match struct {
	ID           string      `json:"id" db:"id"`
	PlayerAID    string      `json:"playerAId" db:"player_a_id"`
	PlayerAName  string      `json:"playerAName" db:"player_a_name"`
	PlayerBID    *string     `json:"playerBId,omitempty" db:"player_b_id"`
	PlayerBName  *string     `json:"playerBName,omitempty" db:"player_b_name"`
	Questions    []Question  `json:"questions" db:"questions"`
	Status       MatchStatus `json:"status" db:"status"`
	Result       MatchResult `json:"result,omitempty" db:"result"`
	WinnerID     *string     `json:"winnerId,omitempty" db:"winner_id"`
	ScoreA       []bool      `json:"scoreA" db:"score_a"`
	ScoreB       []bool      `json:"scoreB" db:"score_b"`
	RatingDeltaA *int        `json:"ratingDeltaA,omitempty" db:"rating_delta_a"`
	RatingDeltaB *int        `json:"ratingDeltaB,omitempty" db:"rating_delta_b"`
	StartedAt    *time.Time  `json:"startedAt,omitempty" db:"started_at"`
	Deadline     *time.Time  `json:"deadline,omitempty" db:"deadline"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt    time.Time   `json:"createdAt" db:"created_at"`
}

// PlayerA 생성자 플레이어
func (m *Match) PlayerA() Player {
	return Player{ID: m.PlayerAID, Name: m.PlayerAName}
}

// PlayerB 상대 플레이어 (아직 없으면 false)
func (m *Match) PlayerB() (Player, bool) {
	if m.PlayerBID == nil {
		return Player{}, false
	}
	p := Player{ID: *m.PlayerBID}
	if m.PlayerBName != nil {
		p.Name = *m.PlayerBName
	}
	return p, true
}

// Settlement 정산 시 영속화되는 값
type Settlement struct {
	MatchID      string
	Result       MatchResult
	WinnerID     *string
	ScoreA       []bool
	ScoreB       []bool
	RatingDeltaA *int
	RatingDeltaB *int
	CompletedAt  time.Time
}

// EncodeQuestions questions 컬럼(JSONB) 직렬화
func EncodeQuestions(qs []Question) ([]byte, error) {
	if qs == nil {
		qs = []Question{}
	}
	return json.Marshal(qs)
}

// DecodeQuestions questions 컬럼 역직렬화
func DecodeQuestions(raw []byte) ([]Question, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var qs []Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, err
	}
	return qs, nil
}
