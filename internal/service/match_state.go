package service

import (
	"fmt"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
)

// Opponent 두 번째 자리: Unpaired 또는 Paired
type Opponent interface {
	isOpponent()
}

// Unpaired 아직 상대가 없음
type Unpaired struct{}

// Paired 상대가 앉음
type Paired struct {
	Player models.Player
}

func (Unpaired) isOpponent() {}
func (Paired) isOpponent()   {}

type seat int

const (
	seatA seat = iota
	seatB
)

// matchState 한 대결의 상태 레코드
// 모든 변경은 아래 전이 함수로만 이루어지며 각 함수가 허용 전이를 검사한다:
//
//	pending --pair/start--> in_progress --settle--> completed
//	pending --cancel--> cancelled
type matchState struct {
	id        string
	playerA   models.Player
	opponent  Opponent
	questions []models.Question
	known     map[string]struct{}

	scoreA    []bool
	scoreB    []bool
	answeredA map[string]struct{}
	answeredB map[string]struct{}

	status models.MatchStatus
	result models.MatchResult

	createdAt time.Time
	startedAt time.Time
	deadline  time.Time
}

func newMatchState(id string, playerA models.Player, questions []models.Question, createdAt time.Time) *matchState {
	s := &matchState{
		id:        id,
		playerA:   playerA,
		opponent:  Unpaired{},
		questions: append([]models.Question(nil), questions...),
		known:     make(map[string]struct{}, len(questions)),
		answeredA: make(map[string]struct{}),
		answeredB: make(map[string]struct{}),
		status:    models.MatchStatusPending,
		createdAt: createdAt,
	}
	for _, q := range questions {
		s.known[q.ID] = struct{}{}
	}
	return s
}

// restoreMatchState 영속 레코드(진행 중)로부터 상태 복원
// 정산 시점에만 점수를 저장하므로 복원된 점수열은 비어 있다.
func restoreMatchState(record *models.Match) (*matchState, error) {
	if record.Status != models.MatchStatusInProgress {
		return nil, fmt.Errorf("restore match %s: %w", record.ID, ErrNotInProgress)
	}
	playerB, ok := record.PlayerB()
	if !ok || record.Deadline == nil {
		return nil, fmt.Errorf("restore match %s: in-progress record without opponent or deadline", record.ID)
	}

	s := newMatchState(record.ID, record.PlayerA(), record.Questions, record.CreatedAt)
	s.opponent = Paired{Player: playerB}
	s.status = models.MatchStatusInProgress
	s.deadline = *record.Deadline
	if record.StartedAt != nil {
		s.startedAt = *record.StartedAt
	}
	return s, nil
}

func (s *matchState) playerB() (models.Player, bool) {
	if p, ok := s.opponent.(Paired); ok {
		return p.Player, true
	}
	return models.Player{}, false
}

func (s *matchState) seatOf(userID string) (seat, bool) {
	if userID == s.playerA.ID {
		return seatA, true
	}
	if b, ok := s.playerB(); ok && b.ID == userID {
		return seatB, true
	}
	return 0, false
}

// pair 두 번째 플레이어 착석
func (s *matchState) pair(player models.Player) error {
	if s.status != models.MatchStatusPending {
		return ErrNotPending
	}
	if _, ok := s.opponent.(Unpaired); !ok {
		return ErrAlreadyPaired
	}
	if player.ID == s.playerA.ID {
		return ErrSelfPairing
	}
	s.opponent = Paired{Player: player}
	return nil
}

// start pending -> in_progress, 마감 시각 고정
func (s *matchState) start(now time.Time, budget time.Duration) error {
	if s.status != models.MatchStatusPending {
		return ErrNotPending
	}
	if _, ok := s.opponent.(Paired); !ok {
		return fmt.Errorf("start match %s: %w", s.id, ErrNotPending)
	}
	s.status = models.MatchStatusInProgress
	s.startedAt = now
	s.deadline = now.Add(budget)
	return nil
}

// recordAnswer 제출 순서대로 점수열에 추가
func (s *matchState) recordAnswer(userID, questionID string, correct bool) (seat, error) {
	if s.status == models.MatchStatusCompleted {
		return 0, ErrMatchSettled
	}
	if s.status != models.MatchStatusInProgress {
		return 0, ErrNotInProgress
	}

	who, ok := s.seatOf(userID)
	if !ok {
		return 0, ErrNotParticipant
	}
	if _, ok := s.known[questionID]; !ok {
		return who, ErrUnknownQuestion
	}

	scores, answered := &s.scoreA, s.answeredA
	if who == seatB {
		scores, answered = &s.scoreB, s.answeredB
	}
	if len(*scores) >= len(s.questions) {
		return who, ErrAllAnswered
	}
	if _, dup := answered[questionID]; dup {
		return who, ErrDuplicateAnswer
	}

	answered[questionID] = struct{}{}
	*scores = append(*scores, correct)
	return who, nil
}

func (s *matchState) allAnswered() bool {
	n := len(s.questions)
	return len(s.scoreA) >= n && len(s.scoreB) >= n
}

// settle in_progress -> completed, 정답 수 합으로 결과 결정
func (s *matchState) settle() (models.MatchResult, error) {
	if s.status == models.MatchStatusCompleted {
		return s.result, ErrMatchSettled
	}
	if s.status != models.MatchStatusInProgress {
		return models.ResultNone, ErrNotInProgress
	}

	s.result = decideResult(s.scoreA, s.scoreB)
	s.status = models.MatchStatusCompleted
	return s.result, nil
}

// cancel pending -> cancelled (상대 없이 만료)
func (s *matchState) cancel() error {
	if s.status != models.MatchStatusPending {
		return ErrNotPending
	}
	s.status = models.MatchStatusCancelled
	return nil
}

func (s *matchState) winnerID() *string {
	switch s.result {
	case models.ResultPlayerA:
		id := s.playerA.ID
		return &id
	case models.ResultPlayerB:
		if b, ok := s.playerB(); ok {
			id := b.ID
			return &id
		}
	}
	return nil
}

// snapshot 메시지/응답용 복사본
func (s *matchState) snapshot() MatchSnapshot {
	snap := MatchSnapshot{
		MatchID:   s.id,
		Status:    s.status,
		Result:    s.result,
		PlayerA:   s.playerA,
		Questions: append([]models.Question(nil), s.questions...),
		ScoreA:    append([]bool{}, s.scoreA...),
		ScoreB:    append([]bool{}, s.scoreB...),
		CreatedAt: s.createdAt,
	}
	if b, ok := s.playerB(); ok {
		snap.PlayerB = &b
	}
	if !s.deadline.IsZero() {
		d := s.deadline
		snap.Deadline = &d
	}
	return snap
}

func decideResult(scoreA, scoreB []bool) models.MatchResult {
	a, b := countCorrect(scoreA), countCorrect(scoreB)
	switch {
	case a > b:
		return models.ResultPlayerA
	case b > a:
		return models.ResultPlayerB
	default:
		return models.ResultDraw
	}
}

func countCorrect(scores []bool) int {
	n := 0
	for _, ok := range scores {
		if ok {
			n++
		}
	}
	return n
}

// timeBudget 기본 허용 시간 + 문항별 허용 시간 합
func timeBudget(questions []models.Question, base, perQuestion time.Duration) time.Duration {
	total := base
	for _, q := range questions {
		total += q.TimeAllowance(perQuestion)
	}
	return total
}
