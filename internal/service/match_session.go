package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// SessionConfig 세션 시간 설정
type SessionConfig struct {
	BaseTime     time.Duration // 문항과 무관한 기본 허용 시간
	QuestionTime time.Duration // 제한 시간이 없는 문항의 허용 시간
	Tick         time.Duration // 마감 확인 주기
	StoreTimeout time.Duration // 영속 저장소 호출 제한 시간
}

// SessionDeps 세션들이 공유하는 협력자
type SessionDeps struct {
	Store   MatchStore
	Ratings RatingStore
	ELO     *ELOService
	Hub     Broadcaster
	Clock   clockwork.Clock
	Logger  *zap.Logger
	Config  SessionConfig
}

func (d SessionDeps) withDefaults() SessionDeps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.ELO == nil {
		d.ELO = NewELOService(DefaultKFactor)
	}
	if d.Config.Tick <= 0 {
		d.Config.Tick = time.Second
	}
	if d.Config.StoreTimeout <= 0 {
		d.Config.StoreTimeout = 10 * time.Second
	}
	return d
}

func (d SessionDeps) storeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, d.Config.StoreTimeout)
}

// MatchSession 한 대결의 진행을 관리
//
// 상태 변경과 진행 브로드캐스트는 세션 뮤텍스 아래에서 일어나고,
// 정산의 영속화와 완료 브로드캐스트는 상태를 completed 로 바꾼 뒤 락 밖에서 한 번만 실행된다.
type MatchSession struct {
	mu     sync.Mutex
	state  *matchState
	timer  *deadlineTimer
	deps   SessionDeps
	logger *zap.Logger

	// Stop 이후에는 시작/재개하지 않는다
	stopped bool

	// 정산 완료 후 호출, persisted 는 결과 저장 성공 여부 (Start/Resume 전에 설정)
	onSettled func(snap MatchSnapshot, persisted bool)
}

// NewMatchSession 문항을 뽑아 pending 매치를 만들고 영속화
func NewMatchSession(ctx context.Context, deps SessionDeps, bank QuestionBank, creator models.Player, count int) (*MatchSession, error) {
	deps = deps.withDefaults()

	questions, err := bank.DrawRandom(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("draw questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	state := newMatchState(uuid.New().String(), creator, questions, deps.Clock.Now())

	storeCtx, cancel := deps.storeContext(ctx)
	defer cancel()

	err = deps.Store.Create(storeCtx, &models.Match{
		ID:          state.id,
		PlayerAID:   creator.ID,
		PlayerAName: creator.Name,
		Questions:   state.questions,
		Status:      models.MatchStatusPending,
		CreatedAt:   state.createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	return newMatchSession(deps, state), nil
}

// RestoreMatchSession 진행 중인 영속 레코드로 세션 재구성 (타이머는 Resume 에서 시작)
func RestoreMatchSession(deps SessionDeps, record *models.Match) (*MatchSession, error) {
	deps = deps.withDefaults()

	state, err := restoreMatchState(record)
	if err != nil {
		return nil, err
	}
	return newMatchSession(deps, state), nil
}

func newMatchSession(deps SessionDeps, state *matchState) *MatchSession {
	return &MatchSession{
		state:  state,
		timer:  newDeadlineTimer(deps.Clock, deps.Config.Tick),
		deps:   deps,
		logger: deps.Logger.With(zap.String("matchId", state.id)),
	}
}

func (s *MatchSession) ID() string {
	return s.state.id
}

// PlayerA 생성자 (불변)
func (s *MatchSession) PlayerA() models.Player {
	return s.state.playerA
}

func (s *MatchSession) Status() models.MatchStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.status
}

func (s *MatchSession) CreatedAt() time.Time {
	return s.state.createdAt
}

// IsParticipant 두 플레이어 중 하나인지
func (s *MatchSession) IsParticipant(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.state.seatOf(userID)
	return ok
}

func (s *MatchSession) Snapshot() MatchSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.snapshot()
}

// OnSettled 정산 후 콜백 등록
func (s *MatchSession) OnSettled(fn func(snap MatchSnapshot, persisted bool)) {
	s.onSettled = fn
}

// Pair 두 번째 플레이어를 앉힘 (아직 시작하지 않음)
func (s *MatchSession) Pair(player models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.pair(player)
}

// Start in_progress 로 전환하고 마감 시각을 고정, 시작 메시지 브로드캐스트 후 타이머 가동
func (s *MatchSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSessionClosed
	}

	now := s.deps.Clock.Now()
	budget := timeBudget(s.state.questions, s.deps.Config.BaseTime, s.deps.Config.QuestionTime)
	if err := s.state.start(now, budget); err != nil {
		return err
	}
	playerB, _ := s.state.playerB()

	storeCtx, cancel := s.deps.storeContext(ctx)
	defer cancel()
	if err := s.deps.Store.Start(storeCtx, s.state.id, playerB, now, s.state.deadline); err != nil {
		s.logger.Error("Failed to persist match start", zap.Error(err))
	}

	s.deps.Hub.Broadcast(s.state.id, MsgMatchStarted, MatchStartedPayload{
		MatchID:   s.state.id,
		PlayerA:   s.state.playerA,
		PlayerB:   playerB,
		Questions: s.state.questions,
		StartedAt: now,
		Deadline:  s.state.deadline,
	})

	s.timer.start(s.state.deadline, s.expire)

	s.logger.Info("Match started",
		zap.String("playerA", s.state.playerA.ID),
		zap.String("playerB", playerB.ID),
		zap.Int("questions", len(s.state.questions)),
		zap.Time("deadline", s.state.deadline))
	return nil
}

// Resume 복원된 세션의 마감 타이머 가동 (마감이 지났으면 첫 틱에 정산)
func (s *MatchSession) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.state.status != models.MatchStatusInProgress {
		return
	}
	s.timer.start(s.state.deadline, s.expire)
	s.logger.Info("Match session restored", zap.Time("deadline", s.state.deadline))
}

// SubmitAnswer 답안 기록
// 반환값은 호출 이후 매치가 정산된 상태인지 여부.
// 중복 답안, 참가자가 아닌 사용자, 모르는 문항, 문항 수 초과 답안은 무시하고 로그만 남긴다.
func (s *MatchSession) SubmitAnswer(userID, questionID string, correct bool) bool {
	s.mu.Lock()

	if _, err := s.state.recordAnswer(userID, questionID, correct); err != nil {
		settled := s.state.status == models.MatchStatusCompleted
		s.mu.Unlock()

		s.logger.Debug("Answer ignored",
			zap.String("userId", userID),
			zap.String("questionId", questionID),
			zap.Error(err))
		return settled
	}

	s.deps.Hub.Broadcast(s.state.id, MsgAnswerRecorded, AnswerRecordedPayload{
		MatchID:    s.state.id,
		PlayerID:   userID,
		QuestionID: questionID,
		IsCorrect:  correct,
		ScoreA:     append([]bool{}, s.state.scoreA...),
		ScoreB:     append([]bool{}, s.state.scoreB...),
	})

	if !s.state.allAnswered() {
		s.mu.Unlock()
		return false
	}

	out, ok := s.settleLocked()
	s.mu.Unlock()

	if ok {
		s.finalize(out, "all answered")
	}
	return true
}

// Stop 타이머 정지 (여러 번 호출해도 안전)
func (s *MatchSession) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.timer.stop()
}

// Cancel 상대 없이 만료된 pending 매치 취소
func (s *MatchSession) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.state.cancel(); err != nil {
		return err
	}
	s.timer.stop()
	return nil
}

// expire 마감 타이머에서 호출
func (s *MatchSession) expire() {
	s.mu.Lock()
	out, ok := s.settleLocked()
	s.mu.Unlock()

	if ok {
		s.finalize(out, "deadline")
	}
}

type settledMatch struct {
	snapshot    MatchSnapshot
	winnerID    *string
	completedAt time.Time
}

// settleLocked completed 로 전환 (s.mu 보유 상태에서 호출, 이미 정산됐으면 false)
func (s *MatchSession) settleLocked() (settledMatch, bool) {
	if _, err := s.state.settle(); err != nil {
		return settledMatch{}, false
	}
	s.timer.stop()

	return settledMatch{
		snapshot:    s.state.snapshot(),
		winnerID:    s.state.winnerID(),
		completedAt: s.deps.Clock.Now(),
	}, true
}

// finalize 레이팅 갱신, 결과 영속화, 완료 브로드캐스트 (정산당 한 번)
func (s *MatchSession) finalize(out settledMatch, reason string) {
	ctx, cancel := s.deps.storeContext(context.Background())
	defer cancel()

	snap := out.snapshot
	playerA := snap.PlayerA
	var playerB models.Player
	if snap.PlayerB != nil {
		playerB = *snap.PlayerB
	}

	outcomeA := PlayerOutcome{ID: playerA.ID, Name: playerA.Name, Scores: snap.ScoreA, Correct: countCorrect(snap.ScoreA)}
	outcomeB := PlayerOutcome{ID: playerB.ID, Name: playerB.Name, Scores: snap.ScoreB, Correct: countCorrect(snap.ScoreB)}
	s.applyRatings(ctx, snap.Result, &outcomeA, &outcomeB)

	err := s.deps.Store.Settle(ctx, models.Settlement{
		MatchID:      snap.MatchID,
		Result:       snap.Result,
		WinnerID:     out.winnerID,
		ScoreA:       snap.ScoreA,
		ScoreB:       snap.ScoreB,
		RatingDeltaA: outcomeA.RatingDelta,
		RatingDeltaB: outcomeB.RatingDelta,
		CompletedAt:  out.completedAt,
	})
	if err != nil {
		s.logger.Error("Failed to persist match settlement", zap.Error(err))
	}

	s.deps.Hub.Broadcast(snap.MatchID, MsgMatchCompleted, MatchCompletedPayload{
		MatchID:     snap.MatchID,
		Result:      snap.Result,
		WinnerID:    out.winnerID,
		Questions:   snap.Questions,
		PlayerA:     outcomeA,
		PlayerB:     outcomeB,
		CompletedAt: out.completedAt,
	})

	s.logger.Info("Match settled",
		zap.String("reason", reason),
		zap.String("result", string(snap.Result)),
		zap.Int("correctA", outcomeA.Correct),
		zap.Int("correctB", outcomeB.Correct))

	if s.onSettled != nil {
		s.onSettled(snap, err == nil)
	}
}

// applyRatings 두 플레이어 레이팅 갱신
// 어느 한쪽이라도 레이팅이 없거나 조회에 실패하면 갱신하지 않는다.
func (s *MatchSession) applyRatings(ctx context.Context, result models.MatchResult, a, b *PlayerOutcome) {
	ratingA, err := s.deps.Ratings.GetRating(ctx, a.ID)
	if err != nil || ratingA == nil {
		s.logger.Warn("Skipping rating update, player A rating unavailable",
			zap.String("userId", a.ID), zap.Error(err))
		return
	}
	ratingB, err := s.deps.Ratings.GetRating(ctx, b.ID)
	if err != nil || ratingB == nil {
		s.logger.Warn("Skipping rating update, player B rating unavailable",
			zap.String("userId", b.ID), zap.Error(err))
		return
	}

	score := 0.5
	switch result {
	case models.ResultPlayerA:
		score = 1.0
	case models.ResultPlayerB:
		score = 0.0
	}

	newA, newB, changeA, changeB := s.deps.ELO.CalculateNewRatings(*ratingA, *ratingB, score)

	if err := s.deps.Ratings.UpdateRating(ctx, a.ID, newA); err != nil {
		s.logger.Error("Failed to update rating", zap.String("userId", a.ID), zap.Error(err))
	}
	if err := s.deps.Ratings.UpdateRating(ctx, b.ID, newB); err != nil {
		s.logger.Error("Failed to update rating", zap.String("userId", b.ID), zap.Error(err))
	}

	a.RatingDelta = &changeA
	b.RatingDelta = &changeB
}

// deadlineTimer 주기적으로 마감 시각을 확인하고 지나면 fire 를 한 번 호출
type deadlineTimer struct {
	clock     clockwork.Clock
	tick      time.Duration
	stopCh    chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

func newDeadlineTimer(clock clockwork.Clock, tick time.Duration) *deadlineTimer {
	return &deadlineTimer{
		clock:  clock,
		tick:   tick,
		stopCh: make(chan struct{}),
	}
}

func (t *deadlineTimer) start(deadline time.Time, fire func()) {
	t.startOnce.Do(func() {
		go t.run(deadline, fire)
	})
}

func (t *deadlineTimer) run(deadline time.Time, fire func()) {
	ticker := t.clock.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stopCh:
			return
		default:
		}

		select {
		case <-t.stopCh:
			return
		case <-ticker.Chan():
			if !t.clock.Now().Before(deadline) {
				fire()
				return
			}
		}
	}
}

func (t *deadlineTimer) stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
}
