package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CoordinatorConfig 매칭 설정
type CoordinatorConfig struct {
	QuestionCount  int           // 요청에 문항 수가 없을 때
	MaxQuestions   int           // 요청 가능한 최대 문항 수
	PendingTimeout time.Duration // 상대 없이 대기 가능한 시간
}

// MatchCoordinator 연결된 사용자들의 매칭과 활성 세션을 관리
//
// 대기 중인 매치는 최대 하나다. pendingMu 는 대기 슬롯 확인부터 매치 생성까지
// 유지되어 동시 요청이 같은 대기 매치에 둘 다 앉지 못한다.
// 세션 맵은 별도 RWMutex 로 보호되어 다른 매치의 답안 처리는 막히지 않는다.
// 결과 저장에 실패한 매치는 unpersisted 에 남아 프로세스가 끝날 때까지 메모리 상태가 기준이 된다.
type MatchCoordinator struct {
	deps   SessionDeps
	bank   QuestionBank
	config CoordinatorConfig
	logger *zap.Logger

	pendingMu sync.Mutex
	pendingID string

	mu          sync.RWMutex
	sessions    map[string]*MatchSession
	unpersisted map[string]MatchSnapshot
}

// NewMatchCoordinator 코디네이터 생성
func NewMatchCoordinator(deps SessionDeps, bank QuestionBank, config CoordinatorConfig) *MatchCoordinator {
	deps = deps.withDefaults()
	if config.QuestionCount <= 0 {
		config.QuestionCount = 2
	}
	if config.MaxQuestions < config.QuestionCount {
		config.MaxQuestions = config.QuestionCount
	}

	return &MatchCoordinator{
		deps:     deps,
		bank:     bank,
		config:   config,
		logger:      deps.Logger.Named("coordinator"),
		sessions:    make(map[string]*MatchSession),
		unpersisted: make(map[string]MatchSnapshot),
	}
}

var _ websocket.MessageHandler = (*MatchCoordinator)(nil)

// HandleMessage 수신 메시지 라우팅
func (c *MatchCoordinator) HandleMessage(ctx context.Context, identity models.Identity, msg websocket.InboundMessage) {
	switch msg.Type {
	case MsgRequestMatch:
		var req RequestMatchPayload
		if !c.decode(identity, msg, &req) {
			return
		}
		c.RequestMatch(ctx, identity, req.QuestionCount)

	case MsgSubmitAnswer:
		var req SubmitAnswerPayload
		if !c.decode(identity, msg, &req) {
			return
		}
		c.SubmitAnswer(identity, req)

	case MsgLeaveMatch:
		var req MatchRefPayload
		if !c.decode(identity, msg, &req) {
			return
		}
		c.LeaveMatch(identity, req.MatchID)

	case MsgJoinRoom:
		var req MatchRefPayload
		if !c.decode(identity, msg, &req) {
			return
		}
		c.JoinRoom(ctx, identity, req.MatchID)

	default:
		c.logger.Debug("Unknown message type",
			zap.String("userId", identity.UserID),
			zap.String("type", msg.Type))
		c.sendError(identity.UserID, "unknown message type: "+msg.Type)
	}
}

func (c *MatchCoordinator) decode(identity models.Identity, msg websocket.InboundMessage, dst interface{}) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, dst); err != nil {
		c.logger.Debug("Invalid payload",
			zap.String("userId", identity.UserID),
			zap.String("type", msg.Type),
			zap.Error(err))
		c.sendError(identity.UserID, "invalid payload for "+msg.Type)
		return false
	}
	return true
}

// HandleDisconnect 연결 종료는 현재 룸에 대한 leave 로 처리
func (c *MatchCoordinator) HandleDisconnect(identity models.Identity) {
	roomID, ok := c.deps.Hub.RoomOf(identity.UserID)
	if !ok {
		return
	}
	c.LeaveMatch(identity, roomID)
}

// RequestMatch 대기 매치가 있으면 합류, 없으면 새 대기 매치 생성
func (c *MatchCoordinator) RequestMatch(ctx context.Context, identity models.Identity, questionCount int) {
	player := models.Player{ID: identity.UserID, Name: identity.Name}

	c.pendingMu.Lock()

	if pending, ok := c.pendingSessionLocked(); ok {
		if pending.PlayerA().ID == player.ID {
			c.pendingMu.Unlock()
			c.logger.Info("Self pairing rejected",
				zap.String("userId", player.ID),
				zap.String("matchId", pending.ID()))
			c.deps.Hub.SendToUser(player.ID, MsgSelfPairingBlocked, MatchRefPayload{MatchID: pending.ID()})
			return
		}

		err := pending.Pair(player)
		c.pendingID = ""
		if err == nil {
			c.pendingMu.Unlock()
			c.startPaired(ctx, pending, player)
			return
		}
		// join_room 으로 이미 채워진 매치, 새로 만든다
		c.logger.Debug("Pending match no longer pairable",
			zap.String("matchId", pending.ID()), zap.Error(err))
	}

	session, err := NewMatchSession(ctx, c.deps, c.bank, player, c.questionCount(questionCount))
	if err != nil {
		c.pendingMu.Unlock()
		c.logger.Error("Failed to create match", zap.String("userId", player.ID), zap.Error(err))
		if errors.Is(err, ErrNoQuestions) {
			c.sendError(player.ID, "no questions available")
		} else {
			c.sendError(player.ID, "failed to create match")
		}
		return
	}

	c.track(session)
	c.pendingID = session.ID()

	// 생성자가 룸에 들어간 뒤에 슬롯을 열어 시작 메시지를 놓치지 않게 한다
	c.deps.Hub.Join(player.ID, session.ID())
	snap := session.Snapshot()
	c.deps.Hub.SendToUser(player.ID, MsgMatchPending, MatchPendingPayload{
		MatchID:   snap.MatchID,
		PlayerA:   snap.PlayerA,
		Questions: snap.Questions,
	})
	c.pendingMu.Unlock()

	c.logger.Info("Match pending",
		zap.String("matchId", session.ID()),
		zap.String("userId", player.ID))
}

func (c *MatchCoordinator) questionCount(requested int) int {
	if requested <= 0 {
		return c.config.QuestionCount
	}
	if requested > c.config.MaxQuestions {
		return c.config.MaxQuestions
	}
	return requested
}

// pendingSessionLocked pendingMu 보유 상태에서 호출
func (c *MatchCoordinator) pendingSessionLocked() (*MatchSession, bool) {
	if c.pendingID == "" {
		return nil, false
	}
	session, ok := c.Session(c.pendingID)
	if !ok {
		c.pendingID = ""
		return nil, false
	}
	return session, true
}

func (c *MatchCoordinator) startPaired(ctx context.Context, session *MatchSession, player models.Player) {
	c.deps.Hub.Join(player.ID, session.ID())
	err := session.Start(ctx)
	if err == nil {
		return
	}

	if errors.Is(err, ErrSessionClosed) {
		// 시작 직전에 생성자가 나간 매치
		c.logger.Info("Paired match closed before start",
			zap.String("matchId", session.ID()),
			zap.String("userId", player.ID))
		c.cancelStored(ctx, session.ID())
		if room, in := c.deps.Hub.RoomOf(player.ID); in && room == session.ID() {
			c.deps.Hub.Leave(player.ID)
		}
		c.deps.Hub.SendToUser(player.ID, MsgMatchNotFound, MatchRefPayload{MatchID: session.ID()})
		return
	}

	c.logger.Error("Failed to start match",
		zap.String("matchId", session.ID()), zap.Error(err))
	c.sendError(player.ID, "failed to start match")
}

func (c *MatchCoordinator) cancelStored(ctx context.Context, matchID string) {
	storeCtx, cancel := c.deps.storeContext(ctx)
	defer cancel()
	if err := c.deps.Store.Cancel(storeCtx, matchID); err != nil {
		c.logger.Error("Failed to persist match cancellation", zap.String("matchId", matchID), zap.Error(err))
	}
}

func (c *MatchCoordinator) track(session *MatchSession) {
	session.OnSettled(c.settled)

	c.mu.Lock()
	c.sessions[session.ID()] = session
	c.mu.Unlock()
}

// Session 활성 세션 조회
func (c *MatchCoordinator) Session(matchID string) (*MatchSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	session, ok := c.sessions[matchID]
	return session, ok
}

// ActiveCount 활성 세션 수
func (c *MatchCoordinator) ActiveCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// PendingMatchID 현재 대기 매치 ID (없으면 "")
func (c *MatchCoordinator) PendingMatchID() string {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	return c.pendingID
}

// SubmitAnswer 답안을 세션에 전달, 정산되면 세션 정리
func (c *MatchCoordinator) SubmitAnswer(identity models.Identity, req SubmitAnswerPayload) {
	session, ok := c.Session(req.MatchID)
	if !ok {
		c.logger.Debug("Answer for unknown match dropped",
			zap.String("userId", identity.UserID),
			zap.String("matchId", req.MatchID))
		return
	}

	if session.SubmitAnswer(identity.UserID, req.QuestionID, req.IsCorrect) {
		c.retire(req.MatchID)
	}
}

// LeaveMatch 참가자가 나가면 세션을 상태와 관계없이 정리하고 남은 인원에게 알림
// 참가자가 아니면 룸에서만 빠진다.
func (c *MatchCoordinator) LeaveMatch(identity models.Identity, matchID string) {
	session, ok := c.Session(matchID)
	if !ok || !session.IsParticipant(identity.UserID) {
		if room, in := c.deps.Hub.RoomOf(identity.UserID); in && room == matchID {
			c.deps.Hub.Leave(identity.UserID)
		}
		return
	}

	c.retire(matchID)
	c.deps.Hub.Broadcast(matchID, MsgPlayerLeft, PlayerLeftPayload{
		MatchID: matchID,
		UserID:  identity.UserID,
	})
	c.deps.Hub.Leave(identity.UserID)

	c.logger.Info("Player left match",
		zap.String("matchId", matchID),
		zap.String("userId", identity.UserID),
		zap.String("status", string(session.Status())))
}

// settled 세션 정산 콜백
// 결과 저장에 실패했으면 스냅샷을 남겨 같은 매치가 영속 레코드로부터 다시 복원되지 않게 한다.
func (c *MatchCoordinator) settled(snap MatchSnapshot, persisted bool) {
	if !persisted {
		c.mu.Lock()
		c.unpersisted[snap.MatchID] = snap
		c.mu.Unlock()
		c.logger.Warn("Keeping unpersisted settlement in memory", zap.String("matchId", snap.MatchID))
	}
	c.retire(snap.MatchID)
}

// settledSnapshot 저장에 실패한 정산 결과 조회
func (c *MatchCoordinator) settledSnapshot(matchID string) (MatchSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.unpersisted[matchID]
	return snap, ok
}

// retire 세션을 활성 목록에서 제거하고 타이머 정지 (여러 번 호출해도 안전)
func (c *MatchCoordinator) retire(matchID string) {
	c.mu.Lock()
	session, ok := c.sessions[matchID]
	delete(c.sessions, matchID)
	c.mu.Unlock()

	if !ok {
		return
	}
	session.Stop()

	if session.Status() == models.MatchStatusPending {
		c.pendingMu.Lock()
		if c.pendingID == matchID {
			c.pendingID = ""
		}
		c.pendingMu.Unlock()
	}
}

// JoinRoom 매치 ID 로 룸에 (재)참여
//
// 메모리에 대기 매치가 있으면 두 번째 플레이어로 앉히고, 진행 중이면 스냅샷을 보낸다.
// 메모리에 없으면 영속 레코드를 조회해 종료된 매치는 결과를, 진행 중인 매치는 세션을 복원한다.
func (c *MatchCoordinator) JoinRoom(ctx context.Context, identity models.Identity, matchID string) {
	userID := identity.UserID

	if session, ok := c.Session(matchID); ok {
		if c.joinPending(ctx, session, identity) {
			return
		}
		c.attach(userID, session.Snapshot())
		return
	}

	if snap, ok := c.settledSnapshot(matchID); ok {
		c.deps.Hub.SendToUser(userID, MsgMatchAlreadyEnded, snap)
		return
	}

	if _, err := uuid.Parse(matchID); err != nil {
		c.deps.Hub.SendToUser(userID, MsgMatchNotFound, MatchRefPayload{MatchID: matchID})
		return
	}

	storeCtx, cancel := c.deps.storeContext(ctx)
	record, err := c.deps.Store.FindByID(storeCtx, matchID)
	cancel()
	if err != nil {
		c.logger.Error("Failed to load match", zap.String("matchId", matchID), zap.Error(err))
		c.sendError(userID, "failed to load match")
		return
	}
	if record == nil {
		c.deps.Hub.SendToUser(userID, MsgMatchNotFound, MatchRefPayload{MatchID: matchID})
		return
	}
	if record.Status != models.MatchStatusInProgress {
		c.deps.Hub.SendToUser(userID, MsgMatchAlreadyEnded, SnapshotFromRecord(record))
		return
	}

	session, err := c.restore(record)
	if errors.Is(err, ErrMatchSettled) {
		if snap, ok := c.settledSnapshot(matchID); ok {
			c.deps.Hub.SendToUser(userID, MsgMatchAlreadyEnded, snap)
			return
		}
	}
	if err != nil {
		c.logger.Error("Failed to restore match", zap.String("matchId", matchID), zap.Error(err))
		c.sendError(userID, "failed to restore match")
		return
	}
	c.attach(userID, session.Snapshot())
}

// joinPending 대기 매치에 대한 join_room 처리, 처리했으면 true
func (c *MatchCoordinator) joinPending(ctx context.Context, session *MatchSession, identity models.Identity) bool {
	player := models.Player{ID: identity.UserID, Name: identity.Name}

	c.pendingMu.Lock()
	if session.Status() != models.MatchStatusPending {
		c.pendingMu.Unlock()
		return false
	}

	if session.PlayerA().ID == player.ID {
		c.deps.Hub.Join(player.ID, session.ID())
		snap := session.Snapshot()
		c.deps.Hub.SendToUser(player.ID, MsgMatchPending, MatchPendingPayload{
			MatchID:   snap.MatchID,
			PlayerA:   snap.PlayerA,
			Questions: snap.Questions,
		})
		c.pendingMu.Unlock()
		return true
	}

	if err := session.Pair(player); err != nil {
		c.pendingMu.Unlock()
		return false
	}
	if c.pendingID == session.ID() {
		c.pendingID = ""
	}
	c.pendingMu.Unlock()

	c.startPaired(ctx, session, player)
	return true
}

func (c *MatchCoordinator) attach(userID string, snap MatchSnapshot) {
	c.deps.Hub.Join(userID, snap.MatchID)
	if snap.Status == models.MatchStatusCompleted {
		c.deps.Hub.SendToUser(userID, MsgMatchAlreadyEnded, snap)
		return
	}
	c.deps.Hub.SendToUser(userID, MsgMatchJoined, snap)
}

// restore 진행 중 레코드로 세션 복원 (동시에 복원되면 먼저 등록된 세션 사용)
// 이 프로세스에서 이미 정산된 매치면 ErrMatchSettled.
func (c *MatchCoordinator) restore(record *models.Match) (*MatchSession, error) {
	session, err := RestoreMatchSession(c.deps, record)
	if err != nil {
		return nil, err
	}
	session.OnSettled(c.settled)

	c.mu.Lock()
	if _, ok := c.unpersisted[record.ID]; ok {
		c.mu.Unlock()
		return nil, ErrMatchSettled
	}
	if existing, ok := c.sessions[record.ID]; ok {
		c.mu.Unlock()
		return existing, nil
	}
	c.sessions[record.ID] = session
	c.mu.Unlock()

	session.Resume()
	return session, nil
}

// ExpirePending 대기 시간을 넘긴 대기 매치 취소
func (c *MatchCoordinator) ExpirePending(ctx context.Context) {
	if c.config.PendingTimeout <= 0 {
		return
	}

	c.pendingMu.Lock()
	session, ok := c.pendingSessionLocked()
	if !ok || c.deps.Clock.Since(session.CreatedAt()) < c.config.PendingTimeout {
		c.pendingMu.Unlock()
		return
	}
	if err := session.Cancel(); err != nil {
		c.pendingMu.Unlock()
		return
	}
	c.pendingID = ""
	c.pendingMu.Unlock()

	matchID := session.ID()
	c.mu.Lock()
	delete(c.sessions, matchID)
	c.mu.Unlock()

	c.cancelStored(ctx, matchID)

	creator := session.PlayerA().ID
	c.deps.Hub.SendToUser(creator, MsgMatchExpired, MatchRefPayload{MatchID: matchID})
	if room, in := c.deps.Hub.RoomOf(creator); in && room == matchID {
		c.deps.Hub.Leave(creator)
	}

	c.logger.Info("Pending match expired",
		zap.String("matchId", matchID),
		zap.String("userId", creator))
}

// Shutdown 모든 세션 타이머 정지
func (c *MatchCoordinator) Shutdown() {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]*MatchSession)
	c.mu.Unlock()

	for _, session := range sessions {
		session.Stop()
	}
	c.logger.Info("Match coordinator stopped", zap.Int("sessions", len(sessions)))
}

func (c *MatchCoordinator) sendError(userID, message string) {
	c.deps.Hub.SendToUser(userID, MsgError, ErrorPayload{Message: message})
}
