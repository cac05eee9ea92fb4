package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

type fakeBank struct {
	questions []models.Question
	err       error
}

func (b *fakeBank) DrawRandom(_ context.Context, count int) ([]models.Question, error) {
	if b.err != nil {
		return nil, b.err
	}
	if count > len(b.questions) {
		count = len(b.questions)
	}
	return append([]models.Question(nil), b.questions[:count]...), nil
}

type fakeStore struct {
	mu          sync.Mutex
	matches     map[string]*models.Match
	settleCalls int
	settleErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{matches: make(map[string]*models.Match)}
}

func (s *fakeStore) Create(_ context.Context, match *models.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *match
	s.matches[match.ID] = &cp
	return nil
}

func (s *fakeStore) Start(_ context.Context, matchID string, playerB models.Player, startedAt, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok || m.Status != models.MatchStatusPending {
		return errors.New("match not pending")
	}
	m.PlayerBID, m.PlayerBName = &playerB.ID, &playerB.Name
	m.Status = models.MatchStatusInProgress
	m.StartedAt, m.Deadline = &startedAt, &deadline
	return nil
}

func (s *fakeStore) Settle(_ context.Context, st models.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleCalls++
	if s.settleErr != nil {
		return s.settleErr
	}
	m, ok := s.matches[st.MatchID]
	if !ok || m.Status == models.MatchStatusCompleted {
		return nil
	}
	m.Status = models.MatchStatusCompleted
	m.Result = st.Result
	m.WinnerID = st.WinnerID
	m.ScoreA, m.ScoreB = st.ScoreA, st.ScoreB
	m.RatingDeltaA, m.RatingDeltaB = st.RatingDeltaA, st.RatingDeltaB
	m.CompletedAt = &st.CompletedAt
	return nil
}

func (s *fakeStore) Cancel(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matches[matchID]; ok && m.Status == models.MatchStatusPending {
		m.Status = models.MatchStatusCancelled
	}
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *fakeStore) get(id string) models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.matches[id]
}

func (s *fakeStore) countByStatus(status models.MatchStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.matches {
		if m.Status == status {
			n++
		}
	}
	return n
}

type fakeRatings struct {
	mu      sync.Mutex
	ratings map[string]int
}

func (r *fakeRatings) GetRating(_ context.Context, userID string) (*int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ratings[userID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *fakeRatings) UpdateRating(_ context.Context, userID string, rating int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ratings[userID] = rating
	return nil
}

func (r *fakeRatings) get(userID string) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.ratings[userID]
	return v, ok
}

// harness 실제 Hub 와 가짜 저장소/시계로 코디네이터를 구성
type harness struct {
	t       *testing.T
	clock   *clockwork.FakeClock
	hub     *websocket.Hub
	store   *fakeStore
	ratings *fakeRatings
	bank    *fakeBank
	coord   *MatchCoordinator
	clients map[string]*websocket.Client
}

func twoQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Text: "2+2?", Choices: []string{"3", "4"}},
		{ID: "q2", Text: "3*3?", Choices: []string{"6", "9"}, TimeLimitSeconds: 45},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		clock:   clockwork.NewFakeClock(),
		hub:     websocket.NewHub(nil),
		store:   newFakeStore(),
		ratings: &fakeRatings{ratings: map[string]int{}},
		bank:    &fakeBank{questions: twoQuestions()},
		clients: make(map[string]*websocket.Client),
	}

	h.coord = NewMatchCoordinator(SessionDeps{
		Store:   h.store,
		Ratings: h.ratings,
		ELO:     NewELOService(10),
		Hub:     h.hub,
		Clock:   h.clock,
		Config: SessionConfig{
			BaseTime:     30 * time.Second,
			QuestionTime: 30 * time.Second,
			Tick:         time.Second,
			StoreTimeout: time.Second,
		},
	}, h.bank, CoordinatorConfig{
		QuestionCount:  2,
		MaxQuestions:   10,
		PendingTimeout: 5 * time.Minute,
	})
	t.Cleanup(h.coord.Shutdown)

	return h
}

func (h *harness) connect(userID string) models.Identity {
	identity := models.Identity{UserID: userID, Name: userID}
	client := websocket.NewClient(h.hub, nil, identity, h.coord, nil)
	h.hub.Register(client)
	h.clients[userID] = client
	h.ratings.ratings[userID] = 1200
	return identity
}

func (h *harness) expect(userID, msgType string) *websocket.Message {
	h.t.Helper()
	select {
	case msg, ok := <-h.clients[userID].Send():
		require.True(h.t, ok, "connection for %s closed", userID)
		require.Equal(h.t, msgType, msg.Type, "unexpected message for %s", userID)
		return msg
	case <-time.After(2 * time.Second):
		h.t.Fatalf("timed out waiting for %s to receive %s", userID, msgType)
	}
	return nil
}

func (h *harness) expectNone(userID string) {
	h.t.Helper()
	select {
	case msg := <-h.clients[userID].Send():
		h.t.Fatalf("unexpected %s message for %s", msg.Type, userID)
	default:
	}
}

func (h *harness) drain(userID string) []*websocket.Message {
	var out []*websocket.Message
	for {
		select {
		case msg, ok := <-h.clients[userID].Send():
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

// startMatch alice 가 만들고 bob 이 합류한 진행 중 매치
func (h *harness) startMatch(alice, bob models.Identity) string {
	h.t.Helper()
	h.coord.RequestMatch(context.Background(), alice, 0)
	pending := h.expect(alice.UserID, MsgMatchPending).Payload.(MatchPendingPayload)

	h.coord.RequestMatch(context.Background(), bob, 0)
	h.expect(alice.UserID, MsgMatchStarted)
	h.expect(bob.UserID, MsgMatchStarted)
	return pending.MatchID
}

func (h *harness) answer(who models.Identity, matchID, questionID string, correct bool) {
	h.coord.SubmitAnswer(who, SubmitAnswerPayload{MatchID: matchID, QuestionID: questionID, IsCorrect: correct})
}
