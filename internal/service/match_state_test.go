package service

import (
	"testing"
	"time"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState() *matchState {
	return newMatchState("m1", models.Player{ID: "alice", Name: "Alice"}, twoQuestions(), time.Unix(0, 0))
}

func TestMatchState_Transitions(t *testing.T) {
	s := newTestState()
	now := time.Unix(100, 0)

	assert.ErrorIs(t, s.start(now, time.Minute), ErrNotPending, "cannot start without an opponent")
	assert.ErrorIs(t, s.pair(models.Player{ID: "alice"}), ErrSelfPairing)

	require.NoError(t, s.pair(models.Player{ID: "bob"}))
	assert.ErrorIs(t, s.pair(models.Player{ID: "carol"}), ErrAlreadyPaired)

	_, err := s.recordAnswer("alice", "q1", true)
	assert.ErrorIs(t, err, ErrNotInProgress)

	require.NoError(t, s.start(now, time.Minute))
	assert.Equal(t, models.MatchStatusInProgress, s.status)
	assert.Equal(t, now.Add(time.Minute), s.deadline)
	assert.ErrorIs(t, s.pair(models.Player{ID: "carol"}), ErrNotPending)
	assert.ErrorIs(t, s.cancel(), ErrNotPending)

	result, err := s.settle()
	require.NoError(t, err)
	assert.Equal(t, models.ResultDraw, result)

	_, err = s.settle()
	assert.ErrorIs(t, err, ErrMatchSettled)
	_, err = s.recordAnswer("alice", "q1", true)
	assert.ErrorIs(t, err, ErrMatchSettled)
}

func TestMatchState_RecordAnswer(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.pair(models.Player{ID: "bob"}))
	require.NoError(t, s.start(time.Unix(0, 0), time.Minute))

	who, err := s.recordAnswer("bob", "q2", true)
	require.NoError(t, err)
	assert.Equal(t, seatB, who)

	_, err = s.recordAnswer("bob", "q2", false)
	assert.ErrorIs(t, err, ErrDuplicateAnswer)

	_, err = s.recordAnswer("bob", "q9", false)
	assert.ErrorIs(t, err, ErrUnknownQuestion)

	_, err = s.recordAnswer("carol", "q1", true)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = s.recordAnswer("bob", "q1", false)
	require.NoError(t, err)
	_, err = s.recordAnswer("bob", "q1", false)
	assert.ErrorIs(t, err, ErrAllAnswered)

	assert.Equal(t, []bool{true, false}, s.scoreB)
	assert.False(t, s.allAnswered())
}

func TestMatchState_Cancel(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.cancel())
	assert.Equal(t, models.MatchStatusCancelled, s.status)
	assert.ErrorIs(t, s.pair(models.Player{ID: "bob"}), ErrNotPending)
}

func TestDecideResult(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []bool
		result models.MatchResult
	}{
		{"a ahead", []bool{true, true}, []bool{true, false}, models.ResultPlayerA},
		{"b ahead", []bool{false}, []bool{true}, models.ResultPlayerB},
		{"tie", []bool{true, false}, []bool{false, true}, models.ResultDraw},
		{"nobody answered", nil, nil, models.ResultDraw},
		{"count not order", []bool{false, true}, []bool{true}, models.ResultDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.result, decideResult(tt.a, tt.b))
		})
	}
}

func TestTimeBudget(t *testing.T) {
	qs := []models.Question{{ID: "a"}, {ID: "b", TimeLimitSeconds: 10}}
	assert.Equal(t, 70*time.Second, timeBudget(qs, 30*time.Second, 30*time.Second))
	assert.Equal(t, 5*time.Second, timeBudget(nil, 5*time.Second, time.Minute))
}

func TestRestoreMatchState(t *testing.T) {
	bob := "bob"
	deadline := time.Unix(500, 0)
	record := &models.Match{
		ID:        "m1",
		PlayerAID: "alice",
		PlayerBID: &bob,
		Questions: twoQuestions(),
		Status:    models.MatchStatusInProgress,
		Deadline:  &deadline,
	}

	s, err := restoreMatchState(record)
	require.NoError(t, err)
	assert.Equal(t, deadline, s.deadline)
	b, ok := s.playerB()
	require.True(t, ok)
	assert.Equal(t, "bob", b.ID)
	assert.Empty(t, s.scoreA)

	record.Status = models.MatchStatusCompleted
	_, err = restoreMatchState(record)
	assert.ErrorIs(t, err, ErrNotInProgress)

	record.Status = models.MatchStatusInProgress
	record.Deadline = nil
	_, err = restoreMatchState(record)
	assert.Error(t, err)
}
