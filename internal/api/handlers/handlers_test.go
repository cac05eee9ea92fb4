package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMatches struct {
	match *models.Match
	err   error
}

func (s stubMatches) FindByID(_ context.Context, _ string) (*models.Match, error) {
	return s.match, s.err
}

type stubRatings struct {
	ratings   []models.UserRating
	err       error
	lastLimit int
}

func (s *stubRatings) Top(_ context.Context, limit int) ([]models.UserRating, error) {
	s.lastLimit = limit
	return s.ratings, s.err
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestMatchHandler_GetMatch(t *testing.T) {
	id := uuid.New().String()

	tests := []struct {
		name   string
		stub   stubMatches
		target string
		status int
	}{
		{"found", stubMatches{match: &models.Match{ID: id, Status: models.MatchStatusCompleted}}, "/matches/" + id, http.StatusOK},
		{"missing", stubMatches{}, "/matches/" + id, http.StatusNotFound},
		{"store error", stubMatches{err: errors.New("db down")}, "/matches/" + id, http.StatusInternalServerError},
		{"bad id", stubMatches{}, "/matches/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/matches/:id", NewMatchHandler(tt.stub).GetMatch)

			w := serve(r, tt.target)
			assert.Equal(t, tt.status, w.Code)

			if tt.status == http.StatusOK {
				var got models.Match
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, id, got.ID)
				assert.Equal(t, models.MatchStatusCompleted, got.Status)
			}
		})
	}
}

func TestLeaderboardHandler(t *testing.T) {
	stub := &stubRatings{ratings: []models.UserRating{{UserID: "alice", Rating: 1250}}}
	r := gin.New()
	r.GET("/leaderboard", NewLeaderboardHandler(stub).GetLeaderboard)

	w := serve(r, "/leaderboard?limit=1000")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxLeaderboardLimit, stub.lastLimit)
	assert.Contains(t, w.Body.String(), `"userId":"alice"`)

	serve(r, "/leaderboard?limit=oops")
	assert.Equal(t, 20, stub.lastLimit)

	stub.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, serve(r, "/leaderboard").Code)
}

func TestHealthCheck(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck)

	w := serve(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestWebSocketHandler_RequiresIdentity(t *testing.T) {
	r := gin.New()
	r.GET("/ws", NewWebSocketHandler(nil, nil, nil, nil, 1200).HandleWebSocket)

	assert.Equal(t, http.StatusUnauthorized, serve(r, "/ws").Code)
}
