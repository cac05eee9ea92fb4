package handlers

import (
	"net/http"
	"strconv"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/logger"
	"github.com/gin-gonic/gin"
)

const maxLeaderboardLimit = 100

type LeaderboardHandler struct {
	ratings RatingLister
}

func NewLeaderboardHandler(ratings RatingLister) *LeaderboardHandler {
	return &LeaderboardHandler{
		ratings: ratings,
	}
}

// GetLeaderboard 레이팅 상위 사용자 조회
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	ratings, err := h.ratings.Top(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to get leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get leaderboard",
		})
		return
	}
	if ratings == nil {
		ratings = []models.UserRating{}
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard": ratings,
		"total":       len(ratings),
	})
}
