package handlers

import (
	"net/http"

	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matches MatchFinder
}

func NewMatchHandler(matches MatchFinder) *MatchHandler {
	return &MatchHandler{
		matches: matches,
	}
}

// GetMatch 매치 영속 레코드 조회
func (h *MatchHandler) GetMatch(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid match id"})
		return
	}

	match, err := h.matches.FindByID(c.Request.Context(), id)
	if err != nil {
		logger.Error("Failed to get match", "matchId", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get match"})
		return
	}
	if match == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Match not found"})
		return
	}

	c.JSON(http.StatusOK, match)
}
