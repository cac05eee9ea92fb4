package handlers

import (
	"net/http"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/api/middleware"
	"github.com/RankMarg-Learning/RankMarg-sub004/internal/websocket"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/logger"
	"github.com/RankMarg-Learning/RankMarg-sub004/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub           *websocket.Hub
	handler       websocket.MessageHandler
	limiter       *ratelimit.RateLimiter
	ratings       RatingInitializer
	defaultRating int
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, handler websocket.MessageHandler, limiter *ratelimit.RateLimiter, ratings RatingInitializer, defaultRating int) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		handler:       handler,
		limiter:       limiter,
		ratings:       ratings,
		defaultRating: defaultRating,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	// 첫 정산에서 레이팅이 갱신되도록 기본 레이팅 행을 만들어 둔다
	if h.ratings != nil {
		if err := h.ratings.EnsureRating(c.Request.Context(), identity.UserID, h.defaultRating); err != nil {
			logger.Warn("Failed to ensure rating", "userId", identity.UserID, "error", err)
		}
	}

	websocket.ServeWs(h.hub, h.handler, h.limiter, c.Writer, c.Request, identity)
}
