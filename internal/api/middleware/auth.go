package middleware

import (
	"net/http"
	"strings"

	"github.com/RankMarg-Learning/RankMarg-sub004/internal/models"
	jwtutil "github.com/RankMarg-Learning/RankMarg-sub004/pkg/jwt"
	"github.com/gin-gonic/gin"
)

// gin 컨텍스트 키
const (
	ContextUserID   = "userId"
	ContextUsername = "username"
)

// Auth JWT 인증 미들웨어
// 브라우저 WebSocket 은 헤더를 보낼 수 없으므로 token 쿼리 파라미터도 허용한다.
func Auth(jwtManager *jwtutil.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header or token query required",
			})
			return
		}

		claims, err := jwtManager.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// IdentityFrom Auth 가 저장한 사용자 정보
func IdentityFrom(c *gin.Context) (models.Identity, bool) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		return models.Identity{}, false
	}
	name := c.GetString(ContextUsername)
	if name == "" {
		name = userID
	}
	return models.Identity{UserID: userID, Name: name}, true
}
