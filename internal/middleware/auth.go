package middleware

import (
	"net/http"
	"strings"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware 创建一个 Gin 中间件，用于 JWT 认证。
// 它从 Authorization 头提取 access token，检查黑名单，并将完整的 User 对象存入上下文。
func AuthMiddleware(jwtManager *token.JWTManager, userService service.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "请求未包含授权头")
			return
		}
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) {
			abortUnauthorized(c, "无效的授权头格式")
			return
		}
		tokenString := strings.TrimPrefix(authHeader, bearerPrefix)

		claims, err := jwtManager.VerifyToken(tokenString)
		if err != nil {
			abortUnauthorized(c, "无效或已过期的 token")
			return
		}

		revoked, err := userService.IsTokenRevoked(c.Request.Context(), tokenString)
		if err != nil {
			// 黑名单不可用时放行，只记录日志
			log.Warnf("[AuthMiddleware] 检查 token 黑名单失败: %v", err)
		}
		if revoked {
			abortUnauthorized(c, "token 已登出")
			return
		}

		user, err := userService.GetProfile(claims.Username)
		if err != nil {
			abortUnauthorized(c, "用户不存在")
			return
		}

		c.Set("user", user)
		c.Set("claims", claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": message})
}
