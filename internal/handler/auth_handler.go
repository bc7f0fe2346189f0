package handler

import (
	"net/http"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// tokenPair 是登录与刷新接口共用的响应体。
type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// AuthHandler 处理 token 续期。
type AuthHandler struct {
	userService service.UserService
}

func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 用 refresh token 换取新的 token 对，access token 不能用于续期。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "refreshToken 不能为空")
		return
	}

	access, refresh, err := h.userService.RefreshToken(req.RefreshToken)
	if err != nil {
		log.Warnf("[Auth] 刷新 token 失败: %v", err)
		respondError(c, http.StatusUnauthorized, "无效的 refresh token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "Token refreshed successfully",
		"data":    tokenPair{Token: access, RefreshToken: refresh},
	})
}
