// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/service"

	"github.com/gin-gonic/gin"
)

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// respondServiceError 将业务层错误映射为 HTTP 状态码。
func respondServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "服务器内部错误"
	switch {
	case errors.Is(err, service.ErrTicketNotFound), errors.Is(err, service.ErrUserNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, message = http.StatusForbidden, "无权访问该工单"
	case errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidPriority),
		errors.Is(err, service.ErrEmptyDescription),
		errors.Is(err, service.ErrEmptyResolution):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrUserExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, service.ErrSearchDisabled):
		status, message = http.StatusServiceUnavailable, err.Error()
	}
	respondError(c, status, message)
}

// currentUser 返回 AuthMiddleware 注入的用户。
func currentUser(c *gin.Context) *model.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := value.(*model.User)
	return user
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, http.StatusBadRequest, "无效的工单 ID")
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return v
}
