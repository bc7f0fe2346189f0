// Package service 包含了应用的业务逻辑层。
package service

import "errors"

// 业务层的哨兵错误，handler 使用 errors.Is 映射为 HTTP 状态码。
var (
	ErrUserExists         = errors.New("用户名已存在")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUserNotFound       = errors.New("user not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrForbidden          = errors.New("forbidden")
	ErrAlreadyResolved    = errors.New("ticket already resolved")
	ErrInvalidStatus      = errors.New("invalid ticket status")
	ErrInvalidPriority    = errors.New("invalid ticket priority")
	ErrEmptyDescription   = errors.New("description is required")
	ErrEmptyResolution    = errors.New("resolution is required")
	ErrSearchDisabled     = errors.New("ticket search is disabled")
)
