// Package model 定义了与数据库表对应的 Go 结构体。
package model

import "time"

// 用户角色
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User 对应于数据库中的 'users' 表。
type User struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username   string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password   string    `gorm:"type:varchar(255);not null" json:"-"`
	Email      string    `gorm:"type:varchar(255)" json:"email"`
	Department string    `gorm:"type:varchar(100)" json:"department"`
	Role       string    `gorm:"type:varchar(20);not null;default:USER" json:"role"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (User) TableName() string {
	return "users"
}

// IsAdmin 报告用户是否为管理员。
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
