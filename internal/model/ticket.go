package model

import "time"

// 工单状态
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
	StatusClosed     = "Closed"
)

// 工单优先级
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// EscalationNote 是升级人工处理时写在描述前面的标记。
const EscalationNote = "[ESCALATED - NEEDS HUMAN SUPPORT]"

// Ticket 对应于数据库中的 'tickets' 表。
type Ticket struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"index;not null" json:"userId"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Category    string     `gorm:"type:varchar(50);index" json:"category"`
	TicketType  string     `gorm:"type:varchar(100)" json:"ticketType"`
	Subject     string     `gorm:"type:varchar(255)" json:"subject"`
	Priority    string     `gorm:"type:varchar(20);not null;default:Low" json:"priority"`
	Status      string     `gorm:"type:varchar(20);not null;default:Open;index" json:"status"`
	Resolution  string     `gorm:"type:text" json:"resolution"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ResolvedAt  *time.Time `gorm:"default:null" json:"resolvedAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (Ticket) TableName() string {
	return "tickets"
}

// ValidStatus 报告 status 是否为合法的工单状态。
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// ValidPriority 报告 priority 是否为合法的优先级。
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// TicketDTO 是返回给前端的工单结构，时间使用本地格式。
type TicketDTO struct {
	ID          uint       `json:"id"`
	UserID      uint       `json:"userId"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	TicketType  string     `json:"ticketType"`
	Subject     string     `json:"subject"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Resolution  string     `json:"resolution,omitempty"`
	CreatedAt   LocalTime  `json:"createdAt"`
	ResolvedAt  *LocalTime `json:"resolvedAt,omitempty"`
}

// ToDTO 转换为对外的 DTO。
func (t *Ticket) ToDTO() TicketDTO {
	return TicketDTO{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Category:    t.Category,
		TicketType:  t.TicketType,
		Subject:     t.Subject,
		Priority:    t.Priority,
		Status:      t.Status,
		Resolution:  t.Resolution,
		CreatedAt:   LocalTime(t.CreatedAt),
		ResolvedAt:  LocalTimePtr(t.ResolvedAt),
	}
}
