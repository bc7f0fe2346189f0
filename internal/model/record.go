package model

import "time"

// HistoricalRecord 对应于 'historical_records' 表，是推荐引擎的语料。
type HistoricalRecord struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Category   string    `gorm:"type:varchar(50);index" json:"category"`
	TicketType string    `gorm:"type:varchar(100)" json:"ticket_type"`
	Subject    string    `gorm:"type:varchar(255)" json:"subject"`
	Issue      string    `gorm:"type:text;not null" json:"issue"`
	Resolution string    `gorm:"type:text;not null" json:"resolution"`
	Priority   string    `gorm:"type:varchar(20)" json:"priority"`
	TicketID   *uint     `gorm:"index" json:"ticket_id,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (HistoricalRecord) TableName() string {
	return "historical_records"
}
