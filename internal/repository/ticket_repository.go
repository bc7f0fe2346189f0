package repository

import (
	"helpdesk-go/internal/model"

	"gorm.io/gorm"
)

// CategoryCount 是按分类聚合的工单数量。
type CategoryCount struct {
	Category string
	Count    int64
}

// TicketRepository 定义工单的持久化操作。
type TicketRepository interface {
	Create(ticket *model.Ticket) error
	FindByID(id uint) (*model.Ticket, error)
	FindByUser(userID uint) ([]model.Ticket, error)
	FindAll(status string) ([]model.Ticket, error)
	Update(ticket *model.Ticket) error
	Resolve(ticket *model.Ticket, record *model.HistoricalRecord) error
	CountByStatus() (map[string]int64, error)
	MostCommonCategory() (*CategoryCount, error)
	FindResolved() ([]model.Ticket, error)
}

type ticketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建一个新的 TicketRepository 实例。
func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &ticketRepository{db: db}
}

func (r *ticketRepository) Create(ticket *model.Ticket) error {
	return r.db.Create(ticket).Error
}

func (r *ticketRepository) FindByID(id uint) (*model.Ticket, error) {
	var t model.Ticket
	if err := r.db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// FindByUser 返回用户自己的工单，按创建时间倒序。
func (r *ticketRepository) FindByUser(userID uint) ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.db.Where("user_id = ?", userID).Order("created_at desc, id desc").Find(&tickets).Error
	return tickets, err
}

// FindAll 返回所有工单，status 非空时按状态过滤。
func (r *ticketRepository) FindAll(status string) ([]model.Ticket, error) {
	var tickets []model.Ticket
	db := r.db.Model(&model.Ticket{})
	if status != "" {
		db = db.Where("status = ?", status)
	}
	err := db.Order("created_at desc, id desc").Find(&tickets).Error
	return tickets, err
}

func (r *ticketRepository) Update(ticket *model.Ticket) error {
	return r.db.Save(ticket).Error
}

// Resolve 在同一事务中保存已解决的工单并写入对应的历史记录，任一失败则全部回滚。
func (r *ticketRepository) Resolve(ticket *model.Ticket, record *model.HistoricalRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(ticket).Error; err != nil {
			return err
		}
		id := ticket.ID
		record.TicketID = &id
		return tx.Create(record).Error
	})
}

func (r *ticketRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := r.db.Model(&model.Ticket{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out, nil
}

// MostCommonCategory 返回工单数最多的分类，没有工单时返回 nil。
func (r *ticketRepository) MostCommonCategory() (*CategoryCount, error) {
	var rows []CategoryCount
	err := r.db.Model(&model.Ticket{}).
		Select("category, count(*) as count").
		Where("category <> ''").
		Group("category").
		Order("count desc, category").
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *ticketRepository) FindResolved() ([]model.Ticket, error) {
	var tickets []model.Ticket
	err := r.db.Where("resolved_at IS NOT NULL").Find(&tickets).Error
	return tickets, err
}
