package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/es"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/tasks"

	"gorm.io/gorm"
)

// Analytics 是管理端的工单统计。
type Analytics struct {
	TotalTickets                int64            `json:"total_tickets"`
	ByStatus                    map[string]int64 `json:"by_status"`
	MostCommonCategory          string           `json:"most_common_category"`
	MostCommonCategoryCount     int64            `json:"most_common_category_count"`
	AverageResolutionTimeHours  float64          `json:"average_resolution_time_hours"`
	ResolvedTicketsWithDuration int              `json:"resolved_tickets_with_duration"`
}

// RecordListResponse 是历史记录分页结果。
type RecordListResponse struct {
	Content       []model.HistoricalRecord `json:"content"`
	TotalElements int64                    `json:"totalElements"`
	Size          int                      `json:"size"`
	Number        int                      `json:"number"`
}

// AddRecordRequest 是管理员手工添加历史记录的参数。
type AddRecordRequest struct {
	Category   string `json:"category" binding:"required"`
	Issue      string `json:"issue" binding:"required"`
	Resolution string `json:"resolution" binding:"required"`
	TicketType string `json:"ticket_type"`
	Subject    string `json:"subject"`
	Priority   string `json:"priority"`
}

// AdminService 接口定义了所有管理员相关的业务操作。
type AdminService interface {
	RaiseTicket(ctx context.Context, userID uint, req CreateTicketRequest) (*TicketWithSuggestions, error)
	ListTickets(status string) ([]model.Ticket, error)
	UpdateStatus(ctx context.Context, id uint, status string) (*model.Ticket, error)
	AddResolution(ctx context.Context, admin *model.User, id uint, resolution string) (*model.Ticket, error)

	ListRecords(page, size int) (*RecordListResponse, error)
	AddRecord(ctx context.Context, req AddRecordRequest) (*model.HistoricalRecord, error)

	Analytics() (*Analytics, error)
	SearchTickets(ctx context.Context, query string, size int) ([]es.TicketHit, error)

	RebuildCorpus(ctx context.Context) (CorpusStats, error)
	CorpusStats() CorpusStats
}

type adminService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	records    repository.RecordRepository
	ticketSvc  TicketService
	recommend  RecommendationService
	dispatcher RebuildDispatcher
	index      es.TicketIndex
}

// NewAdminService 创建一个新的 AdminService 实例。index 为 nil 时检索接口返回 ErrSearchDisabled。
func NewAdminService(
	users repository.UserRepository,
	tickets repository.TicketRepository,
	records repository.RecordRepository,
	ticketSvc TicketService,
	recommendSvc RecommendationService,
	dispatcher RebuildDispatcher,
	index es.TicketIndex,
) AdminService {
	return &adminService{
		users:      users,
		tickets:    tickets,
		records:    records,
		ticketSvc:  ticketSvc,
		recommend:  recommendSvc,
		dispatcher: dispatcher,
		index:      index,
	}
}

// RaiseTicket 代用户提交工单，推荐与人工支持标记与用户自己提交时一致。
func (s *adminService) RaiseTicket(ctx context.Context, userID uint, req CreateTicketRequest) (*TicketWithSuggestions, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.ticketSvc.Create(ctx, user, req)
}

func (s *adminService) ListTickets(status string) ([]model.Ticket, error) {
	if status != "" && !model.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	return s.tickets.FindAll(status)
}

// UpdateStatus 修改工单状态。改为 Resolved 只记录解决时间，解决方案仍通过 AddResolution 补充并进入语料。
func (s *adminService) UpdateStatus(ctx context.Context, id uint, status string) (*model.Ticket, error) {
	if !model.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	ticket, err := s.tickets.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	ticket.Status = status
	switch {
	case status != model.StatusResolved:
		ticket.ResolvedAt = nil
	case ticket.ResolvedAt == nil:
		now := time.Now()
		ticket.ResolvedAt = &now
	}
	if err := s.tickets.Update(ticket); err != nil {
		return nil, err
	}
	log.Infof("[AdminService] 工单状态已更新, ticketID: %d, status: %s", ticket.ID, status)
	if s.index != nil {
		if err := s.index.IndexTicket(ctx, ticket); err != nil {
			log.Warnf("[AdminService] 写入工单索引失败, ticketID: %d, error: %v", ticket.ID, err)
		}
	}
	return ticket, nil
}

func (s *adminService) AddResolution(ctx context.Context, admin *model.User, id uint, resolution string) (*model.Ticket, error) {
	return s.ticketSvc.Resolve(ctx, admin, id, resolution)
}

func (s *adminService) ListRecords(page, size int) (*RecordListResponse, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	records, total, err := s.records.FindWithPagination((page-1)*size, size)
	if err != nil {
		return nil, err
	}
	return &RecordListResponse{Content: records, TotalElements: total, Size: size, Number: page}, nil
}

// AddRecord 写入一条历史记录并触发语料重建。
func (s *adminService) AddRecord(ctx context.Context, req AddRecordRequest) (*model.HistoricalRecord, error) {
	if strings.TrimSpace(req.Issue) == "" {
		return nil, ErrEmptyDescription
	}
	if strings.TrimSpace(req.Resolution) == "" {
		return nil, ErrEmptyResolution
	}
	if req.Priority != "" && !model.ValidPriority(req.Priority) {
		return nil, ErrInvalidPriority
	}
	record := &model.HistoricalRecord{
		Category:   strings.TrimSpace(req.Category),
		TicketType: strings.TrimSpace(req.TicketType),
		Subject:    strings.TrimSpace(req.Subject),
		Issue:      strings.TrimSpace(req.Issue),
		Resolution: strings.TrimSpace(req.Resolution),
		Priority:   req.Priority,
	}
	if err := s.records.Create(record); err != nil {
		return nil, err
	}
	if s.dispatcher != nil {
		task := NewRebuildTask(tasks.ReasonRecordAdded, 0)
		if err := s.dispatcher.Dispatch(ctx, task); err != nil {
			log.Errorf("[AdminService] 投递语料重建任务失败, taskID: %s, error: %v", task.TaskID, err)
		}
	}
	return record, nil
}

// Analytics 统计工单总数、各状态数量、最常见分类与平均解决时长（小时，保留两位小数）。
func (s *adminService) Analytics() (*Analytics, error) {
	byStatus, err := s.tickets.CountByStatus()
	if err != nil {
		return nil, err
	}
	out := &Analytics{ByStatus: byStatus}
	for _, n := range byStatus {
		out.TotalTickets += n
	}

	top, err := s.tickets.MostCommonCategory()
	if err != nil {
		return nil, err
	}
	if top != nil {
		out.MostCommonCategory = top.Category
		out.MostCommonCategoryCount = top.Count
	}

	resolved, err := s.tickets.FindResolved()
	if err != nil {
		return nil, err
	}
	var hours float64
	for _, t := range resolved {
		if t.ResolvedAt == nil {
			continue
		}
		hours += t.ResolvedAt.Sub(t.CreatedAt).Hours()
		out.ResolvedTicketsWithDuration++
	}
	if out.ResolvedTicketsWithDuration > 0 {
		out.AverageResolutionTimeHours = math.Round(hours/float64(out.ResolvedTicketsWithDuration)*100) / 100
	}
	return out, nil
}

func (s *adminService) SearchTickets(ctx context.Context, query string, size int) ([]es.TicketHit, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	if size <= 0 {
		size = 10
	}
	return s.index.SearchTickets(ctx, query, size)
}

func (s *adminService) RebuildCorpus(ctx context.Context) (CorpusStats, error) {
	return s.recommend.Rebuild(ctx)
}

func (s *adminService) CorpusStats() CorpusStats {
	return s.recommend.Stats()
}
