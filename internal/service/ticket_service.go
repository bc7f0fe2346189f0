package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/repository"
	"helpdesk-go/pkg/es"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/notify"
	"helpdesk-go/pkg/tasks"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const reasonNoSuggestions = "no matching historical resolution"

// RebuildDispatcher 投递语料重建任务，可以是 Kafka 生产者或进程内执行器。
type RebuildDispatcher interface {
	Dispatch(ctx context.Context, task tasks.CorpusRebuildTask) error
}

// NewRebuildTask 创建一个带唯一 ID 的重建任务。
func NewRebuildTask(reason string, ticketID uint) tasks.CorpusRebuildTask {
	return tasks.CorpusRebuildTask{
		TaskID:      uuid.NewString(),
		Reason:      reason,
		TicketID:    ticketID,
		RequestedAt: time.Now(),
	}
}

// CreateTicketRequest 是提交工单的参数。
type CreateTicketRequest struct {
	Description string `json:"description" binding:"required"`
	Category    string `json:"category"`
	TicketType  string `json:"ticket_type"`
	Subject     string `json:"subject"`
	Priority    string `json:"priority"`
}

// TicketWithSuggestions 是提交工单后的结果。
type TicketWithSuggestions struct {
	Ticket            model.TicketDTO       `json:"ticket"`
	Recommendations   []recommend.Candidate `json:"recommendations"`
	NeedsHumanSupport bool                  `json:"needsHumanSupport"`
}

// TicketService 定义用户侧的工单操作。
type TicketService interface {
	Create(ctx context.Context, user *model.User, req CreateTicketRequest) (*TicketWithSuggestions, error)
	ListMine(user *model.User) ([]model.Ticket, error)
	Get(user *model.User, id uint) (*model.Ticket, error)
	Resolve(ctx context.Context, user *model.User, id uint, resolution string) (*model.Ticket, error)
	Escalate(ctx context.Context, user *model.User, id uint) (*model.Ticket, error)
	Suggestions(user *model.User, id uint, topK int) ([]recommend.Candidate, error)
}

type ticketService struct {
	tickets    repository.TicketRepository
	recommend  RecommendationService
	notifier   notify.Notifier
	dispatcher RebuildDispatcher
	index      es.TicketIndex
}

// NewTicketService 创建 TicketService。index 为 nil 时不写入检索索引。
func NewTicketService(
	tickets repository.TicketRepository,
	recommendSvc RecommendationService,
	notifier notify.Notifier,
	dispatcher RebuildDispatcher,
	index es.TicketIndex,
) TicketService {
	return &ticketService{
		tickets:    tickets,
		recommend:  recommendSvc,
		notifier:   notifier,
		dispatcher: dispatcher,
		index:      index,
	}
}

// Create 保存工单并计算推荐。没有任何推荐时通知支持团队。
func (s *ticketService) Create(ctx context.Context, user *model.User, req CreateTicketRequest) (*TicketWithSuggestions, error) {
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}
	priority := strings.TrimSpace(req.Priority)
	if priority == "" {
		priority = model.PriorityLow
	}
	if !model.ValidPriority(priority) {
		return nil, ErrInvalidPriority
	}

	ticket := &model.Ticket{
		UserID:      user.ID,
		Description: desc,
		Category:    strings.TrimSpace(req.Category),
		TicketType:  strings.TrimSpace(req.TicketType),
		Subject:     strings.TrimSpace(req.Subject),
		Priority:    priority,
		Status:      model.StatusOpen,
	}
	if err := s.tickets.Create(ticket); err != nil {
		return nil, err
	}
	log.Infof("[TicketService] 工单已创建, ticketID: %d, user: %s", ticket.ID, user.Username)
	s.indexTicket(ctx, ticket)

	candidates := s.recommend.Recommend(queryFor(ticket, 0))
	res := &TicketWithSuggestions{Ticket: ticket.ToDTO(), Recommendations: candidates}
	if len(candidates) == 0 {
		res.NeedsHumanSupport = true
		s.notify(ctx, ticket, reasonNoSuggestions)
	}
	return res, nil
}

func (s *ticketService) ListMine(user *model.User) ([]model.Ticket, error) {
	return s.tickets.FindByUser(user.ID)
}

// Get 返回工单，只有提交者和管理员可以查看。
func (s *ticketService) Get(user *model.User, id uint) (*model.Ticket, error) {
	ticket, err := s.tickets.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	if ticket.UserID != user.ID && !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return ticket, nil
}

// Resolve 关闭工单，把它写入历史记录并触发语料重建。
func (s *ticketService) Resolve(ctx context.Context, user *model.User, id uint, resolution string) (*model.Ticket, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, ErrEmptyResolution
	}
	ticket, err := s.Get(user, id)
	if err != nil {
		return nil, err
	}
	// 只看是否已有解决方案：管理员可能先把状态改为 Resolved 再补充解决方案
	if ticket.Resolution != "" {
		return nil, ErrAlreadyResolved
	}

	ticket.Resolution = resolution
	ticket.Status = model.StatusResolved
	if ticket.ResolvedAt == nil {
		now := time.Now()
		ticket.ResolvedAt = &now
	}
	record := &model.HistoricalRecord{
		Category:   ticket.Category,
		TicketType: ticket.TicketType,
		Subject:    ticket.Subject,
		Issue:      strings.TrimSpace(strings.TrimPrefix(ticket.Description, model.EscalationNote)),
		Resolution: resolution,
		Priority:   ticket.Priority,
	}
	if err := s.tickets.Resolve(ticket, record); err != nil {
		log.Errorf("[TicketService] 保存解决方案失败, ticketID: %d, error: %v", ticket.ID, err)
		return nil, fmt.Errorf("保存工单 %d 的解决方案失败: %w", ticket.ID, err)
	}
	log.Infof("[TicketService] 工单已解决, ticketID: %d, by: %s", ticket.ID, user.Username)

	s.dispatch(ctx, NewRebuildTask(tasks.ReasonTicketResolved, ticket.ID))
	s.indexTicket(ctx, ticket)
	return ticket, nil
}

// Escalate 将工单升级为人工处理：优先级改为 High，状态回到 Open，描述前加升级标记。
func (s *ticketService) Escalate(ctx context.Context, user *model.User, id uint) (*model.Ticket, error) {
	ticket, err := s.Get(user, id)
	if err != nil {
		return nil, err
	}
	if ticket.Status == model.StatusResolved {
		return nil, ErrAlreadyResolved
	}
	ticket.Priority = model.PriorityHigh
	ticket.Status = model.StatusOpen
	if !strings.HasPrefix(ticket.Description, model.EscalationNote) {
		ticket.Description = model.EscalationNote + " " + ticket.Description
	}
	if err := s.tickets.Update(ticket); err != nil {
		return nil, err
	}
	s.notify(ctx, ticket, "escalated by "+user.Username)
	s.indexTicket(ctx, ticket)
	return ticket, nil
}

// Suggestions 为已存在的工单重新计算推荐。
func (s *ticketService) Suggestions(user *model.User, id uint, topK int) ([]recommend.Candidate, error) {
	ticket, err := s.Get(user, id)
	if err != nil {
		return nil, err
	}
	return s.recommend.Recommend(queryFor(ticket, topK)), nil
}

func queryFor(t *model.Ticket, topK int) recommend.Query {
	return recommend.Query{
		Description: strings.TrimSpace(strings.TrimPrefix(t.Description, model.EscalationNote)),
		Category:    t.Category,
		TicketType:  t.TicketType,
		Subject:     t.Subject,
		Priority:    t.Priority,
		TopK:        topK,
	}
}

func (s *ticketService) notify(ctx context.Context, ticket *model.Ticket, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Escalated(ctx, ticket, reason); err != nil {
		log.Warnf("[TicketService] 发送升级通知失败, ticketID: %d, error: %v", ticket.ID, err)
	}
}

func (s *ticketService) dispatch(ctx context.Context, task tasks.CorpusRebuildTask) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		log.Errorf("[TicketService] 投递语料重建任务失败, taskID: %s, error: %v", task.TaskID, err)
	}
}

func (s *ticketService) indexTicket(ctx context.Context, ticket *model.Ticket) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexTicket(ctx, ticket); err != nil {
		log.Warnf("[TicketService] 写入工单索引失败, ticketID: %d, error: %v", ticket.ID, err)
	}
}
