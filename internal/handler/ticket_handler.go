package handler

import (
	"net/http"

	"helpdesk-go/internal/model"
	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// TicketHandler 处理用户侧的工单接口。
type TicketHandler struct {
	ticketService service.TicketService
}

func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// Create 提交工单并返回推荐的解决方案。
func (h *TicketHandler) Create(c *gin.Context) {
	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：description 不能为空")
		return
	}
	res, err := h.ticketService.Create(c.Request.Context(), currentUser(c), req)
	if err != nil {
		log.Warnf("CreateTicket: failed, error: %v", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

func (h *TicketHandler) ListMine(c *gin.Context) {
	tickets, err := h.ticketService.ListMine(currentUser(c))
	if err != nil {
		log.Error("ListMyTickets: failed", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDTOs(tickets))
}

func (h *TicketHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ticket, err := h.ticketService.Get(currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ticket.ToDTO())
}

// ResolveRequest 是解决工单的请求体。
type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

func (h *TicketHandler) Resolve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：resolution 不能为空")
		return
	}
	ticket, err := h.ticketService.Resolve(c.Request.Context(), currentUser(c), id, req.Resolution)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ticket.ToDTO())
}

func (h *TicketHandler) Escalate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ticket, err := h.ticketService.Escalate(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ticket.ToDTO())
}

// Suggestions 为已有工单重新计算推荐，可通过 top_k 查询参数调整数量。
func (h *TicketHandler) Suggestions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	candidates, err := h.ticketService.Suggestions(currentUser(c), id, queryInt(c, "top_k", 0))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, candidates)
}

func toDTOs(tickets []model.Ticket) []model.TicketDTO {
	out := make([]model.TicketDTO, 0, len(tickets))
	for i := range tickets {
		out = append(out, tickets[i].ToDTO())
	}
	return out
}
