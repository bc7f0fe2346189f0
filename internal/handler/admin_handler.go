package handler

import (
	"net/http"
	"strconv"
	"strings"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// AdminHandler 负责处理所有与管理员相关的 API 请求。
type AdminHandler struct {
	adminService service.AdminService
	userService  service.UserService
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(adminService service.AdminService, userService service.UserService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		userService:  userService,
	}
}

// ListUsers 分页列出用户，参数 page 从 1 开始。
func (h *AdminHandler) ListUsers(c *gin.Context) {
	list, err := h.userService.ListUsers(queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		log.Error("ListUsers: failed", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, list)
}

// RaiseTicket 代指定用户提交工单，user_id 通过查询参数传入。
func (h *AdminHandler) RaiseTicket(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 64)
	if err != nil || userID == 0 {
		respondError(c, http.StatusBadRequest, "无效的 user_id")
		return
	}
	var req service.CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：description 不能为空")
		return
	}
	res, err := h.adminService.RaiseTicket(c.Request.Context(), uint(userID), req)
	if err != nil {
		log.Warnf("[AdminHandler] 代用户 %d 提交工单失败: %v", userID, err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, res)
}

// ListTickets 列出所有工单，可按 status 过滤。
func (h *AdminHandler) ListTickets(c *gin.Context) {
	tickets, err := h.adminService.ListTickets(c.Query("status"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDTOs(tickets))
}

// UpdateStatusRequest 是修改工单状态的请求体。
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *AdminHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：status 不能为空")
		return
	}
	ticket, err := h.adminService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ticket.ToDTO())
}

func (h *AdminHandler) AddResolution(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：resolution 不能为空")
		return
	}
	ticket, err := h.adminService.AddResolution(c.Request.Context(), currentUser(c), id, req.Resolution)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, ticket.ToDTO())
}

func (h *AdminHandler) ListRecords(c *gin.Context) {
	page, err := h.adminService.ListRecords(queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, page)
}

func (h *AdminHandler) AddRecord(c *gin.Context) {
	var req service.AddRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载：category、issue、resolution 不能为空")
		return
	}
	record, err := h.adminService.AddRecord(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, record)
}

func (h *AdminHandler) Analytics(c *gin.Context) {
	a, err := h.adminService.Analytics()
	if err != nil {
		log.Error("Analytics: failed", err)
		respondServiceError(c, err)
		return
	}
	respondOK(c, a)
}

// SearchTickets 通过全文索引检索工单。
func (h *AdminHandler) SearchTickets(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondError(c, http.StatusBadRequest, "查询参数 q 不能为空")
		return
	}
	hits, err := h.adminService.SearchTickets(c.Request.Context(), q, queryInt(c, "size", 10))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, hits)
}

// RebuildCorpus 立即重建语料；失败时旧快照继续提供服务。
func (h *AdminHandler) RebuildCorpus(c *gin.Context) {
	stats, err := h.adminService.RebuildCorpus(c.Request.Context())
	if err != nil {
		log.Error("RebuildCorpus: failed", err)
		respondError(c, http.StatusInternalServerError, "语料重建失败，继续使用当前快照")
		return
	}
	respondOK(c, stats)
}

func (h *AdminHandler) CorpusStats(c *gin.Context) {
	respondOK(c, h.adminService.CorpusStats())
}
