package handler

import (
	"net/http"

	"helpdesk-go/internal/recommend"
	"helpdesk-go/internal/service"

	"github.com/gin-gonic/gin"
)

// RecommendationRequest 是推荐接口的请求体，也是 WebSocket 上每条消息的格式。
type RecommendationRequest struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	TicketType  string `json:"ticket_type"`
	Subject     string `json:"subject"`
	Priority    string `json:"priority"`
	TopK        int    `json:"top_k"`
}

func (r RecommendationRequest) query() recommend.Query {
	return recommend.Query{
		Description: r.Description,
		Category:    r.Category,
		TicketType:  r.TicketType,
		Subject:     r.Subject,
		Priority:    r.Priority,
		TopK:        r.TopK,
	}
}

// RecommendationHandler 提供无需建工单的推荐接口。
type RecommendationHandler struct {
	recommendService service.RecommendationService
}

func NewRecommendationHandler(recommendService service.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recommendService: recommendService}
}

// Recommend 返回排序后的候选方案和纯文本摘要。
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	candidates := h.recommendService.Recommend(req.query())
	respondOK(c, gin.H{
		"recommendations": candidates,
		"summary":         recommend.Summary(candidates),
	})
}

// Enhanced 返回文本生成整合后的建议；生成失败时仍返回 200 与原始候选。
func (h *RecommendationHandler) Enhanced(c *gin.Context) {
	var req RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "无效的请求负载")
		return
	}
	respondOK(c, h.recommendService.Enhance(c.Request.Context(), req.query()))
}
