package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/log"
	"helpdesk-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// completionMessage 在每次流式回答结束时发送。
type completionMessage struct {
	Type                string      `json:"type"`
	Status              string      `json:"status"`
	Message             string      `json:"message,omitempty"`
	BaseRecommendations interface{} `json:"base_recommendations"`
	Timestamp           int64       `json:"timestamp"`
	Date                string      `json:"date"`
}

// SuggestionHandler 通过 WebSocket 流式推送增强后的建议。
type SuggestionHandler struct {
	recommendService service.RecommendationService
	userService      service.UserService
	jwtManager       *token.JWTManager
}

func NewSuggestionHandler(recommendService service.RecommendationService, userService service.UserService, jwtManager *token.JWTManager) *SuggestionHandler {
	return &SuggestionHandler{
		recommendService: recommendService,
		userService:      userService,
		jwtManager:       jwtManager,
	}
}

// Handle 处理一个 WebSocket 连接。每条入站 JSON 消息是一次查询。
func (h *SuggestionHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	claims, err := h.jwtManager.VerifyToken(tokenString)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "无效的 token")
		return
	}
	if revoked, _ := h.userService.IsTokenRevoked(c.Request.Context(), tokenString); revoked {
		respondError(c, http.StatusUnauthorized, "token 已登出")
		return
	}
	if _, err := h.userService.GetProfile(claims.Username); err != nil {
		respondError(c, http.StatusUnauthorized, "用户不存在")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	log.Infof("WebSocket 连接已建立，用户: %s", claims.Username)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		var req RecommendationRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeJSON(conn, map[string]string{"error": "消息必须是 JSON 格式的查询"})
			continue
		}

		res := h.recommendService.StreamEnhance(c.Request.Context(), req.query(), service.ChunkWriter{Conn: conn})
		done := completionMessage{
			Type:                "completion",
			Status:              res.Status,
			BaseRecommendations: res.BaseRecommendations,
			Timestamp:           time.Now().UnixMilli(),
			Date:                time.Now().Format("2006-01-02T15:04:05"),
		}
		if res.Status != service.EnhanceStatusOK {
			done.Message = res.EnhancedResolution
		}
		if err := writeJSON(conn, done); err != nil {
			log.Warnf("发送完成通知失败: %v", err)
			return
		}
	}
}

func writeJSON(conn *websocket.Conn, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}
