package handler

import (
	"helpdesk-go/internal/middleware"
	"helpdesk-go/internal/service"
	"helpdesk-go/pkg/token"

	"github.com/gin-gonic/gin"
)

// Services 汇总路由需要的业务层依赖。
type Services struct {
	User           service.UserService
	Ticket         service.TicketService
	Admin          service.AdminService
	Recommendation service.RecommendationService
	JWT            *token.JWTManager
}

// RegisterRoutes 在 r 上注册全部 HTTP 与 WebSocket 路由。
func RegisterRoutes(r *gin.Engine, s Services) {
	userHandler := NewUserHandler(s.User)
	ticketHandler := NewTicketHandler(s.Ticket)
	recommendHandler := NewRecommendationHandler(s.Recommendation)
	adminHandler := NewAdminHandler(s.Admin, s.User)
	authed := middleware.AuthMiddleware(s.JWT, s.User)

	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", NewAuthHandler(s.User).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)
			users.GET("/me", authed, userHandler.GetProfile)
			users.POST("/logout", authed, userHandler.Logout)
		}

		tickets := apiV1.Group("/tickets")
		tickets.Use(authed)
		{
			tickets.POST("", ticketHandler.Create)
			tickets.GET("", ticketHandler.ListMine)
			tickets.GET("/:id", ticketHandler.Get)
			tickets.PUT("/:id/resolve", ticketHandler.Resolve)
			tickets.PUT("/:id/escalate", ticketHandler.Escalate)
			tickets.GET("/:id/suggestions", ticketHandler.Suggestions)
		}

		recommendations := apiV1.Group("/recommendations")
		recommendations.Use(authed)
		{
			recommendations.POST("", recommendHandler.Recommend)
			recommendations.POST("/enhanced", recommendHandler.Enhanced)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(authed, middleware.AdminAuthMiddleware())
		{
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/tickets", adminHandler.ListTickets)
			admin.POST("/tickets", adminHandler.RaiseTicket)
			admin.GET("/tickets/search", adminHandler.SearchTickets)
			admin.PUT("/tickets/:id/status", adminHandler.UpdateStatus)
			admin.PUT("/tickets/:id/resolution", adminHandler.AddResolution)
			admin.GET("/records", adminHandler.ListRecords)
			admin.POST("/records", adminHandler.AddRecord)
			admin.GET("/analytics", adminHandler.Analytics)
			admin.POST("/corpus/rebuild", adminHandler.RebuildCorpus)
			admin.GET("/corpus/stats", adminHandler.CorpusStats)
		}
	}

	r.GET("/chat/recommendations/:token", NewSuggestionHandler(s.Recommendation, s.User, s.JWT).Handle)
}
