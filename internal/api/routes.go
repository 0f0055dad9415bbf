package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/auth"
	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/service"
	"github.com/mautops/claims-gin/internal/websocket"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config    *config.Config
	Logger    *logrus.Logger
	DB        *gorm.DB
	Hub       *websocket.Hub
	Claims    service.ClaimService
	Analytics service.AnalyticsService
	Engine    *workflow.Engine
	Counter   ClaimCounter
	Validator *auth.KeycloakTokenValidator // 为 nil 时不解析审核人身份
}

// SetupRoutesWithConfig 配置路由
func SetupRoutesWithConfig(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing.ServiceName))
	}
	router.Use(RequestLogMiddleware(logger))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(deps.DB, deps.Hub, deps.Counter)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// 已上传的附件
	if cfg.Upload.Dir != "" {
		router.Static("/uploads", cfg.Upload.Dir)
	}

	// 实时通知
	if deps.Hub != nil {
		router.GET("/ws", websocket.WebSocketHandler(deps.Hub, logger))
		if deps.Claims != nil {
			router.GET("/sse/claims/:token", SSEHandler(deps.Hub, deps.Claims))
		}
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Burst))
	}
	if deps.Validator != nil {
		v1.Use(auth.ReviewerIdentityMiddleware(deps.Validator))
	}

	if deps.Claims != nil {
		claimController := NewClaimController(deps.Claims, cfg.Upload.MaxSize)
		claims := v1.Group("/claims")
		{
			claims.POST("", claimController.Submit)
			claims.GET("", claimController.List)
			claims.GET("/recent", claimController.Recent)
			claims.GET("/track/:token", claimController.Track)
			claims.POST("/batch/approve", claimController.BatchApprove)
			claims.GET("/:id", claimController.Get)
			claims.GET("/:id/history", claimController.History)
			claims.PUT("/:id/status", claimController.UpdateStatus)
			claims.POST("/:id/approve", claimController.Approve)
			claims.POST("/:id/reject", claimController.Reject)
		}
	}

	if deps.Claims != nil && deps.Engine != nil {
		workflowController := NewWorkflowController(deps.Claims, deps.Engine)
		wf := v1.Group("/workflow")
		{
			wf.POST("/evaluate", workflowController.Evaluate)
			wf.GET("/rules", workflowController.Rules)
		}
	}

	if deps.Analytics != nil {
		analyticsController := NewAnalyticsController(deps.Analytics)
		analytics := v1.Group("/analytics")
		{
			analytics.GET("/summary", analyticsController.Summary)
			analytics.GET("/workflow", analyticsController.Workflow)
			analytics.GET("/lecturers", analyticsController.Lecturers)
			analytics.GET("/payments", analyticsController.Payments)
			analytics.GET("/monthly", analyticsController.Monthly)
		}
	}

	return router
}
