package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/service"
)

// AnalyticsController 统计控制器
type AnalyticsController struct {
	analytics service.AnalyticsService
}

// NewAnalyticsController 创建统计控制器
func NewAnalyticsController(analytics service.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// Summary 报销单汇总
func (c *AnalyticsController) Summary(ctx *gin.Context) {
	Success(ctx, c.analytics.Summary())
}

// Workflow 审批流程分析
func (c *AnalyticsController) Workflow(ctx *gin.Context) {
	Success(ctx, c.analytics.WorkflowAnalysis())
}

// Lecturers 讲师汇总
func (c *AnalyticsController) Lecturers(ctx *gin.Context) {
	lecturers := c.analytics.Lecturers()
	List(ctx, lecturers, len(lecturers))
}

// Payments 付款汇总
func (c *AnalyticsController) Payments(ctx *gin.Context) {
	Success(ctx, c.analytics.Payments())
}

// Monthly 月度统计
func (c *AnalyticsController) Monthly(ctx *gin.Context) {
	months := c.analytics.Monthly()
	List(ctx, months, len(months))
}
