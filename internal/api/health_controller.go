package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/websocket"
	"gorm.io/gorm"
)

// ClaimCounter 报销单计数
type ClaimCounter interface {
	Count() int
}

// HealthController 健康检查控制器
type HealthController struct {
	db     *gorm.DB
	hub    *websocket.Hub
	claims ClaimCounter
}

// NewHealthController 创建健康检查控制器,参数均可为 nil
func NewHealthController(db *gorm.DB, hub *websocket.Hub, claims ClaimCounter) *HealthController {
	return &HealthController{
		db:     db,
		hub:    hub,
		claims: claims,
	}
}

// Check 健康检查
// 只有数据库不可用时返回 503,审计库不可用不影响报销单的内存存储,但需要告警
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]interface{})

	// 检查数据库连接
	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	if c.hub != nil {
		checks["realtime_clients"] = c.hub.GetClientCount()
	}
	if c.claims != nil {
		checks["claims"] = c.claims.Count()
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}
