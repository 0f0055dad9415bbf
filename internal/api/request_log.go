package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/metrics"
	"github.com/sirupsen/logrus"
)

// RequestLogMiddleware 请求日志中间件
func RequestLogMiddleware(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		// 使用路由模板作为指标标签,避免 id 造成标签爆炸
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordAPIRequest(method, path, status, latency.Seconds())

		// 使用结构化日志记录请求信息
		entry := logger.WithFields(logrus.Fields{
			"request_id": c.GetString(ContextKeyRequestID),
			"method":     method,
			"path":       c.Request.URL.Path,
			"route":      path,
			"status":     status,
			"latency":    latency.String(),
			"ip":         c.ClientIP(),
		})

		// 根据状态码选择日志级别
		if status >= 500 {
			entry.Error("API request")
		} else if status >= 400 {
			entry.Warn("API request")
		} else {
			entry.Info("API request")
		}
	}
}
