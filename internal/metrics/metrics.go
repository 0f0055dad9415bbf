package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 报销单提交数
	claimsSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claims_submitted_total",
			Help: "Total number of claims submitted",
		},
	)

	// 自动审批数
	claimsAutoApprovedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "claims_auto_approved_total",
			Help: "Total number of claims auto-approved by the workflow",
		},
	)

	// 人工审核操作数
	claimReviewsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_reviews_total",
			Help: "Total number of claim review operations",
		},
		[]string{"status"}, // approved, rejected
	)

	// 规则命中数
	workflowRuleMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_rule_matches_total",
			Help: "Total number of workflow rule matches",
		},
		[]string{"rule"},
	)

	// 通知投递数
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Total number of notification deliveries",
		},
		[]string{"sink", "result"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// 报销单状态分布
	claimsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "claims_by_status",
			Help: "Number of claims by status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(claimsSubmittedTotal)
	prometheus.MustRegister(claimsAutoApprovedTotal)
	prometheus.MustRegister(claimReviewsTotal)
	prometheus.MustRegister(workflowRuleMatchesTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(claimsByStatus)
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordClaimSubmitted 记录报销单提交
func RecordClaimSubmitted(autoApproved bool) {
	claimsSubmittedTotal.Inc()
	if autoApproved {
		claimsAutoApprovedTotal.Inc()
	}
}

// RecordReview 记录人工审核
func RecordReview(status string) {
	claimReviewsTotal.WithLabelValues(status).Inc()
}

// RecordRuleMatch 记录规则命中
func RecordRuleMatch(rule string) {
	workflowRuleMatchesTotal.WithLabelValues(rule).Inc()
}

// RecordNotification 记录通知投递结果
func RecordNotification(sink string, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	notificationsTotal.WithLabelValues(sink, result).Inc()
}

// RecordNotificationDropped 记录队列已满被丢弃的通知
func RecordNotificationDropped() {
	notificationsTotal.WithLabelValues("queue", "dropped").Inc()
}

// UpdateClaimsByStatus 更新报销单状态分布
func UpdateClaimsByStatus(status string, count float64) {
	claimsByStatus.WithLabelValues(status).Set(count)
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))

	return nil
}
