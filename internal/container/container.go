package container

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/claims-gin/internal/api"
	"github.com/mautops/claims-gin/internal/auth"
	"github.com/mautops/claims-gin/internal/config"
	"github.com/mautops/claims-gin/internal/database"
	"github.com/mautops/claims-gin/internal/metrics"
	"github.com/mautops/claims-gin/internal/notify"
	"github.com/mautops/claims-gin/internal/repository"
	"github.com/mautops/claims-gin/internal/service"
	"github.com/mautops/claims-gin/internal/storage"
	"github.com/mautops/claims-gin/internal/websocket"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、仓储、服务和通知组件
type Container struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB

	engine     *workflow.Engine
	claims     *repository.ClaimRepository
	files      *storage.LocalFileStore
	hub        *websocket.Hub
	nats       *notify.NATSPublisher
	dispatcher *notify.Dispatcher
	collector  *metrics.Collector

	claimService     service.ClaimService
	analyticsService service.AnalyticsService
	validator        *auth.KeycloakTokenValidator

	shutdownTracing func(context.Context) error
}

// PolicyFromConfig 根据配置构造规则阈值
func PolicyFromConfig(cfg config.WorkflowConfig) workflow.Policy {
	return workflow.Policy{
		AutoApproveMaxAmount: cfg.AutoApproveMaxAmount,
		AutoApproveMaxHours:  cfg.AutoApproveMaxHours,
		HighAmountThreshold:  cfg.HighAmountThreshold,
		OvertimeHours:        cfg.OvertimeHours,
		MinHourlyRate:        cfg.MinHourlyRate,
		MaxHourlyRate:        cfg.MaxHourlyRate,
	}
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件,失败时释放已创建的资源
func NewContainer(cfg *config.Config, logger *logrus.Logger) (_ *Container, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	c := &Container{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close()
		}
	}()

	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	c.db, err = database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err = database.Migrate(c.db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 规则引擎和报销单仓储
	c.engine = workflow.NewDefaultEngine(PolicyFromConfig(cfg.Workflow))
	orchestrator := workflow.NewOrchestrator(c.engine, logger.WithField("component", "workflow"))
	c.claims = repository.NewClaimRepository(orchestrator,
		repository.WithTerminalEnforcement(cfg.Workflow.EnforceTerminalStatus),
		repository.WithLogger(logger.WithField("component", "repository")),
	)
	if cfg.Claims.SeedDemo {
		n := c.claims.SeedDemo()
		logger.WithField("count", n).Info("demo claims seeded")
	}

	historyRepo := repository.NewStateHistoryRepository(c.db)
	auditRepo := repository.NewAuditLogRepository(c.db)
	eventRepo := repository.NewNotificationEventRepository(c.db)

	// 3. 附件存储
	c.files, err = storage.NewLocalFileStore(cfg.Upload.Dir, cfg.Upload.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	// 4. 通知: WebSocket/SSE Hub,可选 NATS
	c.hub = websocket.NewHub()
	go c.hub.Run()

	sinks := []notify.Sink{c.hub}
	if cfg.Notification.NATSURL != "" {
		c.nats, err = notify.NewNATSPublisher(cfg.Notification.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect nats: %w", err)
		}
		sinks = append(sinks, c.nats)
	}
	c.dispatcher = notify.NewDispatcher(notify.DispatcherConfig{
		Workers:   cfg.Notification.Workers,
		QueueSize: cfg.Notification.QueueSize,
	}, eventRepo, logger.WithField("component", "notify"), sinks...)
	c.dispatcher.Start()

	// 5. 服务
	auditSvc := service.NewAuditLogService(auditRepo)
	c.claimService = service.NewClaimService(service.ClaimServiceDeps{
		Claims:   c.claims,
		History:  historyRepo,
		Audit:    auditSvc,
		Files:    c.files,
		Notifier: c.dispatcher,
		Logger:   logger.WithField("component", "service"),
	})
	c.analyticsService = service.NewAnalyticsService(c.claims)

	// 6. 审核人身份,未配置 issuer 时不启用
	if cfg.Keycloak.Issuer != "" {
		c.validator = auth.NewKeycloakTokenValidator(cfg.Keycloak.Issuer, cfg.Keycloak.JWKSURL)
	}

	// 7. 链路追踪
	if cfg.Tracing.Enabled {
		c.shutdownTracing, err = api.InitTracing(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	// 8. 指标收集
	c.collector = metrics.NewCollector(c.db, c.claims, 15*time.Second)
	c.collector.Start()

	return c, nil
}

// Router 创建 HTTP 路由
func (c *Container) Router() *gin.Engine {
	return api.SetupRoutesWithConfig(api.RouterDeps{
		Config:    c.cfg,
		Logger:    c.logger,
		DB:        c.db,
		Hub:       c.hub,
		Claims:    c.claimService,
		Analytics: c.analyticsService,
		Engine:    c.engine,
		Counter:   c.claims,
		Validator: c.validator,
	})
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Claims 获取报销单仓储
func (c *Container) Claims() *repository.ClaimRepository {
	return c.claims
}

// ClaimService 获取报销单服务
func (c *Container) ClaimService() service.ClaimService {
	return c.claimService
}

// Hub 获取实时通知 Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Close 关闭容器,按依赖的反向顺序清理资源
func (c *Container) Close() error {
	var errs []error

	if c.collector != nil {
		c.collector.Stop()
	}
	// 先排空通知队列,再关闭各个 sink
	if c.dispatcher != nil {
		c.dispatcher.Stop()
	}
	if c.nats != nil {
		if err := c.nats.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close nats: %w", err))
		}
	}
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		cancel()
	}
	if c.db != nil {
		if err := database.Close(c.db); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
