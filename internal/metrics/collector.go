package metrics

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StatusCounter 提供按状态统计的报销单数量
type StatusCounter interface {
	CountByStatus() map[string]int
}

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB
	claims   StatusCounter
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, claims StatusCounter, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		claims:   claims,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// CollectOnce 立即收集一次
func (c *Collector) CollectOnce() {
	if c.db != nil {
		_ = UpdateDatabaseConnections(c.db)
	}
	if c.claims != nil {
		for status, count := range c.claims.CountByStatus() {
			UpdateClaimsByStatus(status, float64(count))
		}
	}
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce()
		}
	}
}
