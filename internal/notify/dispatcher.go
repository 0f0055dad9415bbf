package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/metrics"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/repository"
	"github.com/sirupsen/logrus"
)

// DispatcherConfig 分发器配置
type DispatcherConfig struct {
	Workers        int
	QueueSize      int
	DeliverTimeout time.Duration
}

type envelope struct {
	topic string
	event Event
}

// Dispatcher 异步通知分发器
// Notify 从不阻塞调用方: 队列满时丢弃并记录告警。投递结果只写入事件记录,不影响报销单。
type Dispatcher struct {
	sinks   []Sink
	events  repository.NotificationEventRepository
	logger  logrus.FieldLogger
	timeout time.Duration

	queue   chan envelope
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewDispatcher 创建通知分发器,events 可以为 nil
func NewDispatcher(cfg DispatcherConfig, events repository.NotificationEventRepository, logger logrus.FieldLogger, sinks ...Sink) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 5 * time.Second
	}
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Dispatcher{
		sinks:   sinks,
		events:  events,
		logger:  logger,
		timeout: cfg.DeliverTimeout,
		queue:   make(chan envelope, cfg.QueueSize),
		workers: cfg.Workers,
	}
}

// Start 启动 worker
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop 停止接收新事件,等待队列中的事件投递完成
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}

// Notify 事件入队,返回是否成功入队
func (d *Dispatcher) Notify(topic string, evt Event) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	select {
	case d.queue <- envelope{topic: topic, event: evt}:
		return true
	default:
		metrics.RecordNotificationDropped()
		d.logger.WithFields(logrus.Fields{
			"topic":    topic,
			"type":     evt.Type,
			"claim_id": evt.ClaimID,
		}).Warn("notification queue full, dropping event")
		return false
	}
}

// Publish 实现 Publisher,便于 Dispatcher 作为统一入口
func (d *Dispatcher) Publish(_ context.Context, topic string, evt Event) error {
	if !d.Notify(topic, evt) {
		return errors.New("notification not queued")
	}
	return nil
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for env := range d.queue {
		d.deliver(env)
	}
}

// deliver 投递到所有目标并记录结果
func (d *Dispatcher) deliver(env envelope) {
	record := d.persist(env)

	var failures []error
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := sink.Publish(ctx, env.topic, env.event)
		cancel()

		metrics.RecordNotification(sink.Name(), err)
		if err != nil {
			failures = append(failures, err)
			d.logger.WithError(err).WithFields(logrus.Fields{
				"sink":     sink.Name(),
				"topic":    env.topic,
				"claim_id": env.event.ClaimID,
			}).Warn("failed to deliver notification")
		}
	}

	if record == nil {
		return
	}
	status := model.EventStatusSuccess
	deliveryErr := errors.Join(failures...)
	if deliveryErr != nil {
		status = model.EventStatusFailed
	}
	if err := d.events.UpdateStatus(record.ID, status, deliveryErr); err != nil {
		d.logger.WithError(err).WithField("event_id", record.ID).Warn("failed to update notification event")
	}
}

func (d *Dispatcher) persist(env envelope) *model.NotificationEventModel {
	if d.events == nil {
		return nil
	}
	data, err := json.Marshal(env.event)
	if err != nil {
		d.logger.WithError(err).Warn("failed to marshal notification event")
		return nil
	}
	now := time.Now()
	record := &model.NotificationEventModel{
		ID:        uuid.New().String(),
		Topic:     env.topic,
		Type:      env.event.Type,
		ClaimID:   env.event.ClaimID,
		Data:      string(data),
		Status:    model.EventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.events.Save(record); err != nil {
		d.logger.WithError(err).WithField("claim_id", env.event.ClaimID).Warn("failed to save notification event")
		return nil
	}
	return record
}
