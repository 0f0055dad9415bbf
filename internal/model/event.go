package model

import (
	"errors"
	"time"
)

// 通知事件投递状态
const (
	EventStatusPending = "pending"
	EventStatusSuccess = "success"
	EventStatusFailed  = "failed"
)

// NotificationEventModel 通知事件投递记录
type NotificationEventModel struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	Topic      string    `gorm:"type:varchar(64);not null;index"`
	Type       string    `gorm:"type:varchar(32);not null"`
	ClaimID    int64     `gorm:"not null;index:idx_events_claim_id"`
	Data       string    `gorm:"type:text;not null"` // 序列化后的事件数据
	Status     string    `gorm:"type:varchar(32);not null;default:'pending';index:idx_events_status"`
	Error      string    `gorm:"type:text"`
	RetryCount int       `gorm:"default:0"`
	CreatedAt  time.Time `gorm:"not null;index:idx_events_created_at"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName 指定表名
func (NotificationEventModel) TableName() string {
	return "notification_events"
}

// Validate 验证事件模型
func (em *NotificationEventModel) Validate() error {
	if em.ID == "" {
		return errors.New("event ID is required")
	}
	if em.Topic == "" {
		return errors.New("event topic is required")
	}
	if em.Type == "" {
		return errors.New("event type is required")
	}
	if em.Data == "" {
		return errors.New("event data is required")
	}
	if em.Status == "" {
		em.Status = EventStatusPending
	}
	return nil
}
