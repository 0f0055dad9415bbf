package repository

import (
	"time"

	"github.com/mautops/claims-gin/internal/model"
	"gorm.io/gorm"
)

// NotificationEventRepository 通知事件仓储接口
type NotificationEventRepository interface {
	Save(event *model.NotificationEventModel) error
	UpdateStatus(id string, status string, deliveryErr error) error
	FindByClaimID(claimID int64) ([]*model.NotificationEventModel, error)
	FindPending() ([]*model.NotificationEventModel, error)
}

// notificationEventRepository 通知事件仓储实现
type notificationEventRepository struct {
	db *gorm.DB
}

// NewNotificationEventRepository 创建通知事件仓储
func NewNotificationEventRepository(db *gorm.DB) NotificationEventRepository {
	return &notificationEventRepository{db: db}
}

// Save 保存通知事件
func (r *notificationEventRepository) Save(event *model.NotificationEventModel) error {
	if err := event.Validate(); err != nil {
		return err
	}
	return r.db.Save(event).Error
}

// UpdateStatus 更新投递状态,失败时累加重试次数
func (r *notificationEventRepository) UpdateStatus(id string, status string, deliveryErr error) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if deliveryErr != nil {
		updates["error"] = deliveryErr.Error()
		updates["retry_count"] = gorm.Expr("retry_count + ?", 1)
	}
	return r.db.Model(&model.NotificationEventModel{}).Where("id = ?", id).Updates(updates).Error
}

// FindByClaimID 根据报销单 ID 查找通知事件
func (r *notificationEventRepository) FindByClaimID(claimID int64) ([]*model.NotificationEventModel, error) {
	var events []*model.NotificationEventModel
	err := r.db.Where("claim_id = ?", claimID).Order("created_at ASC").Find(&events).Error
	return events, err
}

// FindPending 查找待投递的事件
func (r *notificationEventRepository) FindPending() ([]*model.NotificationEventModel, error) {
	var events []*model.NotificationEventModel
	err := r.db.Where("status = ?", model.EventStatusPending).Order("created_at ASC").Find(&events).Error
	return events, err
}
