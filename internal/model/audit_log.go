package model

import (
	"errors"
	"time"
)

// AuditLogModel 审计日志数据模型
type AuditLogModel struct {
	ID           string    `gorm:"primaryKey;type:varchar(64)"`
	UserID       string    `gorm:"type:varchar(128);not null;index:idx_audit_user_id"`
	Action       string    `gorm:"type:varchar(64);not null;index"` // submit/approve/reject/update_status
	ResourceType string    `gorm:"type:varchar(32);not null;index:idx_audit_resource"`
	ResourceID   string    `gorm:"type:varchar(64);not null;index:idx_audit_resource"`
	RequestID    string    `gorm:"type:varchar(64);index"`
	IP           string    `gorm:"type:varchar(45)"` // IPv4 或 IPv6
	UserAgent    string    `gorm:"type:text"`
	Details      string    `gorm:"type:text"` // JSON 格式的操作详情
	CreatedAt    time.Time `gorm:"not null;index:idx_audit_created_at"`
}

// TableName 指定表名
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// Validate 验证审计日志模型
func (alm *AuditLogModel) Validate() error {
	if alm.ID == "" {
		return errors.New("audit log ID is required")
	}
	if alm.UserID == "" {
		return errors.New("user ID is required")
	}
	if alm.Action == "" {
		return errors.New("action is required")
	}
	if alm.ResourceType == "" {
		return errors.New("resource type is required")
	}
	if alm.ResourceID == "" {
		return errors.New("resource ID is required")
	}
	return nil
}
