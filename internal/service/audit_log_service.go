package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/repository"
)

// 审计动作
const (
	ActionSubmit       = "submit"
	ActionApprove      = "approve"
	ActionReject       = "reject"
	ActionUpdateStatus = "update_status"
)

// ResourceClaim 审计资源类型
const ResourceClaim = "claim"

// AnonymousUser 未识别身份时的操作人
const AnonymousUser = "anonymous"

// AuditLogService 审计日志服务
type AuditLogService interface {
	RecordAction(ctx context.Context, userID string, action string, resourceType string, resourceID string, details interface{}) error
	ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error)
}

// auditLogService 审计日志服务实现
type auditLogService struct {
	auditRepo repository.AuditLogRepository
}

// NewAuditLogService 创建审计日志服务
func NewAuditLogService(auditRepo repository.AuditLogRepository) AuditLogService {
	return &auditLogService{
		auditRepo: auditRepo,
	}
}

// RecordAction 记录操作审计日志
func (s *auditLogService) RecordAction(
	ctx context.Context,
	userID string,
	action string,
	resourceType string,
	resourceID string,
	details interface{},
) error {
	// 序列化详情
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal audit details: %w", err)
	}
	if userID == "" {
		userID = AnonymousUser
	}

	info := RequestInfoFromContext(ctx)
	auditLog := &model.AuditLogModel{
		ID:           uuid.New().String(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		RequestID:    info.RequestID,
		IP:           info.IP,
		UserAgent:    info.UserAgent,
		Details:      string(detailsJSON),
		CreatedAt:    time.Now(),
	}

	return s.auditRepo.Save(auditLog)
}

// ListByResource 查询资源的审计日志
func (s *auditLogService) ListByResource(resourceType string, resourceID string) ([]*model.AuditLogModel, error) {
	return s.auditRepo.FindByResource(resourceType, resourceID)
}
