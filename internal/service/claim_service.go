package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/metrics"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/notify"
	"github.com/mautops/claims-gin/internal/repository"
	"github.com/mautops/claims-gin/internal/storage"
	"github.com/mautops/claims-gin/internal/utils"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// WorkflowOperator 规则引擎在状态历史中的操作人
const WorkflowOperator = "workflow"

// MaxReasonLength 拒绝原因和审核备注的最大长度
const MaxReasonLength = 500

// AttachmentCategory 报销单附件目录
const AttachmentCategory = "claims"

var tracer = otel.Tracer("github.com/mautops/claims-gin/internal/service")

// Notifier 通知入队接口,不得阻塞
type Notifier interface {
	Notify(topic string, evt notify.Event) bool
}

// ClaimService 报销单服务接口
type ClaimService interface {
	Submit(ctx context.Context, req *SubmitClaimRequest, attachment *Attachment) (*SubmitResult, error)
	Preview(req *SubmitClaimRequest) (*workflow.Outcome, error)
	Get(id int64) (*model.Claim, error)
	GetByToken(token string) (*model.Claim, error)
	List(opts repository.ListOptions) ([]*model.Claim, error)
	Recent(n int) []*model.Claim
	History(id int64) ([]*model.StateHistoryModel, error)
	Approve(ctx context.Context, id int64, req *ApproveClaimRequest) (*model.Claim, error)
	Reject(ctx context.Context, id int64, req *RejectClaimRequest) (*model.Claim, error)
	UpdateStatus(ctx context.Context, id int64, req *UpdateStatusRequest) (*model.Claim, error)
	BatchApprove(ctx context.Context, req *BatchApproveRequest) []BatchOperationResult
}

// SubmitClaimRequest 提交报销单请求
// 字段约束由 model.ClaimInput 统一校验,这里不使用 binding 标签,以便一次返回所有错误
type SubmitClaimRequest struct {
	LecturerName string   `json:"lecturer_name" form:"lecturer_name"`
	HoursWorked  float64  `json:"hours_worked" form:"hours_worked"`
	HourlyRate   float64  `json:"hourly_rate" form:"hourly_rate"`
	TotalAmount  *float64 `json:"total_amount" form:"total_amount"` // 可选,需与 hours × rate 一致
	Notes        string   `json:"notes" form:"notes"`
}

// Attachment 上传的附件
type Attachment struct {
	FileName string
	Data     []byte
}

// SubmitResult 提交结果
type SubmitResult struct {
	Claim        *model.Claim `json:"claim"`
	MatchedRules []string     `json:"matched_rules"`
	AutoApproved bool         `json:"auto_approved"`
	Decision     string       `json:"decision"`
}

// ApproveClaimRequest 审核通过请求
type ApproveClaimRequest struct {
	Reviewer string `json:"reviewer"`
	Note     string `json:"note"`
}

// RejectClaimRequest 审核拒绝请求
type RejectClaimRequest struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
	Note     string `json:"note"`
}

// UpdateStatusRequest 直接变更状态请求
type UpdateStatusRequest struct {
	Status   string `json:"status" binding:"required"` // approved, rejected, auto-approved
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
}

// BatchApproveRequest 批量审核通过请求
type BatchApproveRequest struct {
	ClaimIDs []int64 `json:"claim_ids" binding:"required,min=1"`
	Reviewer string  `json:"reviewer"`
	Note     string  `json:"note"`
}

// BatchOperationResult 批量操作结果
type BatchOperationResult struct {
	ClaimID int64  `json:"claim_id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ClaimServiceDeps 报销单服务依赖,除 Claims 外均可为 nil
type ClaimServiceDeps struct {
	Claims   *repository.ClaimRepository
	History  repository.StateHistoryRepository
	Audit    AuditLogService
	Files    storage.FileStore
	Notifier Notifier
	Logger   logrus.FieldLogger
}

type claimService struct {
	claims   *repository.ClaimRepository
	history  repository.StateHistoryRepository
	audit    AuditLogService
	files    storage.FileStore
	notifier Notifier
	logger   logrus.FieldLogger
}

// NewClaimService 创建报销单服务
func NewClaimService(deps ClaimServiceDeps) ClaimService {
	logger := deps.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &claimService{
		claims:   deps.Claims,
		history:  deps.History,
		audit:    deps.Audit,
		files:    deps.Files,
		notifier: deps.Notifier,
		logger:   logger,
	}
}

func (req *SubmitClaimRequest) toInput() model.ClaimInput {
	return model.ClaimInput{
		LecturerName: utils.SanitizeText(req.LecturerName),
		HoursWorked:  req.HoursWorked,
		HourlyRate:   req.HourlyRate,
		TotalAmount:  req.TotalAmount,
		Notes:        utils.SanitizeText(req.Notes),
	}
}

// Submit 提交报销单
func (s *claimService) Submit(ctx context.Context, req *SubmitClaimRequest, attachment *Attachment) (*SubmitResult, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.Submit")
	defer span.End()

	// 1. 先校验输入,避免为无效提交保存附件
	input := req.toInput()
	input.Normalize()
	if err := input.Validate(); err != nil {
		return nil, spanError(span, err)
	}

	// 2. 保存附件
	var stored *storage.StoredFile
	if attachment != nil && len(attachment.Data) > 0 {
		if s.files == nil {
			return nil, spanError(span, errors.New("file storage is not configured"))
		}
		var err error
		stored, err = s.files.Store(attachment.Data, attachment.FileName, AttachmentCategory)
		if err != nil {
			return nil, spanError(span, attachmentError(err))
		}
		input.FileName = stored.OriginalName
		input.FilePath = stored.Path
	}

	// 3. 创建并执行审批规则
	outcome, err := s.claims.CreateWithOutcome(input)
	if err != nil {
		if stored != nil {
			s.discardAttachment(stored)
		}
		return nil, spanError(span, err)
	}
	claim := outcome.Claim
	span.SetAttributes(
		attribute.Int64("claim.id", claim.ID),
		attribute.String("claim.status", claim.Status.String()),
		attribute.StringSlice("claim.matched_rules", outcome.Flags),
	)

	// 4. 记录业务指标、状态历史、审计日志
	metrics.RecordClaimSubmitted(outcome.AutoApproved)
	s.recordHistory(claim.ID, "", model.StatusPending, claim.LecturerName, "submitted")
	if outcome.AutoApproved {
		s.recordHistory(claim.ID, model.StatusPending, claim.Status, WorkflowOperator, workflow.RuleSmallClaimAutoApproval)
	}
	s.recordAudit(ctx, claim.LecturerName, ActionSubmit, claim.ID, map[string]interface{}{
		"total_amount":  claim.TotalAmount,
		"status":        claim.Status,
		"matched_rules": outcome.Flags,
		"attachment":    claim.FilePath,
	})

	// 5. 通知协调员; 自动审批时同时通知讲师
	s.notify(notify.TopicCoordinators, notify.NewClaimSubmitted(claim))
	if outcome.AutoApproved {
		s.notify(claim.TrackingToken, notify.StatusUpdated(claim))
	}

	return &SubmitResult{
		Claim:        claim,
		MatchedRules: outcome.Flags,
		AutoApproved: outcome.AutoApproved,
		Decision:     outcome.Decision,
	}, nil
}

// Preview 只评估不保存
func (s *claimService) Preview(req *SubmitClaimRequest) (*workflow.Outcome, error) {
	outcome, err := s.claims.Orchestrator().Preview(req.toInput())
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

// Get 获取报销单
func (s *claimService) Get(id int64) (*model.Claim, error) {
	claim, ok := s.claims.GetByID(id)
	if !ok {
		return nil, model.ErrClaimNotFound
	}
	return claim, nil
}

// GetByToken 根据追踪令牌获取报销单
func (s *claimService) GetByToken(token string) (*model.Claim, error) {
	claim, ok := s.claims.GetByTrackingToken(token)
	if !ok {
		return nil, model.ErrClaimNotFound
	}
	return claim, nil
}

// List 查询报销单列表
func (s *claimService) List(opts repository.ListOptions) ([]*model.Claim, error) {
	return s.claims.List(opts)
}

// Recent 最近提交的报销单
func (s *claimService) Recent(n int) []*model.Claim {
	return s.claims.GetRecent(n)
}

// History 报销单状态历史
func (s *claimService) History(id int64) ([]*model.StateHistoryModel, error) {
	if _, ok := s.claims.GetByID(id); !ok {
		return nil, model.ErrClaimNotFound
	}
	if s.history == nil {
		return []*model.StateHistoryModel{}, nil
	}
	histories, err := s.history.FindByClaimID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load state history: %w", err)
	}
	return histories, nil
}

// Approve 审核通过
func (s *claimService) Approve(ctx context.Context, id int64, req *ApproveClaimRequest) (*model.Claim, error) {
	note := utils.SanitizeText(req.Note)
	if err := validateLength("note", note); err != nil {
		return nil, err
	}
	return s.review(ctx, id, ActionApprove, repository.Review{
		Status:   model.StatusApproved,
		Reviewer: s.reviewer(ctx, req.Reviewer),
		Note:     note,
	})
}

// Reject 审核拒绝,必须提供原因
func (s *claimService) Reject(ctx context.Context, id int64, req *RejectClaimRequest) (*model.Claim, error) {
	reason := utils.SanitizeText(req.Reason)
	note := utils.SanitizeText(req.Note)

	verr := &model.ValidationError{}
	if reason == "" {
		verr.Add("reason", model.CodeRequired, "rejection reason is required")
	} else if utf8.RuneCountInString(reason) > MaxReasonLength {
		verr.Add("reason", model.CodeTooLong, fmt.Sprintf("reason must be at most %d characters", MaxReasonLength))
	}
	if utf8.RuneCountInString(note) > MaxReasonLength {
		verr.Add("note", model.CodeTooLong, fmt.Sprintf("note must be at most %d characters", MaxReasonLength))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	return s.review(ctx, id, ActionReject, repository.Review{
		Status:   model.StatusRejected,
		Reviewer: s.reviewer(ctx, req.Reviewer),
		Reason:   reason,
		Note:     note,
	})
}

// UpdateStatus 直接变更状态
func (s *claimService) UpdateStatus(ctx context.Context, id int64, req *UpdateStatusRequest) (*model.Claim, error) {
	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	reason := utils.SanitizeText(req.Reason)
	if err := validateLength("reason", reason); err != nil {
		return nil, err
	}
	return s.review(ctx, id, ActionUpdateStatus, repository.Review{
		Status:   status,
		Reviewer: s.reviewer(ctx, req.Reviewer),
		Reason:   reason,
	})
}

// BatchApprove 批量审核通过,单条失败不影响其它
func (s *claimService) BatchApprove(ctx context.Context, req *BatchApproveRequest) []BatchOperationResult {
	results := make([]BatchOperationResult, 0, len(req.ClaimIDs))
	for _, id := range req.ClaimIDs {
		result := BatchOperationResult{ClaimID: id, Success: true}
		if _, err := s.Approve(ctx, id, &ApproveClaimRequest{Reviewer: req.Reviewer, Note: req.Note}); err != nil {
			result.Success = false
			result.Error = err.Error()
		}
		results = append(results, result)
	}
	return results
}

func (s *claimService) review(ctx context.Context, id int64, action string, review repository.Review) (*model.Claim, error) {
	ctx, span := tracer.Start(ctx, "ClaimService.Review", trace.WithAttributes(
		attribute.Int64("claim.id", id),
		attribute.String("claim.target_status", review.Status.String()),
	))
	defer span.End()

	result, err := s.claims.Review(id, review)
	if err != nil {
		return nil, spanError(span, err)
	}
	claim := result.Claim

	metrics.RecordReview(claim.Status.String())
	reason := review.Reason
	if reason == "" {
		reason = review.Note
	}
	s.recordHistory(claim.ID, result.Previous, claim.Status, review.Reviewer, reason)
	s.recordAudit(ctx, review.Reviewer, action, claim.ID, map[string]interface{}{
		"from":   result.Previous,
		"to":     claim.Status,
		"reason": review.Reason,
		"note":   review.Note,
	})
	s.notify(claim.TrackingToken, notify.StatusUpdated(claim))

	return claim, nil
}

// reviewer 认证身份优先,其次使用请求中的审核人
func (s *claimService) reviewer(ctx context.Context, requested string) string {
	if userID := UserIDFromContext(ctx); userID != "" {
		return userID
	}
	if requested = utils.SanitizeText(requested); requested != "" {
		return requested
	}
	return AnonymousUser
}

// discardAttachment 删除未关联报销单的附件,失败只记录日志
func (s *claimService) discardAttachment(stored *storage.StoredFile) {
	if err := s.files.Delete(stored.Path); err != nil {
		s.logger.WithError(err).WithField("path", stored.Path).Warn("failed to delete orphaned attachment")
	}
}

// recordHistory 写入状态历史,失败只记录日志
func (s *claimService) recordHistory(claimID int64, from, to model.Status, operator, reason string) {
	if s.history == nil {
		return
	}
	if operator == "" {
		operator = AnonymousUser
	}
	history := &model.StateHistoryModel{
		ID:        uuid.New().String(),
		ClaimID:   claimID,
		FromState: from.String(),
		ToState:   to.String(),
		Reason:    reason,
		Operator:  operator,
		CreatedAt: time.Now(),
	}
	if err := s.history.Save(history); err != nil {
		s.logger.WithError(err).WithField("claim_id", claimID).Warn("failed to save state history")
	}
}

// recordAudit 写入审计日志,失败只记录日志
func (s *claimService) recordAudit(ctx context.Context, userID, action string, claimID int64, details interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.RecordAction(ctx, userID, action, ResourceClaim, strconv.FormatInt(claimID, 10), details); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"claim_id": claimID,
			"action":   action,
		}).Warn("failed to record audit log")
	}
}

func (s *claimService) notify(topic string, evt notify.Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(topic, evt)
}

func validateLength(field, value string) error {
	if utf8.RuneCountInString(value) <= MaxReasonLength {
		return nil
	}
	verr := &model.ValidationError{}
	verr.Add(field, model.CodeTooLong, fmt.Sprintf("%s must be at most %d characters", field, MaxReasonLength))
	return verr
}

// attachmentError 将存储错误转换为字段校验错误
func attachmentError(err error) error {
	if errors.Is(err, storage.ErrFileTooLarge) ||
		errors.Is(err, storage.ErrFileType) ||
		errors.Is(err, storage.ErrContentMismatch) ||
		errors.Is(err, storage.ErrEmptyFile) {
		verr := &model.ValidationError{}
		verr.Add("upload", model.CodeInvalidFile, err.Error())
		return verr
	}
	return fmt.Errorf("failed to store attachment: %w", err)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
