package repository

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// Review 审核操作
type Review struct {
	Status   model.Status
	Reviewer string
	Note     string // 审核备注,追加到 Notes
	Reason   string // 拒绝原因
}

// ReviewResult 审核结果
type ReviewResult struct {
	Claim    *model.Claim
	Previous model.Status
}

// ClaimRepository 报销单仓储
// 唯一的写入方,负责 ID 分配、状态变更和统计视图。
// 已存储的 *model.Claim 不会被原地修改,变更时整体替换,读取方可以在锁外访问快照。
type ClaimRepository struct {
	mu      sync.RWMutex
	claims  map[int64]*model.Claim
	byToken map[string]int64
	nextID  int64

	orchestrator    *workflow.Orchestrator
	enforceTerminal bool
	now             func() time.Time
	logger          logrus.FieldLogger
}

// Option 仓储选项
type Option func(*ClaimRepository)

// WithTerminalEnforcement 是否禁止对终态报销单再次变更状态
func WithTerminalEnforcement(enforce bool) Option {
	return func(r *ClaimRepository) {
		r.enforceTerminal = enforce
	}
}

// WithClock 替换时钟(用于测试)
func WithClock(now func() time.Time) Option {
	return func(r *ClaimRepository) {
		r.now = now
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *ClaimRepository) {
		r.logger = logger
	}
}

// NewClaimRepository 创建报销单仓储
func NewClaimRepository(orchestrator *workflow.Orchestrator, opts ...Option) *ClaimRepository {
	r := &ClaimRepository{
		claims:          make(map[int64]*model.Claim),
		byToken:         make(map[string]int64),
		orchestrator:    orchestrator,
		enforceTerminal: true,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		r.logger = l
	}
	return r
}

// Orchestrator 返回流程编排器
func (r *ClaimRepository) Orchestrator() *workflow.Orchestrator {
	return r.orchestrator
}

// Create 创建报销单
func (r *ClaimRepository) Create(input model.ClaimInput) (*model.Claim, error) {
	outcome, err := r.CreateWithOutcome(input)
	if err != nil {
		return nil, err
	}
	return outcome.Claim, nil
}

// CreateWithOutcome 创建报销单并返回规则评估结果
func (r *ClaimRepository) CreateWithOutcome(input model.ClaimInput) (workflow.Outcome, error) {
	// 1. 校验输入,失败时不写入任何数据
	input.Normalize()
	if err := input.Validate(); err != nil {
		return workflow.Outcome{}, err
	}

	claim := &model.Claim{
		TrackingToken: uuid.New().String(),
		LecturerName:  input.LecturerName,
		HoursWorked:   input.HoursWorked,
		HourlyRate:    input.HourlyRate,
		TotalAmount:   model.ComputeTotal(input.HoursWorked, input.HourlyRate),
		Notes:         input.Notes,
		Status:        model.StatusPending,
		FileName:      input.FileName,
		FilePath:      input.FilePath,
	}

	// 2. 分配 ID、执行规则并存储,整体在写锁内完成
	r.mu.Lock()
	r.nextID++
	claim.ID = r.nextID
	claim.SubmittedAt = r.now().UTC()

	outcome := r.orchestrator.ProcessClaim(claim)
	if claim.Status != model.StatusPending {
		reviewedAt := claim.SubmittedAt
		claim.ReviewedAt = &reviewedAt
	}
	claim.RefreshProgress()

	r.claims[claim.ID] = claim
	r.byToken[claim.TrackingToken] = claim.ID
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"claim_id":     claim.ID,
		"lecturer":     claim.LecturerName,
		"total_amount": claim.TotalAmount,
		"status":       claim.Status,
	}).Info("claim created")

	outcome.Claim = claim.Clone()
	return outcome, nil
}

// GetAll 返回所有报销单快照,按提交时间倒序
func (r *ClaimRepository) GetAll() []*model.Claim {
	return cloneAll(r.snapshot())
}

// GetByID 根据 ID 获取报销单
func (r *ClaimRepository) GetByID(id int64) (*model.Claim, bool) {
	r.mu.RLock()
	claim, ok := r.claims[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return claim.Clone(), true
}

// GetByTrackingToken 根据追踪令牌获取报销单
func (r *ClaimRepository) GetByTrackingToken(token string) (*model.Claim, bool) {
	r.mu.RLock()
	id, ok := r.byToken[token]
	var claim *model.Claim
	if ok {
		claim = r.claims[id]
	}
	r.mu.RUnlock()
	if claim == nil {
		return nil, false
	}
	return claim.Clone(), true
}

// UpdateStatus 更新报销单状态
func (r *ClaimRepository) UpdateStatus(id int64, status model.Status) (*model.Claim, error) {
	result, err := r.Review(id, Review{Status: status})
	if err != nil {
		return nil, err
	}
	return result.Claim, nil
}

// Review 审核报销单: 变更状态、记录审核人和备注
// 先查找报销单,不存在时返回 ErrClaimNotFound,其次校验目标状态
func (r *ClaimRepository) Review(id int64, review Review) (*ReviewResult, error) {
	r.mu.Lock()
	current, ok := r.claims[id]
	if !ok {
		r.mu.Unlock()
		return nil, model.ErrClaimNotFound
	}
	if !review.Status.IsTerminal() {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot move claim to %q", model.ErrInvalidStatus, review.Status)
	}
	if r.enforceTerminal && !current.Status.CanTransitionTo(review.Status) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: claim %d is already %s", model.ErrInvalidTransition, id, current.Status)
	}

	updated := current.Clone()
	reviewedAt := r.now().UTC()
	updated.Status = review.Status
	updated.ReviewedAt = &reviewedAt
	if review.Reviewer != "" {
		updated.ReviewedBy = review.Reviewer
	}
	if review.Status == model.StatusRejected && review.Reason != "" {
		updated.RejectionReason = review.Reason
		updated.AppendNote(fmt.Sprintf("[Rejection Reason: %s]", review.Reason))
	}
	if review.Note != "" {
		updated.AppendNote(fmt.Sprintf("[Coordinator Note: %s]", review.Note))
	}
	updated.RefreshProgress()
	r.claims[id] = updated
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"claim_id": id,
		"from":     current.Status,
		"to":       updated.Status,
		"reviewer": review.Reviewer,
	}).Info("claim status updated")

	return &ReviewResult{Claim: updated.Clone(), Previous: current.Status}, nil
}

// GetRecent 返回最近的 n 条报销单
func (r *ClaimRepository) GetRecent(n int) []*model.Claim {
	if n <= 0 {
		return []*model.Claim{}
	}
	all := r.snapshot()
	if len(all) > n {
		all = all[:n]
	}
	return cloneAll(all)
}

// Count 报销单总数
func (r *ClaimRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.claims)
}

// snapshot 在读锁下取出当前所有报销单并排序
// 返回的指针指向不可变值,调用方不得修改
func (r *ClaimRepository) snapshot() []*model.Claim {
	r.mu.RLock()
	list := make([]*model.Claim, 0, len(r.claims))
	for _, c := range r.claims {
		list = append(list, c)
	}
	r.mu.RUnlock()

	sortNewestFirst(list)
	return list
}

func sortNewestFirst(list []*model.Claim) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].SubmittedAt.After(list[j].SubmittedAt)
		}
		return list[i].ID > list[j].ID
	})
}

func cloneAll(list []*model.Claim) []*model.Claim {
	out := make([]*model.Claim, 0, len(list))
	for _, c := range list {
		out = append(out, c.Clone())
	}
	return out
}
