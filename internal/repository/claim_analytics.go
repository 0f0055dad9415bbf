package repository

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mautops/claims-gin/internal/model"
)

// ClaimSummary 报销单汇总
type ClaimSummary struct {
	TotalClaims         int     `json:"total_claims"`
	PendingClaims       int     `json:"pending_claims"`
	ApprovedClaims      int     `json:"approved_claims"` // 包含自动审批
	RejectedClaims      int     `json:"rejected_claims"`
	AutoApprovedClaims  int     `json:"auto_approved_claims"`
	TotalAmountApproved float64 `json:"total_amount_approved"`
	ProcessedThisMonth  int     `json:"processed_this_month"`
}

// WorkflowAnalysis 审批流程分析
type WorkflowAnalysis struct {
	TotalClaims        int `json:"total_claims"`
	AutoApprovedClaims int `json:"auto_approved_claims"`
	FlaggedClaims      int `json:"flagged_claims"`
	// ReviewedClaims 为 0 时 AverageProcessingTime 固定为 0,表示没有数据
	ReviewedClaims        int     `json:"reviewed_claims"`
	AverageProcessingTime float64 `json:"average_processing_time_hours"`
	// 只统计人工审核,不含提交即完成的自动审批
	HumanReviewedClaims    int            `json:"human_reviewed_claims"`
	AverageHumanReviewTime float64        `json:"average_human_review_time_hours"`
	RuleStatistics         map[string]int `json:"rule_statistics"`
}

// LecturerSummary 讲师维度汇总
type LecturerSummary struct {
	LecturerName   string     `json:"lecturer_name"`
	TotalClaims    int        `json:"total_claims"`
	PendingClaims  int        `json:"pending_claims"`
	ApprovedClaims int        `json:"approved_claims"`
	TotalApproved  float64    `json:"total_approved"`
	LastSubmission *time.Time `json:"last_submission,omitempty"`
}

// PaymentSummary 待付款汇总
type PaymentSummary struct {
	ReadyForPayment    int     `json:"ready_for_payment"`
	TotalAmount        float64 `json:"total_amount"`
	TotalLecturers     int     `json:"total_lecturers"`
	ProcessedThisMonth int     `json:"processed_this_month"`
	AverageClaimAmount float64 `json:"average_claim_amount"`
}

// MonthlyStatistics 按提交月份统计
type MonthlyStatistics struct {
	Period         string  `json:"period"` // YYYY-MM
	TotalClaims    int     `json:"total_claims"`
	ApprovedClaims int     `json:"approved_claims"`
	TotalAmount    float64 `json:"total_amount"`
}

// 列表过滤条件
const (
	FilterAll          = "all"
	FilterPending      = "pending"
	FilterApproved     = "approved"
	FilterAutoApproved = "auto-approved"
	FilterRejected     = "rejected"
	FilterFlagged      = "flagged"
)

// 列表排序方式
const (
	SortNewest     = "newest"
	SortOldest     = "oldest"
	SortAmountHigh = "amount-high"
	SortAmountLow  = "amount-low"
	SortName       = "name"
)

// ListOptions 列表查询参数
type ListOptions struct {
	Filter   string
	Sort     string
	Lecturer string
}

// GetSummary 计算汇总,每次基于当前数据重新计算
func (r *ClaimRepository) GetSummary() ClaimSummary {
	claims := r.snapshot()
	now := r.now().UTC()

	var summary ClaimSummary
	var approvedAmount float64
	summary.TotalClaims = len(claims)
	for _, c := range claims {
		switch c.Status {
		case model.StatusPending:
			summary.PendingClaims++
		case model.StatusRejected:
			summary.RejectedClaims++
		case model.StatusAutoApproved:
			summary.AutoApprovedClaims++
		}
		if c.Status.CountsAsApproved() {
			summary.ApprovedClaims++
			approvedAmount += c.TotalAmount
			if reviewedInMonth(c, now) {
				summary.ProcessedThisMonth++
			}
		}
	}
	summary.TotalAmountApproved = model.RoundAmount(approvedAmount)
	return summary
}

// GetWorkflowAnalysis 计算审批流程分析
func (r *ClaimRepository) GetWorkflowAnalysis() WorkflowAnalysis {
	claims := r.snapshot()

	analysis := WorkflowAnalysis{
		TotalClaims:    len(claims),
		RuleStatistics: make(map[string]int),
	}
	var totalProcessing, totalHuman time.Duration
	for _, c := range claims {
		if c.Status == model.StatusAutoApproved {
			analysis.AutoApprovedClaims++
		}
		if c.IsFlagged() {
			analysis.FlaggedClaims++
		}
		if d, ok := c.ProcessingTime(); ok {
			analysis.ReviewedClaims++
			totalProcessing += d
			if c.Status != model.StatusAutoApproved {
				analysis.HumanReviewedClaims++
				totalHuman += d
			}
		}
		for _, name := range r.orchestrator.MatchingRules(c) {
			analysis.RuleStatistics[name]++
		}
	}
	if analysis.ReviewedClaims > 0 {
		avg := totalProcessing.Hours() / float64(analysis.ReviewedClaims)
		analysis.AverageProcessingTime = model.RoundAmount(avg)
	}
	if analysis.HumanReviewedClaims > 0 {
		avg := totalHuman.Hours() / float64(analysis.HumanReviewedClaims)
		analysis.AverageHumanReviewTime = model.RoundAmount(avg)
	}
	return analysis
}

// List 按过滤条件和排序方式查询
func (r *ClaimRepository) List(opts ListOptions) ([]*model.Claim, error) {
	match, err := filterFunc(opts.Filter)
	if err != nil {
		return nil, err
	}
	less, err := sortFunc(opts.Sort)
	if err != nil {
		return nil, err
	}

	claims := r.snapshot()
	out := make([]*model.Claim, 0, len(claims))
	for _, c := range claims {
		if opts.Lecturer != "" && !strings.EqualFold(c.LecturerName, opts.Lecturer) {
			continue
		}
		if match(c) {
			out = append(out, c)
		}
	}
	// snapshot 已按最新优先排序,稳定排序保证同值时顺序确定
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return cloneAll(out), nil
}

// CountByStatus 按状态计数
func (r *ClaimRepository) CountByStatus() map[string]int {
	counts := make(map[string]int, len(model.AllStatuses()))
	for _, s := range model.AllStatuses() {
		counts[s.String()] = 0
	}
	for _, c := range r.snapshot() {
		counts[c.Status.String()]++
	}
	return counts
}

// LecturerSummaries 按讲师汇总,按姓名排序
func (r *ClaimRepository) LecturerSummaries() []LecturerSummary {
	byName := make(map[string]*LecturerSummary)
	for _, c := range r.snapshot() {
		s, ok := byName[c.LecturerName]
		if !ok {
			s = &LecturerSummary{LecturerName: c.LecturerName}
			byName[c.LecturerName] = s
		}
		s.TotalClaims++
		if c.Status == model.StatusPending {
			s.PendingClaims++
		}
		if c.Status.CountsAsApproved() {
			s.ApprovedClaims++
			s.TotalApproved += c.TotalAmount
		}
		if s.LastSubmission == nil || c.SubmittedAt.After(*s.LastSubmission) {
			t := c.SubmittedAt
			s.LastSubmission = &t
		}
	}

	out := make([]LecturerSummary, 0, len(byName))
	for _, s := range byName {
		s.TotalApproved = model.RoundAmount(s.TotalApproved)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LecturerName < out[j].LecturerName })
	return out
}

// PaymentSummary 已通过、待付款的报销单汇总
func (r *ClaimRepository) PaymentSummary() PaymentSummary {
	now := r.now().UTC()
	lecturers := make(map[string]struct{})

	var summary PaymentSummary
	var total float64
	for _, c := range r.snapshot() {
		if !c.Status.CountsAsApproved() {
			continue
		}
		summary.ReadyForPayment++
		total += c.TotalAmount
		lecturers[c.LecturerName] = struct{}{}
		if reviewedInMonth(c, now) {
			summary.ProcessedThisMonth++
		}
	}
	summary.TotalAmount = model.RoundAmount(total)
	summary.TotalLecturers = len(lecturers)
	if summary.ReadyForPayment > 0 {
		summary.AverageClaimAmount = model.RoundAmount(total / float64(summary.ReadyForPayment))
	}
	return summary
}

// MonthlyStatistics 按提交月份统计,按月份升序
func (r *ClaimRepository) MonthlyStatistics() []MonthlyStatistics {
	byPeriod := make(map[string]*MonthlyStatistics)
	for _, c := range r.snapshot() {
		period := c.SubmittedAt.UTC().Format("2006-01")
		m, ok := byPeriod[period]
		if !ok {
			m = &MonthlyStatistics{Period: period}
			byPeriod[period] = m
		}
		m.TotalClaims++
		if c.Status.CountsAsApproved() {
			m.ApprovedClaims++
			m.TotalAmount += c.TotalAmount
		}
	}

	out := make([]MonthlyStatistics, 0, len(byPeriod))
	for _, m := range byPeriod {
		m.TotalAmount = model.RoundAmount(m.TotalAmount)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Period < out[j].Period })
	return out
}

func reviewedInMonth(c *model.Claim, now time.Time) bool {
	if c.ReviewedAt == nil {
		return false
	}
	reviewed := c.ReviewedAt.UTC()
	return reviewed.Year() == now.Year() && reviewed.Month() == now.Month()
}

func filterFunc(filter string) (func(*model.Claim) bool, error) {
	switch filter {
	case "", FilterAll:
		return func(*model.Claim) bool { return true }, nil
	case FilterPending:
		return func(c *model.Claim) bool { return c.Status == model.StatusPending }, nil
	case FilterApproved:
		return func(c *model.Claim) bool { return c.Status.CountsAsApproved() }, nil
	case FilterAutoApproved:
		return func(c *model.Claim) bool { return c.Status == model.StatusAutoApproved }, nil
	case FilterRejected:
		return func(c *model.Claim) bool { return c.Status == model.StatusRejected }, nil
	case FilterFlagged:
		return func(c *model.Claim) bool { return c.IsFlagged() }, nil
	}
	return nil, invalidOption("filter", filter)
}

func sortFunc(by string) (func(a, b *model.Claim) bool, error) {
	switch by {
	case "", SortNewest:
		return func(a, b *model.Claim) bool { return false }, nil
	case SortOldest:
		return func(a, b *model.Claim) bool {
			if !a.SubmittedAt.Equal(b.SubmittedAt) {
				return a.SubmittedAt.Before(b.SubmittedAt)
			}
			return a.ID < b.ID
		}, nil
	case SortAmountHigh:
		return func(a, b *model.Claim) bool { return a.TotalAmount > b.TotalAmount }, nil
	case SortAmountLow:
		return func(a, b *model.Claim) bool { return a.TotalAmount < b.TotalAmount }, nil
	case SortName:
		return func(a, b *model.Claim) bool { return a.LecturerName < b.LecturerName }, nil
	}
	return nil, invalidOption("sort", by)
}

func invalidOption(field, value string) error {
	verr := &model.ValidationError{}
	verr.Add(field, model.CodeOutOfRange, fmt.Sprintf("unsupported %s %q", field, value))
	return verr
}
