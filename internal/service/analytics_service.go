package service

import (
	"github.com/mautops/claims-gin/internal/repository"
)

// AnalyticsService 统计服务接口
type AnalyticsService interface {
	Summary() repository.ClaimSummary
	WorkflowAnalysis() repository.WorkflowAnalysis
	Lecturers() []repository.LecturerSummary
	Payments() repository.PaymentSummary
	Monthly() []repository.MonthlyStatistics
}

type analyticsService struct {
	claims *repository.ClaimRepository
}

// NewAnalyticsService 创建统计服务
func NewAnalyticsService(claims *repository.ClaimRepository) AnalyticsService {
	return &analyticsService{claims: claims}
}

// Summary 报销单汇总
func (s *analyticsService) Summary() repository.ClaimSummary {
	return s.claims.GetSummary()
}

// WorkflowAnalysis 审批流程分析
func (s *analyticsService) WorkflowAnalysis() repository.WorkflowAnalysis {
	return s.claims.GetWorkflowAnalysis()
}

// Lecturers 讲师汇总
func (s *analyticsService) Lecturers() []repository.LecturerSummary {
	return s.claims.LecturerSummaries()
}

// Payments 付款汇总
func (s *analyticsService) Payments() repository.PaymentSummary {
	return s.claims.PaymentSummary()
}

// Monthly 月度统计
func (s *analyticsService) Monthly() []repository.MonthlyStatistics {
	return s.claims.MonthlyStatistics()
}
