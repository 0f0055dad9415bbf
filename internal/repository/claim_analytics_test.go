package repository_test

import (
	"testing"
	"time"

	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/repository"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedMixed 写入一组覆盖各种状态的报销单
// 1 自动审批 360, 2 待审(超时) 2700, 3 待审(课时费) 5000, 4 大额+超时 8400
func seedMixed(t *testing.T, repo *repository.ClaimRepository, clock *fakeClock) {
	t.Helper()
	inputs := []model.ClaimInput{
		input("Dr. A", 8, 45),
		input("Dr. B", 45, 60),
		input("Dr. C", 20, 250),
		input("Dr. A", 42, 200),
	}
	for _, in := range inputs {
		_, err := repo.Create(in)
		require.NoError(t, err)
		clock.Advance(time.Hour)
	}
}

// TestClaimRepository_GetSummary 测试汇总
func TestClaimRepository_GetSummary(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)

	_, err := repo.UpdateStatus(4, model.StatusApproved)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(2, model.StatusRejected)
	require.NoError(t, err)

	summary := repo.GetSummary()
	assert.Equal(t, len(repo.GetAll()), summary.TotalClaims)
	assert.Equal(t, 4, summary.TotalClaims)
	assert.Equal(t, 1, summary.PendingClaims)
	assert.Equal(t, 2, summary.ApprovedClaims)
	assert.Equal(t, 1, summary.AutoApprovedClaims)
	assert.Equal(t, 1, summary.RejectedClaims)
	assert.Equal(t, 8760.0, summary.TotalAmountApproved)
	assert.Equal(t, 2, summary.ProcessedThisMonth)
}

// TestClaimRepository_GetSummary_Empty 测试空仓储
func TestClaimRepository_GetSummary_Empty(t *testing.T) {
	repo := newTestRepository()
	assert.Equal(t, repository.ClaimSummary{}, repo.GetSummary())

	analysis := repo.GetWorkflowAnalysis()
	assert.Equal(t, 0, analysis.TotalClaims)
	assert.Equal(t, 0.0, analysis.AverageProcessingTime)
	assert.Empty(t, analysis.RuleStatistics)
}

// TestClaimRepository_GetWorkflowAnalysis 测试流程分析
func TestClaimRepository_GetWorkflowAnalysis(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)

	analysis := repo.GetWorkflowAnalysis()
	assert.Equal(t, 4, analysis.TotalClaims)
	assert.Equal(t, 1, analysis.AutoApprovedClaims)
	assert.Equal(t, 3, analysis.FlaggedClaims)
	// 自动审批在提交时即审核,耗时为 0
	assert.Equal(t, 1, analysis.ReviewedClaims)
	assert.Equal(t, 0.0, analysis.AverageProcessingTime)
	assert.Equal(t, 0, analysis.HumanReviewedClaims)
	assert.Equal(t, 0.0, analysis.AverageHumanReviewTime)
	assert.Equal(t, map[string]int{
		workflow.RuleSmallClaimAutoApproval: 1,
		workflow.RuleHighAmountFlag:         1,
		workflow.RuleOvertimeFlag:           2,
		workflow.RuleUnusualRateFlag:        1,
	}, analysis.RuleStatistics)

	// 统计不修改已存储的数据
	stored, _ := repo.GetByID(2)
	assert.Len(t, stored.Flags, 1)
}

// TestClaimRepository_List_Filter 测试过滤
func TestClaimRepository_List_Filter(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)
	_, err := repo.UpdateStatus(3, model.StatusRejected)
	require.NoError(t, err)

	ids := func(claims []*model.Claim) []int64 {
		out := make([]int64, 0, len(claims))
		for _, c := range claims {
			out = append(out, c.ID)
		}
		return out
	}

	tests := []struct {
		filter string
		want   []int64
	}{
		{"", []int64{4, 3, 2, 1}},
		{repository.FilterAll, []int64{4, 3, 2, 1}},
		{repository.FilterPending, []int64{4, 2}},
		{repository.FilterApproved, []int64{1}},
		{repository.FilterAutoApproved, []int64{1}},
		{repository.FilterRejected, []int64{3}},
		{repository.FilterFlagged, []int64{4, 3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			claims, err := repo.List(repository.ListOptions{Filter: tt.filter})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(claims))
		})
	}

	claims, err := repo.List(repository.ListOptions{Lecturer: "dr. a"})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 1}, ids(claims))
}

// TestClaimRepository_List_Sort 测试排序
func TestClaimRepository_List_Sort(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)

	tests := []struct {
		sort string
		want []int64
	}{
		{repository.SortNewest, []int64{4, 3, 2, 1}},
		{repository.SortOldest, []int64{1, 2, 3, 4}},
		{repository.SortAmountHigh, []int64{4, 3, 2, 1}},
		{repository.SortAmountLow, []int64{1, 2, 3, 4}},
		{repository.SortName, []int64{4, 1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			claims, err := repo.List(repository.ListOptions{Sort: tt.sort})
			require.NoError(t, err)
			got := make([]int64, 0, len(claims))
			for _, c := range claims {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestClaimRepository_List_InvalidOption 测试非法参数
func TestClaimRepository_List_InvalidOption(t *testing.T) {
	repo := newTestRepository()

	_, err := repo.List(repository.ListOptions{Filter: "paid"})
	require.Error(t, err)
	assert.True(t, model.IsValidationError(err))

	_, err = repo.List(repository.ListOptions{Sort: "random"})
	assert.True(t, model.IsValidationError(err))
}

// TestClaimRepository_CountByStatus 测试按状态计数
func TestClaimRepository_CountByStatus(t *testing.T) {
	repo := newTestRepository()
	assert.Equal(t, map[string]int{"pending": 0, "approved": 0, "auto-approved": 0, "rejected": 0}, repo.CountByStatus())

	clock := newFakeClock()
	repo = newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)
	assert.Equal(t, map[string]int{"pending": 3, "approved": 0, "auto-approved": 1, "rejected": 0}, repo.CountByStatus())
}

// TestClaimRepository_LecturerSummaries 测试讲师汇总
func TestClaimRepository_LecturerSummaries(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)

	summaries := repo.LecturerSummaries()
	require.Len(t, summaries, 3)
	a := summaries[0]
	assert.Equal(t, "Dr. A", a.LecturerName)
	assert.Equal(t, 2, a.TotalClaims)
	assert.Equal(t, 1, a.PendingClaims)
	assert.Equal(t, 1, a.ApprovedClaims)
	assert.Equal(t, 360.0, a.TotalApproved)
	require.NotNil(t, a.LastSubmission)
	last, _ := repo.GetByID(4)
	assert.Equal(t, last.SubmittedAt, *a.LastSubmission)
	assert.Equal(t, "Dr. B", summaries[1].LecturerName)
	assert.Equal(t, "Dr. C", summaries[2].LecturerName)
}

// TestClaimRepository_PaymentSummary 测试待付款汇总
func TestClaimRepository_PaymentSummary(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	seedMixed(t, repo, clock)
	_, err := repo.UpdateStatus(2, model.StatusApproved)
	require.NoError(t, err)

	payment := repo.PaymentSummary()
	assert.Equal(t, 2, payment.ReadyForPayment)
	assert.Equal(t, 3060.0, payment.TotalAmount)
	assert.Equal(t, 2, payment.TotalLecturers)
	assert.Equal(t, 2, payment.ProcessedThisMonth)
	assert.Equal(t, 1530.0, payment.AverageClaimAmount)

	assert.Equal(t, repository.PaymentSummary{}, newTestRepository().PaymentSummary())
}

// TestClaimRepository_MonthlyStatistics 测试按月统计
func TestClaimRepository_MonthlyStatistics(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))
	_, err := repo.Create(input("Dr. A", 8, 45))
	require.NoError(t, err)
	clock.Advance(31 * 24 * time.Hour)
	_, err = repo.Create(input("Dr. B", 45, 60))
	require.NoError(t, err)
	_, err = repo.Create(input("Dr. C", 2, 40))
	require.NoError(t, err)

	stats := repo.MonthlyStatistics()
	require.Len(t, stats, 2)
	assert.Equal(t, "2025-03", stats[0].Period)
	assert.Equal(t, 1, stats[0].TotalClaims)
	assert.Equal(t, 360.0, stats[0].TotalAmount)
	assert.Equal(t, "2025-04", stats[1].Period)
	assert.Equal(t, 2, stats[1].TotalClaims)
	assert.Equal(t, 1, stats[1].ApprovedClaims)
	assert.Equal(t, 80.0, stats[1].TotalAmount)
}

// TestClaimRepository_SeedDemo 测试演示数据
func TestClaimRepository_SeedDemo(t *testing.T) {
	repo := newTestRepository()
	n := repo.SeedDemo()
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, repo.Count())

	counts := repo.CountByStatus()
	assert.Equal(t, 1, counts["approved"])
	assert.Equal(t, 1, counts["pending"])
	assert.Equal(t, 1, counts["rejected"])

	// 演示数据之后继续分配 ID
	claim, err := repo.Create(input("Dr. New", 5, 40))
	require.NoError(t, err)
	assert.Equal(t, int64(4), claim.ID)

	sarah, ok := repo.GetByID(1)
	require.True(t, ok)
	assert.Equal(t, 1147.5, sarah.TotalAmount)
	assert.Equal(t, "demo", sarah.ReviewedBy)
	assert.Equal(t, model.ProgressApproved, sarah.Progress)
}

// TestClaimRepository_GetWorkflowAnalysis_HumanReview 测试人工审核平均耗时不受自动审批影响
func TestClaimRepository_GetWorkflowAnalysis_HumanReview(t *testing.T) {
	clock := newFakeClock()
	repo := newTestRepository(repository.WithClock(clock.Now))

	auto, err := repo.Create(input("Dr. A", 5, 50))
	require.NoError(t, err)
	require.Equal(t, model.StatusAutoApproved, auto.Status)
	pending, err := repo.Create(input("Dr. B", 45, 60))
	require.NoError(t, err)

	clock.Advance(3 * time.Hour)
	_, err = repo.UpdateStatus(pending.ID, model.StatusRejected)
	require.NoError(t, err)

	analysis := repo.GetWorkflowAnalysis()
	assert.Equal(t, 2, analysis.ReviewedClaims)
	assert.Equal(t, 1.5, analysis.AverageProcessingTime)
	assert.Equal(t, 1, analysis.HumanReviewedClaims)
	assert.Equal(t, 3.0, analysis.AverageHumanReviewTime)
}
