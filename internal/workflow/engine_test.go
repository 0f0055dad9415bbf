package workflow_test

import (
	"strings"
	"testing"

	"github.com/mautops/claims-gin/internal/model"
	"github.com/mautops/claims-gin/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClaim(hours, rate float64) *model.Claim {
	return &model.Claim{
		ID:           1,
		LecturerName: "Dr. Test",
		HoursWorked:  hours,
		HourlyRate:   rate,
		TotalAmount:  model.ComputeTotal(hours, rate),
		Status:       model.StatusPending,
	}
}

// recordingRule 记录评估时看到的状态
type recordingRule struct {
	name string
	seen *[]model.Status
}

func (r recordingRule) Name() string { return r.name }
func (r recordingRule) Matches(c *model.Claim) bool {
	*r.seen = append(*r.seen, c.Status)
	return true
}
func (r recordingRule) Apply(*model.Claim) {}

// TestEngine_Rules_DeclarationOrder 测试规则声明顺序
func TestEngine_Rules_DeclarationOrder(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	assert.Equal(t, []string{
		workflow.RuleSmallClaimAutoApproval,
		workflow.RuleHighAmountFlag,
		workflow.RuleOvertimeFlag,
		workflow.RuleUnusualRateFlag,
	}, engine.Rules())
}

// TestEngine_Evaluate_LaterRulesSeeEarlierActions 测试后续规则能看到前面规则的修改
func TestEngine_Evaluate_LaterRulesSeeEarlierActions(t *testing.T) {
	var seen []model.Status
	p := workflow.DefaultPolicy()
	engine := workflow.NewEngine(
		&workflow.SmallClaimAutoApproval{MaxAmount: p.AutoApproveMaxAmount, MaxHours: p.AutoApproveMaxHours},
		recordingRule{name: "recorder", seen: &seen},
	)

	outcome := engine.Evaluate(newClaim(2, 50))
	assert.Equal(t, []string{workflow.RuleSmallClaimAutoApproval, "recorder"}, outcome.Flags)
	assert.Equal(t, []model.Status{model.StatusAutoApproved}, seen)
}

// TestEngine_Evaluate_ScenarioA 小额报销自动审批
func TestEngine_Evaluate_ScenarioA(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(8, 45)

	outcome := engine.Evaluate(claim)
	assert.Equal(t, 360.0, claim.TotalAmount)
	assert.Equal(t, model.StatusAutoApproved, claim.Status)
	assert.Equal(t, []string{workflow.RuleSmallClaimAutoApproval}, outcome.Flags)
	assert.True(t, outcome.AutoApproved)
	assert.Equal(t, workflow.DecisionAutoApproved, outcome.Decision)
	assert.Contains(t, claim.Notes, model.AutoApprovedNoteTag)
	assert.Equal(t, model.ProgressAutoApproved, claim.Progress)
}

// TestEngine_Evaluate_ScenarioB 超时课时标记
func TestEngine_Evaluate_ScenarioB(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(45, 60)

	outcome := engine.Evaluate(claim)
	assert.Equal(t, 2700.0, claim.TotalAmount)
	assert.Equal(t, model.StatusPending, claim.Status)
	assert.Equal(t, []string{workflow.RuleOvertimeFlag}, outcome.Flags)
	assert.True(t, claim.HasFlag(model.FlagOvertime))
	assert.Contains(t, claim.Notes, "[FLAGGED: Overtime hours require justification]")
	assert.Equal(t, workflow.DecisionRequiresReview, outcome.Decision)
	assert.Equal(t, model.ProgressUnderReview, claim.Progress)
}

// TestEngine_Evaluate_ScenarioC 金额等于阈值不触发大额标记
func TestEngine_Evaluate_ScenarioC(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(20, 250)

	outcome := engine.Evaluate(claim)
	assert.Equal(t, 5000.0, claim.TotalAmount)
	assert.Equal(t, model.StatusPending, claim.Status)
	assert.Equal(t, []string{workflow.RuleUnusualRateFlag}, outcome.Flags)
	assert.False(t, claim.HasFlag(model.FlagHighAmount))
	assert.Contains(t, claim.Notes, "[FLAGGED: Unusual hourly rate requires verification]")
}

// TestEngine_Evaluate_MultipleFlags 测试多个标记按顺序追加
func TestEngine_Evaluate_MultipleFlags(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(42, 200)
	claim.Notes = "Semester workload"

	outcome := engine.Evaluate(claim)
	assert.Equal(t, 8400.0, claim.TotalAmount)
	assert.Equal(t, []string{workflow.RuleHighAmountFlag, workflow.RuleOvertimeFlag}, outcome.Flags)
	assert.True(t, strings.HasPrefix(claim.Notes, "Semester workload [FLAGGED: High amount"))
	assert.Less(t, strings.Index(claim.Notes, "High amount"), strings.Index(claim.Notes, "Overtime"))
	require.Len(t, claim.Flags, 2)
	assert.Equal(t, model.FlagHighAmount, claim.Flags[0].Code)
}

// TestEngine_Evaluate_LowRate 测试低于最低课时费
func TestEngine_Evaluate_LowRate(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(20, 25)

	outcome := engine.Evaluate(claim)
	assert.Equal(t, []string{workflow.RuleUnusualRateFlag}, outcome.Flags)
}

// TestEngine_Evaluate_BoundaryAutoApproval 金额和课时都在上限时自动审批
func TestEngine_Evaluate_BoundaryAutoApproval(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(10, 100)

	outcome := engine.Evaluate(claim)
	assert.True(t, outcome.AutoApproved)

	over := newClaim(10.5, 90)
	outcome = engine.Evaluate(over)
	assert.False(t, outcome.AutoApproved)
	assert.Empty(t, outcome.Flags)
	assert.Equal(t, model.ProgressSubmitted, over.Progress)
}

// TestEngine_MatchingRules_DoesNotMutate 测试只读评估
func TestEngine_MatchingRules_DoesNotMutate(t *testing.T) {
	engine := workflow.NewDefaultEngine(workflow.DefaultPolicy())
	claim := newClaim(45, 60)
	claim.Notes = "original"

	names := engine.MatchingRules(claim)
	assert.Equal(t, []string{workflow.RuleOvertimeFlag}, names)
	assert.Equal(t, "original", claim.Notes)
	assert.Empty(t, claim.Flags)
	assert.Equal(t, model.StatusPending, claim.Status)

	assert.Nil(t, engine.MatchingRules(nil))
}

// TestEngine_CustomPolicy 测试自定义阈值
func TestEngine_CustomPolicy(t *testing.T) {
	p := workflow.DefaultPolicy()
	p.AutoApproveMaxAmount = 100
	engine := workflow.NewDefaultEngine(p)

	outcome := engine.Evaluate(newClaim(8, 45))
	assert.False(t, outcome.AutoApproved)
}

// TestOrchestrator_Preview 测试预览不分配 ID
func TestOrchestrator_Preview(t *testing.T) {
	orchestrator := workflow.NewOrchestrator(workflow.NewDefaultEngine(workflow.DefaultPolicy()), nil)

	outcome, err := orchestrator.Preview(model.ClaimInput{LecturerName: " Dr. A ", HoursWorked: 8, HourlyRate: 45})
	require.NoError(t, err)
	assert.Equal(t, int64(0), outcome.Claim.ID)
	assert.Equal(t, "Dr. A", outcome.Claim.LecturerName)
	assert.True(t, outcome.AutoApproved)

	_, err = orchestrator.Preview(model.ClaimInput{LecturerName: "Dr. A"})
	assert.True(t, model.IsValidationError(err))
}
