package workflow

import (
	"github.com/mautops/claims-gin/internal/model"
)

// 默认规则名称
const (
	RuleSmallClaimAutoApproval = "Small-claim auto-approval"
	RuleHighAmountFlag         = "High-amount flag"
	RuleOvertimeFlag           = "Overtime flag"
	RuleUnusualRateFlag        = "Unusual-rate flag"
)

// Rule 审批规则
// Matches 只读,Apply 原地修改报销单
type Rule interface {
	Name() string
	Matches(claim *model.Claim) bool
	Apply(claim *model.Claim)
}

// Policy 默认规则集的阈值
type Policy struct {
	AutoApproveMaxAmount float64
	AutoApproveMaxHours  float64
	HighAmountThreshold  float64
	OvertimeHours        float64
	MinHourlyRate        float64
	MaxHourlyRate        float64
}

// DefaultPolicy 返回默认阈值
func DefaultPolicy() Policy {
	return Policy{
		AutoApproveMaxAmount: 1000,
		AutoApproveMaxHours:  10,
		HighAmountThreshold:  5000,
		OvertimeHours:        40,
		MinHourlyRate:        30,
		MaxHourlyRate:        200,
	}
}

// DefaultRules 按声明顺序构造默认规则集
func DefaultRules(p Policy) []Rule {
	return []Rule{
		&SmallClaimAutoApproval{MaxAmount: p.AutoApproveMaxAmount, MaxHours: p.AutoApproveMaxHours},
		&HighAmountFlag{Threshold: p.HighAmountThreshold},
		&OvertimeFlag{MaxHours: p.OvertimeHours},
		&UnusualRateFlag{Min: p.MinHourlyRate, Max: p.MaxHourlyRate},
	}
}

// SmallClaimAutoApproval 小额报销自动审批
type SmallClaimAutoApproval struct {
	MaxAmount float64
	MaxHours  float64
}

func (r *SmallClaimAutoApproval) Name() string { return RuleSmallClaimAutoApproval }

func (r *SmallClaimAutoApproval) Matches(claim *model.Claim) bool {
	return claim.TotalAmount <= r.MaxAmount && claim.HoursWorked <= r.MaxHours
}

func (r *SmallClaimAutoApproval) Apply(claim *model.Claim) {
	claim.Status = model.StatusAutoApproved
	claim.AppendNote(model.AutoApprovedNoteTag)
}

// HighAmountFlag 大额报销需要经理复核
type HighAmountFlag struct {
	Threshold float64
}

func (r *HighAmountFlag) Name() string { return RuleHighAmountFlag }

func (r *HighAmountFlag) Matches(claim *model.Claim) bool {
	return claim.TotalAmount > r.Threshold
}

func (r *HighAmountFlag) Apply(claim *model.Claim) {
	claim.AddFlag(model.Flag{
		Rule:    r.Name(),
		Code:    model.FlagHighAmount,
		Message: "High amount requires manager review",
	})
}

// OvertimeFlag 超时课时需要说明
type OvertimeFlag struct {
	MaxHours float64
}

func (r *OvertimeFlag) Name() string { return RuleOvertimeFlag }

func (r *OvertimeFlag) Matches(claim *model.Claim) bool {
	return claim.HoursWorked > r.MaxHours
}

func (r *OvertimeFlag) Apply(claim *model.Claim) {
	claim.AddFlag(model.Flag{
		Rule:    r.Name(),
		Code:    model.FlagOvertime,
		Message: "Overtime hours require justification",
	})
}

// UnusualRateFlag 课时费异常
type UnusualRateFlag struct {
	Min float64
	Max float64
}

func (r *UnusualRateFlag) Name() string { return RuleUnusualRateFlag }

func (r *UnusualRateFlag) Matches(claim *model.Claim) bool {
	return claim.HourlyRate > r.Max || claim.HourlyRate < r.Min
}

func (r *UnusualRateFlag) Apply(claim *model.Claim) {
	claim.AddFlag(model.Flag{
		Rule:    r.Name(),
		Code:    model.FlagUnusualRate,
		Message: "Unusual hourly rate requires verification",
	})
}
