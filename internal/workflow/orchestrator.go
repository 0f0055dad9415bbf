package workflow

import (
	"time"

	"github.com/mautops/claims-gin/internal/metrics"
	"github.com/mautops/claims-gin/internal/model"
	"github.com/sirupsen/logrus"
)

// Orchestrator 审批流程编排,为仓储提供统一的 ProcessClaim 入口
type Orchestrator struct {
	engine *Engine
	logger logrus.FieldLogger
}

// NewOrchestrator 创建流程编排器
func NewOrchestrator(engine *Engine, logger logrus.FieldLogger) *Orchestrator {
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		logger = l
	}
	return &Orchestrator{engine: engine, logger: logger}
}

// Engine 返回底层规则引擎
func (o *Orchestrator) Engine() *Engine {
	return o.engine
}

// ProcessClaim 对报销单执行一次规则评估
func (o *Orchestrator) ProcessClaim(claim *model.Claim) Outcome {
	outcome := o.engine.Evaluate(claim)

	for _, name := range outcome.Flags {
		metrics.RecordRuleMatch(name)
	}

	o.logger.WithFields(logrus.Fields{
		"claim_id":      claim.ID,
		"lecturer":      claim.LecturerName,
		"total_amount":  claim.TotalAmount,
		"matched_rules": outcome.Flags,
		"decision":      outcome.Decision,
	}).Debug("claim processed by workflow")

	return outcome
}

// MatchingRules 只读评估,用于统计
func (o *Orchestrator) MatchingRules(claim *model.Claim) []string {
	return o.engine.MatchingRules(claim)
}

// Preview 对未保存的输入执行评估,不写入仓储
func (o *Orchestrator) Preview(input model.ClaimInput) (Outcome, error) {
	input.Normalize()
	if err := input.Validate(); err != nil {
		return Outcome{}, err
	}
	claim := &model.Claim{
		LecturerName: input.LecturerName,
		HoursWorked:  input.HoursWorked,
		HourlyRate:   input.HourlyRate,
		TotalAmount:  model.ComputeTotal(input.HoursWorked, input.HourlyRate),
		Notes:        input.Notes,
		Status:       model.StatusPending,
		SubmittedAt:  time.Now().UTC(),
	}
	return o.engine.Evaluate(claim), nil
}
