package workflow

import (
	"github.com/mautops/claims-gin/internal/model"
)

// 审批结论
const (
	DecisionAutoApproved   = "Auto-Approved"
	DecisionRequiresReview = "Requires Review"
)

// Outcome 一次规则评估的结果
type Outcome struct {
	Claim        *model.Claim `json:"claim"`
	Flags        []string     `json:"flags"` // 命中的规则名称,按声明顺序
	AutoApproved bool         `json:"is_auto_approved"`
	Decision     string       `json:"decision"`
}

// Engine 按声明顺序执行的规则引擎
type Engine struct {
	rules []Rule
}

// NewEngine 创建规则引擎
func NewEngine(rules ...Rule) *Engine {
	rs := make([]Rule, len(rules))
	copy(rs, rules)
	return &Engine{rules: rs}
}

// NewDefaultEngine 使用默认规则集创建规则引擎
func NewDefaultEngine(p Policy) *Engine {
	return NewEngine(DefaultRules(p)...)
}

// Rules 返回规则名称列表
func (e *Engine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate 依次评估所有规则,命中即执行动作
// 后续规则的条件可以看到前面规则动作造成的修改
func (e *Engine) Evaluate(claim *model.Claim) Outcome {
	matched := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Matches(claim) {
			r.Apply(claim)
			matched = append(matched, r.Name())
		}
	}
	claim.RefreshProgress()

	autoApproved := claim.Status == model.StatusAutoApproved
	decision := DecisionRequiresReview
	if autoApproved {
		decision = DecisionAutoApproved
	}
	return Outcome{
		Claim:        claim,
		Flags:        matched,
		AutoApproved: autoApproved,
		Decision:     decision,
	}
}

// MatchingRules 返回命中的规则名称,不修改报销单
// 动作在副本上执行,保证与 Evaluate 的命中顺序一致
func (e *Engine) MatchingRules(claim *model.Claim) []string {
	if claim == nil {
		return nil
	}
	scratch := claim.Clone()
	matched := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		if r.Matches(scratch) {
			r.Apply(scratch)
			matched = append(matched, r.Name())
		}
	}
	return matched
}
