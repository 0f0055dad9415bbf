package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// 规则写入备注的标签
const (
	FlaggedTagPrefix    = "[FLAGGED:"
	AutoApprovedNoteTag = "[AUTO-APPROVED: Small claim]"
)

// FlagCode 标记类型
type FlagCode string

const (
	FlagHighAmount  FlagCode = "high_amount"
	FlagOvertime    FlagCode = "overtime"
	FlagUnusualRate FlagCode = "unusual_rate"
)

// Flag 规则引擎产生的结构化标记
type Flag struct {
	Rule    string   `json:"rule"`
	Code    FlagCode `json:"code"`
	Message string   `json:"message"`
}

// Tag 返回写入备注的展示标签
func (f Flag) Tag() string {
	return FlaggedTagPrefix + " " + f.Message + "]"
}

// Claim 讲师课时报销单
type Claim struct {
	ID              int64      `json:"id"`
	TrackingToken   string     `json:"tracking_token"`
	LecturerName    string     `json:"lecturer_name"`
	HoursWorked     float64    `json:"hours_worked"`
	HourlyRate      float64    `json:"hourly_rate"`
	TotalAmount     float64    `json:"total_amount"`
	Notes           string     `json:"notes"`
	Flags           []Flag     `json:"flags"`
	Status          Status     `json:"status"`
	Progress        string     `json:"progress"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	FileName        string     `json:"file_name,omitempty"`
	FilePath        string     `json:"file_path,omitempty"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
}

// ComputeTotal 计算金额: round(hours × rate, 2)
func ComputeTotal(hours, rate float64) float64 {
	return decimal.NewFromFloat(hours).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}

// RoundAmount 金额保留两位小数
func RoundAmount(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

// AppendNote 追加备注(只追加,不覆盖)
func (c *Claim) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if c.Notes == "" {
		c.Notes = note
		return
	}
	c.Notes += " " + note
}

// AddFlag 添加结构化标记并在备注中渲染标签
func (c *Claim) AddFlag(flag Flag) {
	c.Flags = append(c.Flags, flag)
	c.AppendNote(flag.Tag())
}

// IsFlagged 是否被规则标记
func (c *Claim) IsFlagged() bool {
	return len(c.Flags) > 0
}

// HasFlag 是否包含指定标记
func (c *Claim) HasFlag(code FlagCode) bool {
	for _, f := range c.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

// RefreshProgress 根据状态刷新进度标签
func (c *Claim) RefreshProgress() {
	c.Progress = c.Status.Progress(c.IsFlagged())
}

// ProcessingTime 提交到审核的耗时,未审核时返回 false
func (c *Claim) ProcessingTime() (time.Duration, bool) {
	if c.ReviewedAt == nil {
		return 0, false
	}
	return c.ReviewedAt.Sub(c.SubmittedAt), true
}

// Clone 深拷贝
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Flags != nil {
		cp.Flags = make([]Flag, len(c.Flags))
		copy(cp.Flags, c.Flags)
	}
	if c.ReviewedAt != nil {
		t := *c.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}
