package model

import (
	"fmt"
	"strings"
)

// Status 报销单状态
type Status string

const (
	StatusPending      Status = "pending"
	StatusApproved     Status = "approved"
	StatusAutoApproved Status = "auto-approved"
	StatusRejected     Status = "rejected"
)

// 进度标签
const (
	ProgressSubmitted    = "Submitted"
	ProgressUnderReview  = "Under Review"
	ProgressApproved     = "Approved"
	ProgressAutoApproved = "Auto-Approved"
	ProgressRejected     = "Rejected"
)

// AllStatuses 返回全部状态（按生命周期顺序）
func AllStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusAutoApproved, StatusRejected}
}

// ParseStatus 解析状态字符串
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusAutoApproved:
		return StatusAutoApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsValid 判断是否为已知状态
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusAutoApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal 判断是否为终态
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusAutoApproved, StatusRejected:
		return true
	}
	return false
}

// CountsAsApproved 人工审批通过和自动审批通过都视为已通过
func (s Status) CountsAsApproved() bool {
	switch s {
	case StatusApproved, StatusAutoApproved:
		return true
	}
	return false
}

// CanTransitionTo 只允许 pending -> 终态
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Progress 返回展示用的进度标签
func (s Status) Progress(flagged bool) string {
	switch s {
	case StatusApproved:
		return ProgressApproved
	case StatusAutoApproved:
		return ProgressAutoApproved
	case StatusRejected:
		return ProgressRejected
	case StatusPending:
		if flagged {
			return ProgressUnderReview
		}
		return ProgressSubmitted
	}
	return ""
}

func (s Status) String() string {
	return string(s)
}
