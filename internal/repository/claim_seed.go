package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/model"
)

type seedClaim struct {
	name     string
	hours    float64
	rate     float64
	notes    string
	status   model.Status
	age      time.Duration
	reviewed time.Duration // 0 表示未审核
}

var demoClaims = []seedClaim{
	{name: "Dr. Sarah Johnson", hours: 25.5, rate: 45, notes: "Lecture prep", status: model.StatusApproved, age: 48 * time.Hour, reviewed: 24 * time.Hour},
	{name: "Prof. Michael Chen", hours: 18, rate: 52, notes: "Tutorials", status: model.StatusPending, age: 6 * time.Hour},
	{name: "Dr. Emily Watson", hours: 12, rate: 48, notes: "Lab supervision", status: model.StatusRejected, age: 72 * time.Hour, reviewed: 48 * time.Hour},
}

// SeedDemo 写入演示数据
// 演示数据直接以给定状态写入,不经过规则评估。返回写入条数。
func (r *ClaimRepository) SeedDemo() int {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range demoClaims {
		r.nextID++
		claim := &model.Claim{
			ID:            r.nextID,
			TrackingToken: uuid.New().String(),
			LecturerName:  s.name,
			HoursWorked:   s.hours,
			HourlyRate:    s.rate,
			TotalAmount:   model.ComputeTotal(s.hours, s.rate),
			Notes:         s.notes,
			Status:        s.status,
			SubmittedAt:   now.Add(-s.age),
		}
		if s.status != model.StatusPending {
			reviewedAt := now.Add(-s.reviewed)
			claim.ReviewedAt = &reviewedAt
			claim.ReviewedBy = "demo"
		}
		claim.RefreshProgress()
		r.claims[claim.ID] = claim
		r.byToken[claim.TrackingToken] = claim.ID
	}
	return len(demoClaims)
}
