package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/claims-gin/internal/model"
)

// TopicCoordinators 协调员群组,接收新提交通知
const TopicCoordinators = "coordinators"

// 事件类型
const (
	EventNewClaimSubmitted = "NewClaimSubmitted"
	EventStatusUpdated     = "StatusUpdated"
)

// Event 通知事件
type Event struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ClaimID       int64     `json:"claim_id"`
	TrackingToken string    `json:"tracking_token"`
	LecturerName  string    `json:"lecturer_name"`
	Status        string    `json:"status"`
	Progress      string    `json:"progress"`
	TotalAmount   float64   `json:"total_amount"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewClaimSubmitted 新提交事件
func NewClaimSubmitted(claim *model.Claim) Event {
	return newEvent(EventNewClaimSubmitted, claim, "New claim submitted by "+claim.LecturerName)
}

// StatusUpdated 状态变更事件
func StatusUpdated(claim *model.Claim) Event {
	return newEvent(EventStatusUpdated, claim, "Claim status changed to "+claim.Status.String())
}

func newEvent(eventType string, claim *model.Claim, message string) Event {
	return Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		ClaimID:       claim.ID,
		TrackingToken: claim.TrackingToken,
		LecturerName:  claim.LecturerName,
		Status:        claim.Status.String(),
		Progress:      claim.Progress,
		TotalAmount:   claim.TotalAmount,
		Message:       message,
		OccurredAt:    time.Now().UTC(),
	}
}

// Publisher 通知投递接口
type Publisher interface {
	Publish(ctx context.Context, topic string, evt Event) error
}

// Sink 具名的投递目标
type Sink interface {
	Publisher
	Name() string
}

// PublisherFunc 函数适配器
type PublisherFunc func(ctx context.Context, topic string, evt Event) error

// Publish 调用函数本身
func (f PublisherFunc) Publish(ctx context.Context, topic string, evt Event) error {
	return f(ctx, topic, evt)
}

type namedSink struct {
	name string
	Publisher
}

func (s namedSink) Name() string { return s.name }

// NamedSink 为 Publisher 指定名称
func NamedSink(name string, p Publisher) Sink {
	return namedSink{name: name, Publisher: p}
}
