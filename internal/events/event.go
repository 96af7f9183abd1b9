// Package events defines reservation lifecycle messages published to the
// message broker for downstream consumers (notifications, analytics).
package events

import (
	"context"
	"time"
)

const (
	// QueueName 為預約事件佇列，durable，消費端與發佈端共用。
	QueueName = "reservation.events"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ReservationEvent 描述一次預約的建立、更新或刪除。
type ReservationEvent struct {
	Action          string    `json:"action"`
	ReservationID   int       `json:"reservation_id"`
	UserID          int       `json:"user_id"`
	ReservationTime time.Time `json:"reservation_time"`
	Guests          int       `json:"guests"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher sends reservation events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
	Close() error
}

// NopPublisher 在未設定 broker 時使用，丟棄所有事件。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
func (NopPublisher) Close() error                                    { return nil }

// FakePublisher 供測試替換 Publisher 實作。
type FakePublisher struct {
	PublishFn func(ctx context.Context, ev ReservationEvent) error
	CloseFn   func() error
}

// Publish 執行 Fake 設定或 panic
func (f *FakePublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	if f.PublishFn != nil {
		return f.PublishFn(ctx, ev)
	}
	panic("unexpected Publish")
}

// Close 執行 Fake 設定或 no-op
func (f *FakePublisher) Close() error {
	if f.CloseFn != nil {
		return f.CloseFn()
	}
	return nil
}
