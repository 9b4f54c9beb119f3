package domain

import (
	"time"

	"github.com/google/uuid"
)

// FlashActivityEventType 秒杀活动领域事件类型
type FlashActivityEventType string

const (
	FlashActivityEventPublished FlashActivityEventType = "published"
	FlashActivityEventModified  FlashActivityEventType = "modified"
	FlashActivityEventOnline    FlashActivityEventType = "online"
	FlashActivityEventOffline   FlashActivityEventType = "offline"
)

// FlashActivityEvent 秒杀活动生命周期事件，携带变更后的活动快照
type FlashActivityEvent struct {
	ID            string                 `json:"id"`
	Type          FlashActivityEventType `json:"type"`
	FlashActivity *FlashActivity         `json:"flash_activity"`
	OccurredAt    time.Time              `json:"occurred_at"`
}

// NewFlashActivityEvent 创建领域事件，活动以拷贝形式保存，后续修改不影响事件内容
func NewFlashActivityEvent(eventType FlashActivityEventType, activity *FlashActivity, occurredAt time.Time) *FlashActivityEvent {
	return &FlashActivityEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		FlashActivity: activity.Clone(),
		OccurredAt:    occurredAt,
	}
}

// ActivityID 返回事件所属活动ID
func (e *FlashActivityEvent) ActivityID() int64 {
	if e.FlashActivity == nil {
		return 0
	}
	return e.FlashActivity.ID
}

// Topic 返回事件的主题/路由键：flash_activity.{type}
func (e *FlashActivityEvent) Topic() string {
	return "flash_activity." + string(e.Type)
}
