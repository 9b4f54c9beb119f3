// Package event 负责秒杀活动领域事件的发布。
package event

import (
	"context"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// DomainEventPublisher 领域事件发布者
type DomainEventPublisher interface {
	Publish(ctx context.Context, ev *domain.FlashActivityEvent) error
}

// PublisherFunc 函数适配器
type PublisherFunc func(ctx context.Context, ev *domain.FlashActivityEvent) error

func (f PublisherFunc) Publish(ctx context.Context, ev *domain.FlashActivityEvent) error {
	return f(ctx, ev)
}
