package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// LoggingPublisher 记录每个成功发布的领域事件，失败由调用方记录
type LoggingPublisher struct {
	next   DomainEventPublisher
	logger *zap.Logger
}

// NewLoggingPublisher 创建日志装饰器，next 为 nil 时仅记录日志
func NewLoggingPublisher(next DomainEventPublisher, logger *zap.Logger) *LoggingPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPublisher{next: next, logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, ev *domain.FlashActivityEvent) error {
	fields := []zap.Field{
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
		zap.Int64("activity_id", ev.ActivityID()),
	}

	if p.next != nil {
		if err := p.next.Publish(ctx, ev); err != nil {
			return err
		}
	}

	p.logger.Info("flash activity event published", fields...)
	return nil
}
