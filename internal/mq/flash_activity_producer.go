package mq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// DefaultFlashActivityExchange 秒杀活动事件交换机（topic 类型）
const DefaultFlashActivityExchange = "flash_activity"

// FlashActivityProducer 将秒杀活动领域事件发布到 RabbitMQ
// 路由键为 flash_activity.{type}，下游可按 flash_activity.# 或具体类型绑定队列
type FlashActivityProducer struct {
	cm       *ConnectionManager
	producer *Producer
	exchange string
	appID    string
	logger   *zap.Logger
}

// NewFlashActivityProducer 创建秒杀活动事件生产者
func NewFlashActivityProducer(cm *ConnectionManager, exchange, appID string, logger *zap.Logger) *FlashActivityProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exchange == "" {
		exchange = DefaultFlashActivityExchange
	}
	return &FlashActivityProducer{
		cm:       cm,
		producer: NewProducer(cm, cm.config.Producer, logger),
		exchange: exchange,
		appID:    appID,
		logger:   logger,
	}
}

// SetupInfrastructure 声明交换机，重连后需再次调用
func (p *FlashActivityProducer) SetupInfrastructure(ctx context.Context) error {
	return p.cm.channelPool.WithChannel(func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
		}
		p.logger.Debug("声明交换机", zap.String("exchange", p.exchange))
		return nil
	})
}

// Publish 实现领域事件发布
func (p *FlashActivityProducer) Publish(ctx context.Context, ev *domain.FlashActivityEvent) error {
	body, options, err := buildEventMessage(ev, p.appID)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, p.exchange, ev.Topic(), body, options)
}

// buildEventMessage 编码事件并生成发布选项
func buildEventMessage(ev *domain.FlashActivityEvent, appID string) ([]byte, *PublishOptions, error) {
	if ev == nil {
		return nil, nil, fmt.Errorf("nil flash activity event")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal flash activity event: %w", err)
	}

	return body, &PublishOptions{
		MessageID:   ev.ID,
		Type:        string(ev.Type),
		Timestamp:   ev.OccurredAt,
		ContentType: "application/json",
		AppID:       appID,
		Headers: amqp.Table{
			"event-type":  string(ev.Type),
			"activity-id": ev.ActivityID(),
		},
	}, nil
}

// GetStats 获取生产者统计
func (p *FlashActivityProducer) GetStats() ProducerStats {
	return p.producer.GetStats()
}

// Close 关闭生产者
func (p *FlashActivityProducer) Close() error {
	return p.producer.Close()
}
