package mq

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ErrProducerClosed 生产者已关闭
var ErrProducerClosed = errors.New("producer is closed")

// ErrNacked 消息被 broker 拒绝
var ErrNacked = errors.New("message was nacked by broker")

// channelSource 通道来源，测试中可替换
type channelSource interface {
	GetChannel() (*amqp.Channel, error)
	ReturnChannel(ch *amqp.Channel)
}

// Producer RabbitMQ生产者，支持发布确认与失败重试
type Producer struct {
	source channelSource
	config *ProducerConfig
	logger *zap.Logger

	publishedCount int64
	confirmedCount int64
	failedCount    int64

	closed int32
}

// PublishOptions 发布选项
type PublishOptions struct {
	Mandatory   bool
	Headers     amqp.Table
	MessageID   string
	Timestamp   time.Time
	Type        string
	ContentType string
	AppID       string
}

// NewProducer 创建生产者
func NewProducer(cm *ConnectionManager, config *ProducerConfig, logger *zap.Logger) *Producer {
	return newProducer(cm, config, logger)
}

func newProducer(source channelSource, config *ProducerConfig, logger *zap.Logger) *Producer {
	if config == nil {
		config = DefaultProducerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{source: source, config: config, logger: logger}
}

// Publish 发布消息，开启重试时按固定间隔重试
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body []byte, options *PublishOptions) error {
	if atomic.LoadInt32(&p.closed) == 1 {
		return ErrProducerClosed
	}

	publishing := buildPublishing(body, options)
	mandatory := options != nil && options.Mandatory

	maxAttempts := 1
	if p.config.EnableRetry {
		maxAttempts = p.config.MaxRetryAttempts + 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = p.publishOnce(ctx, exchange, routingKey, mandatory, publishing)
		if lastErr == nil {
			return nil
		}

		p.logger.Warn("消息发布失败",
			zap.String("exchange", exchange),
			zap.String("routing_key", routingKey),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(lastErr))

		if attempt == maxAttempts {
			break
		}

		select {
		case <-time.After(p.config.RetryInterval):
		case <-ctx.Done():
			atomic.AddInt64(&p.failedCount, 1)
			return ctx.Err()
		}
	}

	atomic.AddInt64(&p.failedCount, 1)
	return fmt.Errorf("failed to publish message after %d attempts: %w", maxAttempts, lastErr)
}

// publishOnce 单次发布，确认模式下等待 broker ack
func (p *Producer) publishOnce(ctx context.Context, exchange, routingKey string, mandatory bool, publishing amqp.Publishing) error {
	ch, err := p.source.GetChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if p.config.EnableConfirm {
		if err := ch.Confirm(false); err != nil {
			_ = ch.Close()
			return fmt.Errorf("failed to set confirm mode: %w", err)
		}
	}

	confirmation, err := ch.PublishWithDeferredConfirmWithContext(publishCtx, exchange, routingKey, mandatory, false, publishing)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to publish message: %w", err)
	}
	atomic.AddInt64(&p.publishedCount, 1)

	if confirmation == nil {
		p.source.ReturnChannel(ch)
		return nil
	}

	confirmCtx, cancelConfirm := context.WithTimeout(ctx, p.config.ConfirmTimeout)
	defer cancelConfirm()

	acked, err := confirmation.WaitContext(confirmCtx)
	if err != nil {
		// 确认未到达的通道状态不可知，不再复用
		_ = ch.Close()
		return fmt.Errorf("publish confirmation: %w", err)
	}
	p.source.ReturnChannel(ch)

	if !acked {
		return ErrNacked
	}
	atomic.AddInt64(&p.confirmedCount, 1)
	return nil
}

// buildPublishing 构建持久化消息
func buildPublishing(body []byte, options *PublishOptions) amqp.Publishing {
	publishing := amqp.Publishing{
		Body:         body,
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	if options == nil {
		return publishing
	}
	if options.Headers != nil {
		publishing.Headers = options.Headers
	}
	if options.MessageID != "" {
		publishing.MessageId = options.MessageID
	}
	if !options.Timestamp.IsZero() {
		publishing.Timestamp = options.Timestamp
	}
	if options.Type != "" {
		publishing.Type = options.Type
	}
	if options.ContentType != "" {
		publishing.ContentType = options.ContentType
	}
	if options.AppID != "" {
		publishing.AppId = options.AppID
	}
	return publishing
}

// Close 关闭生产者
func (p *Producer) Close() error {
	atomic.StoreInt32(&p.closed, 1)
	return nil
}

// GetStats 获取统计信息
func (p *Producer) GetStats() ProducerStats {
	return ProducerStats{
		PublishedCount: atomic.LoadInt64(&p.publishedCount),
		ConfirmedCount: atomic.LoadInt64(&p.confirmedCount),
		FailedCount:    atomic.LoadInt64(&p.failedCount),
		ConfirmMode:    p.config.EnableConfirm,
	}
}

// ProducerStats 生产者统计信息
type ProducerStats struct {
	PublishedCount int64 `json:"published_count"`
	ConfirmedCount int64 `json:"confirmed_count"`
	FailedCount    int64 `json:"failed_count"`
	ConfirmMode    bool  `json:"confirm_mode"`
}
