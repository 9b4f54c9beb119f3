package event

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// 消息元数据键
const (
	MetadataEventType  = "event_type"
	MetadataActivityID = "activity_id"
)

// WatermillPublisher 通过 watermill 发布领域事件，topic 为 flash_activity.{type}
type WatermillPublisher struct {
	publisher message.Publisher
	logger    *zap.Logger
}

// NewWatermillPublisher 基于任意 watermill Publisher 创建事件发布者
func NewWatermillPublisher(publisher message.Publisher, logger *zap.Logger) *WatermillPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WatermillPublisher{publisher: publisher, logger: logger}
}

// NewGoChannelBus 创建进程内事件总线，同时可作为订阅者使用
func NewGoChannelBus(logger *zap.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, NewWatermillLogger(logger))
}

// NewRedisStreamPublisher 创建基于 Redis Stream 的 watermill 发布者
func NewRedisStreamPublisher(client redis.UniversalClient, logger *zap.Logger) (message.Publisher, error) {
	pub, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{Client: client},
		NewWatermillLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create redis stream publisher: %w", err)
	}
	return pub, nil
}

// Publish 将事件编码为 JSON 并发布
func (p *WatermillPublisher) Publish(ctx context.Context, ev *domain.FlashActivityEvent) error {
	msg, err := NewMessage(ev)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := p.publisher.Publish(ev.Topic(), msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Topic(), err)
	}

	p.logger.Debug("flash activity event published to bus",
		zap.String("topic", ev.Topic()),
		zap.String("message_uuid", msg.UUID),
	)
	return nil
}

// Close 关闭底层发布者
func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NewMessage 构造 watermill 消息，消息ID沿用事件ID
func NewMessage(ev *domain.FlashActivityEvent) (*message.Message, error) {
	if ev == nil {
		return nil, fmt.Errorf("nil flash activity event")
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal flash activity event: %w", err)
	}

	msg := message.NewMessage(ev.ID, payload)
	msg.Metadata.Set(MetadataEventType, string(ev.Type))
	msg.Metadata.Set(MetadataActivityID, strconv.FormatInt(ev.ActivityID(), 10))
	return msg, nil
}

// DecodeMessage 从 watermill 消息还原领域事件
func DecodeMessage(msg *message.Message) (*domain.FlashActivityEvent, error) {
	var ev domain.FlashActivityEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal flash activity event: %w", err)
	}
	return &ev, nil
}
