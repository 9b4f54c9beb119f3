package mq

import (
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelPool 通道池，复用 AMQP 通道，池满或通道失效时直接丢弃
type ChannelPool struct {
	maxSize  int
	channels chan *amqp.Channel
	cm       *ConnectionManager
	closed   int32

	created   int64
	reused    int64
	discarded int64
}

// NewChannelPool 创建通道池
func NewChannelPool(maxSize int, cm *ConnectionManager) *ChannelPool {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &ChannelPool{
		maxSize:  maxSize,
		channels: make(chan *amqp.Channel, maxSize),
		cm:       cm,
	}
}

// Get 获取通道，池中无可用通道时新建
func (cp *ChannelPool) Get() (*amqp.Channel, error) {
	if atomic.LoadInt32(&cp.closed) == 1 {
		return nil, fmt.Errorf("channel pool is closed")
	}

	for {
		select {
		case ch := <-cp.channels:
			if ch != nil && !ch.IsClosed() {
				atomic.AddInt64(&cp.reused, 1)
				return ch, nil
			}
			atomic.AddInt64(&cp.discarded, 1)
			continue
		default:
		}
		break
	}

	conn := cp.cm.GetConnection()
	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("connection is not available")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	atomic.AddInt64(&cp.created, 1)
	return ch, nil
}

// Return 归还通道
func (cp *ChannelPool) Return(ch *amqp.Channel) {
	if ch == nil || ch.IsClosed() {
		atomic.AddInt64(&cp.discarded, 1)
		return
	}
	if atomic.LoadInt32(&cp.closed) == 1 {
		_ = ch.Close()
		return
	}

	select {
	case cp.channels <- ch:
	default:
		_ = ch.Close()
		atomic.AddInt64(&cp.discarded, 1)
	}
}

// Discard 丢弃出错的通道
func (cp *ChannelPool) Discard(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		_ = ch.Close()
	}
	atomic.AddInt64(&cp.discarded, 1)
}

// Close 关闭通道池
func (cp *ChannelPool) Close() {
	if !atomic.CompareAndSwapInt32(&cp.closed, 0, 1) {
		return
	}

	for {
		select {
		case ch := <-cp.channels:
			if ch != nil && !ch.IsClosed() {
				_ = ch.Close()
			}
		default:
			return
		}
	}
}

// WithChannel 使用通道执行操作，出错时丢弃通道
func (cp *ChannelPool) WithChannel(fn func(*amqp.Channel) error) error {
	ch, err := cp.Get()
	if err != nil {
		return err
	}
	if err := fn(ch); err != nil {
		cp.Discard(ch)
		return err
	}
	cp.Return(ch)
	return nil
}

// GetStats 获取通道池统计信息
func (cp *ChannelPool) GetStats() ChannelPoolStats {
	return ChannelPoolStats{
		MaxSize:   cp.maxSize,
		Available: len(cp.channels),
		Created:   atomic.LoadInt64(&cp.created),
		Reused:    atomic.LoadInt64(&cp.reused),
		Discarded: atomic.LoadInt64(&cp.discarded),
		Closed:    atomic.LoadInt32(&cp.closed) == 1,
	}
}

// ChannelPoolStats 通道池统计信息
type ChannelPoolStats struct {
	MaxSize   int   `json:"max_size"`
	Available int   `json:"available"`
	Created   int64 `json:"created"`
	Reused    int64 `json:"reused"`
	Discarded int64 `json:"discarded"`
	Closed    bool  `json:"closed"`
}
