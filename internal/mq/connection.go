package mq

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectionState 连接状态
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionManager RabbitMQ连接管理器，负责断线重连和通道复用
type ConnectionManager struct {
	config *Config
	logger *zap.Logger

	conn      *amqp.Connection
	connMutex sync.RWMutex
	state     int32

	channelPool *ChannelPool

	stopCh         chan struct{}
	stopOnce       sync.Once
	reconnectCount int32

	// 重连成功后的回调，用于重新声明交换机等拓扑
	onReconnected func()
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager(config *Config, logger *zap.Logger) *ConnectionManager {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &ConnectionManager{
		config: config,
		logger: logger,
		state:  int32(StateDisconnected),
		stopCh: make(chan struct{}),
	}
	cm.channelPool = NewChannelPool(config.MaxChannels, cm)
	return cm
}

// Connect 建立连接
func (cm *ConnectionManager) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&cm.state, int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("connection is already in progress or connected")
	}

	cm.logger.Info("连接RabbitMQ", zap.String("url", cm.config.redactedURL()))

	if err := cm.dial(ctx); err != nil {
		atomic.StoreInt32(&cm.state, int32(StateDisconnected))
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	cm.logger.Info("RabbitMQ连接成功")
	go cm.monitorConnection()
	return nil
}

// dial 建立底层连接，受 ctx 与连接超时约束
func (cm *ConnectionManager) dial(ctx context.Context) error {
	if cm.config.ConnectionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cm.config.ConnectionTimeout)
		defer cancel()
	}

	type result struct {
		conn *amqp.Connection
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := amqp.DialConfig(cm.config.GetConnectionURL(), amqp.Config{
			Heartbeat: cm.config.HeartbeatInterval,
			Locale:    "en_US",
		})
		done <- result{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return r.err
		}
		cm.connMutex.Lock()
		cm.conn = r.conn
		cm.connMutex.Unlock()
		atomic.StoreInt32(&cm.state, int32(StateConnected))
		return nil
	case <-ctx.Done():
		// 连接晚于超时建立时直接关闭
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return ctx.Err()
	}
}

// GetConnection 获取连接
func (cm *ConnectionManager) GetConnection() *amqp.Connection {
	cm.connMutex.RLock()
	defer cm.connMutex.RUnlock()
	return cm.conn
}

// GetChannel 从通道池获取通道
func (cm *ConnectionManager) GetChannel() (*amqp.Channel, error) {
	return cm.channelPool.Get()
}

// ReturnChannel 归还通道
func (cm *ConnectionManager) ReturnChannel(ch *amqp.Channel) {
	cm.channelPool.Return(ch)
}

// IsConnected 检查是否已连接
func (cm *ConnectionManager) IsConnected() bool {
	return cm.GetState() == StateConnected
}

// GetState 获取连接状态
func (cm *ConnectionManager) GetState() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&cm.state))
}

// OnReconnected 设置重连成功回调
func (cm *ConnectionManager) OnReconnected(fn func()) {
	cm.onReconnected = fn
}

// Close 关闭连接，可重复调用
func (cm *ConnectionManager) Close() error {
	if cm.GetState() == StateClosed {
		return nil
	}
	atomic.StoreInt32(&cm.state, int32(StateClosed))
	cm.logger.Info("关闭RabbitMQ连接")

	cm.stopOnce.Do(func() { close(cm.stopCh) })
	cm.channelPool.Close()

	cm.connMutex.Lock()
	defer cm.connMutex.Unlock()
	if cm.conn != nil {
		err := cm.conn.Close()
		cm.conn = nil
		return err
	}
	return nil
}

// monitorConnection 监听连接关闭事件并触发重连
func (cm *ConnectionManager) monitorConnection() {
	conn := cm.GetConnection()
	if conn == nil {
		return
	}

	closeCh := conn.NotifyClose(make(chan *amqp.Error, 1))

	select {
	case err := <-closeCh:
		if err == nil {
			return // 主动关闭
		}
		if !atomic.CompareAndSwapInt32(&cm.state, int32(StateConnected), int32(StateReconnecting)) {
			return
		}
		cm.logger.Warn("RabbitMQ连接断开，开始重连", zap.Error(err))
		if cm.config.EnableReconnect {
			go cm.reconnect()
		} else {
			atomic.StoreInt32(&cm.state, int32(StateDisconnected))
		}
	case <-cm.stopCh:
	}
}

// reconnect 按固定间隔重连，直到成功、达到最大次数或被关闭
func (cm *ConnectionManager) reconnect() {
	maxAttempts := cm.config.MaxReconnectAttempts

	for attempt := 1; ; attempt++ {
		select {
		case <-cm.stopCh:
			return
		case <-time.After(cm.config.ReconnectInterval):
		}

		atomic.AddInt32(&cm.reconnectCount, 1)
		cm.logger.Info("尝试重连RabbitMQ", zap.Int("attempt", attempt), zap.Int("max_attempts", maxAttempts))

		err := cm.dial(context.Background())
		if err == nil {
			cm.logger.Info("RabbitMQ重连成功", zap.Int("attempts", attempt))
			if cm.onReconnected != nil {
				cm.onReconnected()
			}
			go cm.monitorConnection()
			return
		}

		cm.logger.Error("RabbitMQ重连失败", zap.Error(err), zap.Int("attempt", attempt))
		if maxAttempts > 0 && attempt >= maxAttempts {
			cm.logger.Error("RabbitMQ重连失败，达到最大重试次数", zap.Int("max_attempts", maxAttempts))
			atomic.StoreInt32(&cm.state, int32(StateDisconnected))
			return
		}
	}
}

// GetStats 获取连接统计信息
func (cm *ConnectionManager) GetStats() ConnectionStats {
	return ConnectionStats{
		State:            cm.GetState().String(),
		ReconnectCount:   atomic.LoadInt32(&cm.reconnectCount),
		ChannelPoolStats: cm.channelPool.GetStats(),
	}
}

// ConnectionStats 连接统计信息
type ConnectionStats struct {
	State            string           `json:"state"`
	ReconnectCount   int32            `json:"reconnect_count"`
	ChannelPoolStats ChannelPoolStats `json:"channel_pool_stats"`
}
