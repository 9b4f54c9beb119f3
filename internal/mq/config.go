// Package mq 提供基于 RabbitMQ 的领域事件投递：连接管理、通道池与生产者。
package mq

import (
	"fmt"
	"net/url"
	"time"

	"github.com/MorseWayne/flash_sale/internal/config"
)

// Config RabbitMQ配置
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	VHost    string

	MaxChannels       int
	ConnectionTimeout time.Duration
	HeartbeatInterval time.Duration

	// 重连配置，MaxReconnectAttempts 为 0 表示不限次数
	EnableReconnect      bool
	ReconnectInterval    time.Duration
	MaxReconnectAttempts int

	Producer *ProducerConfig
}

// ProducerConfig 生产者配置
type ProducerConfig struct {
	EnableConfirm  bool
	ConfirmTimeout time.Duration

	EnableRetry      bool
	MaxRetryAttempts int
	RetryInterval    time.Duration

	PublishTimeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:     "localhost",
		Port:     5672,
		Username: "guest",
		Password: "guest",
		VHost:    "/",

		MaxChannels:       16,
		ConnectionTimeout: 10 * time.Second,
		HeartbeatInterval: 10 * time.Second,

		EnableReconnect:      true,
		ReconnectInterval:    5 * time.Second,
		MaxReconnectAttempts: 0,

		Producer: DefaultProducerConfig(),
	}
}

// DefaultProducerConfig 默认开启发布确认与重试
func DefaultProducerConfig() *ProducerConfig {
	return &ProducerConfig{
		EnableConfirm:    true,
		ConfirmTimeout:   5 * time.Second,
		EnableRetry:      true,
		MaxRetryAttempts: 3,
		RetryInterval:    500 * time.Millisecond,
		PublishTimeout:   5 * time.Second,
	}
}

// ConfigFromApp 由服务配置生成 RabbitMQ 配置
func ConfigFromApp(cfg config.RabbitMQConfig) *Config {
	c := DefaultConfig()
	c.Host = cfg.Host
	c.Port = cfg.Port
	c.Username = cfg.Username
	c.Password = cfg.Password
	if cfg.VHost != "" {
		c.VHost = cfg.VHost
	}
	return c
}

// GetConnectionURL 获取连接URL，vhost 需要转义（默认 "/" 编码为 %2F）
func (c *Config) GetConnectionURL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.Username, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + url.PathEscape(c.VHost),
	}
	return u.String()
}

// redactedURL 日志中使用的连接地址，不含密码
func (c *Config) redactedURL() string {
	return fmt.Sprintf("amqp://%s@%s:%d/%s", c.Username, c.Host, c.Port, url.PathEscape(c.VHost))
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required")
	}
	if c.MaxChannels <= 0 {
		return fmt.Errorf("max_channels must be greater than 0")
	}
	if c.HeartbeatInterval <= 0 {
		return fmt.Errorf("heartbeat_interval must be greater than 0")
	}
	if c.Producer != nil {
		if err := c.Producer.Validate(); err != nil {
			return fmt.Errorf("producer config validation failed: %w", err)
		}
	}
	return nil
}

// Validate 验证生产者配置
func (c *ProducerConfig) Validate() error {
	if c.EnableConfirm && c.ConfirmTimeout <= 0 {
		return fmt.Errorf("confirm_timeout must be greater than 0")
	}
	if c.MaxRetryAttempts < 0 {
		return fmt.Errorf("max_retry_attempts must be >= 0")
	}
	if c.EnableRetry && c.RetryInterval <= 0 {
		return fmt.Errorf("retry_interval must be greater than 0")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be greater than 0")
	}
	return nil
}
