// Package limiter 提供请求限流能力：Redis 令牌桶与进程内令牌桶
package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/config"
)

// LimitResult 限流结果
type LimitResult struct {
	Allowed    bool          `json:"allowed"`     // 是否允许通过
	Remaining  int64         `json:"remaining"`   // 剩余配额
	RetryAfter time.Duration `json:"retry_after"` // 建议重试时间
}

// Limiter 限流器接口
type Limiter interface {
	// Allow 检查是否允许请求通过
	Allow(ctx context.Context, key string) (*LimitResult, error)

	// AllowN 检查是否允许N个请求通过
	AllowN(ctx context.Context, key string, n int64) (*LimitResult, error)

	// Reset 重置限流状态
	Reset(ctx context.Context, key string) error
}

// DefaultMaxLocalKeys 本地限流器最多保留的令牌桶数量
const DefaultMaxLocalKeys = 10000

// Config 限流配置：每个 Window 补充 Rate 个令牌，桶容量为 Burst
type Config struct {
	Rate      int64         `json:"rate"`
	Window    time.Duration `json:"window"`
	Burst     int64         `json:"burst"`
	KeyPrefix string        `json:"key_prefix"`

	// MaxLocalKeys 本地令牌桶上限，超出时淘汰最久未使用的 key，<=0 使用 DefaultMaxLocalKeys
	MaxLocalKeys int `json:"max_local_keys"`
}

var errInvalidConfig = errors.New("limiter: rate, burst and window must be positive")

func (c *Config) validate() error {
	if c == nil || c.Rate <= 0 || c.Burst <= 0 || c.Window <= 0 {
		return errInvalidConfig
	}
	return nil
}

// ConfigFromApp 由应用配置生成限流配置
func ConfigFromApp(cfg config.RateLimitConfig) *Config {
	return &Config{
		Rate:   int64(cfg.Rate),
		Window: cfg.Window,
		Burst:  int64(cfg.Burst),

		MaxLocalKeys: cfg.MaxLocalKeys,
	}
}

// New 创建限流器：有 Redis 客户端时使用分布式令牌桶，Redis 出错时降级为本地令牌桶
func New(client redis.UniversalClient, cfg *Config, logger *zap.Logger) (Limiter, error) {
	local, err := NewLocalLimiter(cfg)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return local, nil
	}

	tb, err := NewTokenBucketLimiter(client, cfg)
	if err != nil {
		return nil, err
	}
	return NewFallbackLimiter(tb, local, logger), nil
}

// FallbackLimiter 主限流器出错时使用备用限流器
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	logger   *zap.Logger
}

// NewFallbackLimiter 创建降级限流器
func NewFallbackLimiter(primary, fallback Limiter, logger *zap.Logger) *FallbackLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackLimiter{primary: primary, fallback: fallback, logger: logger}
}

func (f *FallbackLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return f.AllowN(ctx, key, 1)
}

func (f *FallbackLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	result, err := f.primary.AllowN(ctx, key, n)
	if err == nil {
		return result, nil
	}
	f.logger.Warn("限流器异常，降级为本地限流", zap.String("key", key), zap.Error(err))
	return f.fallback.AllowN(ctx, key, n)
}

// Reset 同时重置两个限流器
func (f *FallbackLimiter) Reset(ctx context.Context, key string) error {
	return errors.Join(f.primary.Reset(ctx, key), f.fallback.Reset(ctx, key))
}
