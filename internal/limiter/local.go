package limiter

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// LocalLimiter 进程内令牌桶，按 key 维护独立的 rate.Limiter
// 令牌桶保存在定长 LRU 中，被淘汰的 key 下次访问时从满桶开始
type LocalLimiter struct {
	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewLocalLimiter 创建本地限流器
func NewLocalLimiter(cfg *Config) (*LocalLimiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	size := cfg.MaxLocalKeys
	if size <= 0 {
		size = DefaultMaxLocalKeys
	}
	limiters, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		return nil, fmt.Errorf("create local limiter cache: %w", err)
	}
	return &LocalLimiter{
		limiters: limiters,
		limit:    rate.Limit(float64(cfg.Rate) / cfg.Window.Seconds()),
		burst:    int(cfg.Burst),
		now:      time.Now,
	}, nil
}

// get 查找与创建需在同一把锁内完成，避免并发请求各自创建满桶
func (l *LocalLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, lim)
	}
	return lim
}

// Len 当前保留的令牌桶数量
func (l *LocalLimiter) Len() int {
	return l.limiters.Len()
}

// Allow 检查是否允许请求通过
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*LimitResult, error) {
	return l.AllowN(ctx, key, 1)
}

// AllowN 检查是否允许N个请求通过，拒绝时不消耗令牌
func (l *LocalLimiter) AllowN(ctx context.Context, key string, n int64) (*LimitResult, error) {
	lim := l.get(key)
	now := l.now()

	r := lim.ReserveN(now, int(n))
	if !r.OK() {
		return &LimitResult{Allowed: false, Remaining: int64(lim.TokensAt(now))}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return &LimitResult{
			Allowed:    false,
			Remaining:  int64(lim.TokensAt(now)),
			RetryAfter: delay,
		}, nil
	}

	return &LimitResult{Allowed: true, Remaining: int64(lim.TokensAt(now))}, nil
}

// Reset 丢弃 key 对应的令牌桶
func (l *LocalLimiter) Reset(ctx context.Context, key string) error {
	l.limiters.Remove(key)
	return nil
}
