package limiter

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/middleware"
	"github.com/MorseWayne/flash_sale/internal/resp"
)

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	Limiter Limiter

	// Key生成函数
	KeyGenerator func(*gin.Context) string

	// 限流器出错时是否放行
	FailOpen bool

	// 单次限流检查超时
	Timeout time.Duration

	Logger *zap.Logger
}

// DefaultKeyGenerator 默认Key生成器（基于IP）
func DefaultKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// ActivityKeyGenerator 按活动和客户端IP限流
func ActivityKeyGenerator(c *gin.Context) string {
	return fmt.Sprintf("activity:%s:ip:%s", c.Param("id"), c.ClientIP())
}

// RateLimitMiddleware 创建限流中间件
func RateLimitMiddleware(cfg *MiddlewareConfig) gin.HandlerFunc {
	keyGen := cfg.KeyGenerator
	if keyGen == nil {
		keyGen = DefaultKeyGenerator
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		reqID := middleware.RequestIDFromContext(c.Request.Context())
		key := keyGen(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		result, err := cfg.Limiter.Allow(ctx, key)
		if err != nil {
			logger.Error("限流检查失败", zap.String("key", key), zap.String("request_id", reqID), zap.Error(err))
			if cfg.FailOpen {
				c.Next()
				return
			}
			resp.Error(c.Writer, http.StatusInternalServerError, resp.CodeInternalError, "限流服务异常", reqID, "")
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		if !result.Allowed {
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.FormatInt(int64(math.Ceil(result.RetryAfter.Seconds())), 10))
			}
			resp.Error(c.Writer, http.StatusTooManyRequests, resp.CodeTooManyRequests, "请求过于频繁，请稍后重试", reqID, "")
			c.Abort()
			return
		}

		c.Next()
	}
}

// OrderEligibilityRateLimitMiddleware 下单资格查询限流，限流器异常时放行
func OrderEligibilityRateLimitMiddleware(l Limiter, logger *zap.Logger) gin.HandlerFunc {
	return RateLimitMiddleware(&MiddlewareConfig{
		Limiter:      l,
		KeyGenerator: ActivityKeyGenerator,
		FailOpen:     true,
		Logger:       logger,
	})
}
