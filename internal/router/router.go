// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/api"
	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/limiter"
	"github.com/MorseWayne/flash_sale/internal/middleware"
	"github.com/MorseWayne/flash_sale/internal/observability"
	"github.com/MorseWayne/flash_sale/internal/resp"
	"github.com/MorseWayne/flash_sale/internal/service"
)

// HealthChecker 健康检查依赖，例如数据库、缓存
type HealthChecker func(ctx context.Context) error

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	FlashActivityHandler *api.FlashActivityHandler
	JWTService           service.JWTService

	// 为空时不限流
	Limiter limiter.Limiter

	// 为空时不暴露 /metrics
	Metrics  *observability.PrometheusMetrics
	Gatherer prometheus.Gatherer

	HealthChecks map[string]HealthChecker
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine  *gin.Engine
	deps    *Dependencies
	logger  *zap.Logger
	version string
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if lg == nil {
		lg = zap.NewNop()
	}

	r.engine = gin.New()
	r.deps = deps
	r.logger = lg
	r.version = cfg.App.Version

	// panic 与访问日志由外层 net/http 中间件处理
	if deps.Metrics != nil {
		r.engine.Use(deps.Metrics.GinMiddleware())
	}
	r.engine.NoRoute(func(c *gin.Context) {
		resp.Error(c.Writer, http.StatusNotFound, resp.CodeNotFound, "route not found",
			middleware.RequestIDFromContext(c.Request.Context()), "")
	})

	r.setupRoutes()
	return r.engine
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes() {
	r.engine.GET("/healthz", r.healthCheck)
	if r.deps.Gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	h := r.deps.FlashActivityHandler
	v1 := r.engine.Group("/api/v1")
	{
		// 公开查询接口
		activities := v1.Group("/flash-activities")
		{
			activities.GET("", h.ListActivities)
			activities.GET("/:id", h.GetActivity)
			eligibility := []gin.HandlerFunc{h.GetOrderEligibility}
			if r.deps.Limiter != nil {
				eligibility = append([]gin.HandlerFunc{limiter.OrderEligibilityRateLimitMiddleware(r.deps.Limiter, r.logger)}, eligibility...)
			}
			activities.GET("/:id/order-eligibility", eligibility...)
		}

		// 活动管理接口（需要认证+活动管理权限）
		admin := v1.Group("/admin/flash-activities")
		admin.Use(middleware.Auth(r.deps.JWTService, r.logger), middleware.RequireActivityManager(r.logger))
		{
			admin.POST("", h.PublishActivity)
			admin.PUT("/:id", h.ModifyActivity)
			admin.POST("/:id/online", h.OnlineActivity)
			admin.POST("/:id/offline", h.OfflineActivity)
		}
	}
}

// healthCheck 健康检查处理器，任一依赖异常时返回 503
func (r *GinRouter) healthCheck(c *gin.Context) {
	reqID := middleware.RequestIDFromContext(c.Request.Context())
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(r.deps.HealthChecks))
	healthy := true
	for name, check := range r.deps.HealthChecks {
		if err := check(ctx); err != nil {
			r.logger.Warn("health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	data := map[string]any{
		"status":  "ok",
		"version": r.version,
		"checks":  checks,
	}
	if !healthy {
		data["status"] = "degraded"
		resp.WriteJSON(c.Writer, http.StatusServiceUnavailable, resp.CodeInternalError, "unhealthy", data, reqID, "")
		return
	}
	resp.OK(c.Writer, data, reqID, "")
}
