// Package observability 提供秒杀活动服务的 Prometheus 指标。
package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 服务层使用的指标记录接口
type Metrics interface {
	ActivityTransition(eventType string)
	EventPublishFailed(eventType string)
	OrderEligibilityChecked(allowed bool)
}

// PrometheusMetrics 基于 Prometheus 的指标实现
type PrometheusMetrics struct {
	transitions   *prometheus.CounterVec
	publishFailed *prometheus.CounterVec
	eligibility   *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// NewPrometheusMetrics 创建指标并注册到 reg
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	m := &PrometheusMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flash_sale",
			Name:      "activity_transitions_total",
			Help:      "Number of successful flash activity lifecycle changes.",
		}, []string{"type"}),
		publishFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flash_sale",
			Name:      "activity_event_publish_failures_total",
			Help:      "Number of flash activity events that could not be published.",
		}, []string{"type"}),
		eligibility: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flash_sale",
			Name:      "order_eligibility_checks_total",
			Help:      "Number of order eligibility checks by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flash_sale",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.transitions, m.publishFailed, m.eligibility, m.httpDuration)
	return m
}

func (m *PrometheusMetrics) ActivityTransition(eventType string) {
	m.transitions.WithLabelValues(eventType).Inc()
}

func (m *PrometheusMetrics) EventPublishFailed(eventType string) {
	m.publishFailed.WithLabelValues(eventType).Inc()
}

func (m *PrometheusMetrics) OrderEligibilityChecked(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.eligibility.WithLabelValues(result).Inc()
}

// GinMiddleware 记录请求耗时，route 使用路由模板避免高基数
func (m *PrometheusMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// NopMetrics 不记录任何指标
type NopMetrics struct{}

func (NopMetrics) ActivityTransition(string)     {}
func (NopMetrics) EventPublishFailed(string)     {}
func (NopMetrics) OrderEligibilityChecked(bool) {}
