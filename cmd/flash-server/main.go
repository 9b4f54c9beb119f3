package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/api"
	"github.com/MorseWayne/flash_sale/internal/cache"
	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/database"
	"github.com/MorseWayne/flash_sale/internal/event"
	"github.com/MorseWayne/flash_sale/internal/limiter"
	"github.com/MorseWayne/flash_sale/internal/logger"
	mw "github.com/MorseWayne/flash_sale/internal/middleware"
	"github.com/MorseWayne/flash_sale/internal/mq"
	"github.com/MorseWayne/flash_sale/internal/observability"
	"github.com/MorseWayne/flash_sale/internal/repo"
	"github.com/MorseWayne/flash_sale/internal/router"
	"github.com/MorseWayne/flash_sale/internal/service"
)

// closer 退出时需要释放的资源
type closer struct {
	name string
	fn   func() error
}

// App 应用的所有依赖
type App struct {
	cfg     *config.Config
	lg      *zap.Logger
	db      *database.DB
	redis   *redis.Client
	closers []closer
}

func (a *App) onClose(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close 按初始化的逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.lg.Error("failed to close resource", zap.String("resource", c.name), zap.Error(err))
		}
	}
}

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, lg, nil
}

// initDatabase 初始化数据库连接，并在 HTTP 服务启动前执行迁移
func (a *App) initDatabase(ctx context.Context) error {
	db, err := database.New(ctx, a.cfg, a.lg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.onClose("database", db.Close)

	a.lg.Info("using migrations directory", zap.String("path", a.cfg.Migrations.Dir))
	if err := db.RunMigrations(a.cfg.Migrations.Dir); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}

// needsRedis 缓存、事件总线或限流任一使用 Redis 时连接 Redis
func needsRedis(cfg *config.Config) bool {
	return (cfg.Cache.Enabled && cfg.Cache.Type == "redis") ||
		cfg.EventBus.Type == "redis" ||
		cfg.RateLimit.Enabled
}

// initRedis 连接 Redis，失败时客户端为空，由各组件自行降级
func (a *App) initRedis() {
	if !needsRedis(a.cfg) {
		return
	}
	addr := fmt.Sprintf("%s:%d", a.cfg.Redis.Host, a.cfg.Redis.Port)
	client, err := cache.NewRedisClient(addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		a.lg.Warn("failed to connect to Redis", zap.String("addr", addr), zap.Error(err))
		return
	}
	a.redis = client
	// redis stream 发布者关闭时会一并关闭客户端
	a.onClose("redis", func() error {
		if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			return err
		}
		return nil
	})
	a.lg.Info("redis connected", zap.String("addr", addr))
}

// initCache 初始化缓存实例
func (a *App) initCache() cache.Cache {
	if !a.cfg.Cache.Enabled {
		a.lg.Info("cache disabled")
		return cache.NewNullCache()
	}

	if a.cfg.Cache.Type == "redis" {
		if a.redis != nil {
			a.lg.Info("cache enabled", zap.String("type", "redis"), zap.Duration("ttl", a.cfg.Cache.TTL))
			return cache.NewRedisCache(a.redis)
		}
		a.lg.Warn("redis unavailable, falling back to memory cache")
	}

	a.lg.Info("cache enabled", zap.String("type", "memory"), zap.Duration("ttl", a.cfg.Cache.TTL))
	return cache.NewMemoryCache()
}

// initEventPublisher 按配置创建事件发布者，外层包装日志装饰器
func (a *App) initEventPublisher(ctx context.Context) (event.DomainEventPublisher, error) {
	var publisher event.DomainEventPublisher

	switch a.cfg.EventBus.Type {
	case "rabbitmq":
		cm := mq.NewConnectionManager(mq.ConfigFromApp(a.cfg.RabbitMQ), a.lg)
		if err := cm.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		a.onClose("rabbitmq", cm.Close)

		producer := mq.NewFlashActivityProducer(cm, a.cfg.EventBus.Exchange, a.cfg.App.Name, a.lg)
		if err := producer.SetupInfrastructure(ctx); err != nil {
			return nil, fmt.Errorf("setup rabbitmq exchange: %w", err)
		}
		cm.OnReconnected(func() {
			if err := producer.SetupInfrastructure(context.Background()); err != nil {
				a.lg.Error("failed to redeclare exchange after reconnect", zap.Error(err))
			}
		})
		a.onClose("rabbitmq producer", producer.Close)
		publisher = producer

	case "redis":
		if a.redis == nil {
			return nil, errors.New("event bus type redis requires a reachable redis")
		}
		pub, err := event.NewRedisStreamPublisher(a.redis, a.lg)
		if err != nil {
			return nil, err
		}
		wp := event.NewWatermillPublisher(pub, a.lg)
		a.onClose("redis stream publisher", wp.Close)
		publisher = wp

	default:
		bus := event.NewGoChannelBus(a.lg)
		wp := event.NewWatermillPublisher(bus, a.lg)
		a.onClose("in-memory event bus", wp.Close)
		publisher = wp
	}

	a.lg.Info("event bus initialized", zap.String("type", a.cfg.EventBus.Type))
	return event.NewLoggingPublisher(publisher, a.lg), nil
}

// initLimiter 限流关闭时返回 nil
func (a *App) initLimiter() (limiter.Limiter, error) {
	if !a.cfg.RateLimit.Enabled {
		return nil, nil
	}
	var client redis.UniversalClient
	if a.redis != nil {
		client = a.redis
	}
	l, err := limiter.New(client, limiter.ConfigFromApp(a.cfg.RateLimit), a.lg)
	if err != nil {
		return nil, fmt.Errorf("init rate limiter: %w", err)
	}
	return l, nil
}

// initDependencies 初始化依赖注入链：仓储 -> 服务 -> API处理器 -> 路由
func (a *App) initDependencies(ctx context.Context) (http.Handler, error) {
	cacheInstance := a.initCache()
	// Redis 缓存与其他组件共享客户端，由 initRedis 注册关闭
	if _, shared := cacheInstance.(*cache.RedisCache); !shared {
		a.onClose("cache", cacheInstance.Close)
	}

	var activityRepo repo.FlashActivityRepository = repo.NewFlashActivityRepository(a.db.DB)
	if a.cfg.Cache.Enabled {
		activityRepo = repo.NewCachedFlashActivityRepository(activityRepo, cacheInstance, a.cfg.Cache.TTL, a.lg)
	}

	publisher, err := a.initEventPublisher(ctx)
	if err != nil {
		return nil, err
	}

	rateLimiter, err := a.initLimiter()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPrometheusMetrics(reg)

	activityService := service.NewFlashActivityDomainService(activityRepo, publisher, metrics, a.lg)
	jwtService := service.NewJWTService(a.cfg, a.lg)

	checks := map[string]router.HealthChecker{
		"database": a.db.PingContext,
	}
	if a.cfg.Cache.Enabled {
		checks["cache"] = cacheInstance.Ping
	}

	handler := router.New().Setup(a.cfg, &router.Dependencies{
		FlashActivityHandler: api.NewFlashActivityHandler(activityService, a.lg),
		JWTService:           jwtService,
		Limiter:              rateLimiter,
		Metrics:              metrics,
		Gatherer:             reg,
		HealthChecks:         checks,
	}, a.lg)
	return wrapMiddleware(a.cfg, handler, a.lg), nil
}

// wrapMiddleware 构建中间件链：请求进入时执行顺序为 access log → CORS → timeout → recovery → request ID
func wrapMiddleware(cfg *config.Config, handler http.Handler, lg *zap.Logger) http.Handler {
	handler = mw.RequestID(handler)
	handler = mw.Recovery(lg)(handler)
	handler = mw.Timeout(cfg.App.RequestTimeout)(handler)
	handler = mw.CORS(mw.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
		AllowedHeaders: cfg.CORS.AllowedHeaders,
	})(handler)
	return mw.AccessLog(lg)(handler)
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) error {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	lg.Info("server starting", zap.String("addr", addr))

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-quit:
		lg.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	lg.Info("server exited")
	return nil
}

func run(cfg *config.Config, lg *zap.Logger) error {
	app := &App{cfg: cfg, lg: lg}
	defer app.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.initDatabase(ctx); err != nil {
		return err
	}
	app.initRedis()

	handler, err := app.initDependencies(ctx)
	if err != nil {
		return err
	}
	return startServer(cfg, handler, lg)
}

func main() {
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Error("flash server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}
