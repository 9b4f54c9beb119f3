// Package service 实现秒杀活动领域服务
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/domain"
	"github.com/MorseWayne/flash_sale/internal/event"
	"github.com/MorseWayne/flash_sale/internal/observability"
	"github.com/MorseWayne/flash_sale/internal/repo"
)

// FlashActivityDomainService 秒杀活动领域服务接口
type FlashActivityDomainService interface {
	PublishActivity(ctx context.Context, operatorID int64, activity *domain.FlashActivity) error
	ModifyActivity(ctx context.Context, operatorID int64, activity *domain.FlashActivity) error
	OnlineActivity(ctx context.Context, operatorID, activityID int64) error
	OfflineActivity(ctx context.Context, operatorID, activityID int64) error
	GetFlashActivities(ctx context.Context, cond *domain.PagesQueryCondition) (*domain.PageResult[*domain.FlashActivity], error)
	// GetFlashActivity 活动不存在时返回 (nil, nil)
	GetFlashActivity(ctx context.Context, activityID int64) (*domain.FlashActivity, error)
	// IsAllowPlaceOrderOrNot 仅作参考判断，不加锁
	IsAllowPlaceOrderOrNot(ctx context.Context, activityID int64) bool
}

// flashActivityDomainService 领域服务实现
type flashActivityDomainService struct {
	repo      repo.FlashActivityRepository
	publisher event.DomainEventPublisher
	metrics   observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// Option 服务可选项
type Option func(*flashActivityDomainService)

// WithClock 替换时间来源
func WithClock(now func() time.Time) Option {
	return func(s *flashActivityDomainService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewFlashActivityDomainService 创建秒杀活动领域服务
func NewFlashActivityDomainService(
	activityRepo repo.FlashActivityRepository,
	publisher event.DomainEventPublisher,
	metrics observability.Metrics,
	logger *zap.Logger,
	opts ...Option,
) FlashActivityDomainService {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &flashActivityDomainService{
		repo:      activityRepo,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PublishActivity 发布活动
func (s *flashActivityDomainService) PublishActivity(ctx context.Context, operatorID int64, activity *domain.FlashActivity) error {
	log := s.logger.With(zap.Int64("operator_id", operatorID))
	log.Info("准备发布秒杀活动")

	if activity == nil || !activity.ValidateParamsForCreateOrUpdate(s.now()) {
		return fmt.Errorf("publish activity: %w", domain.ErrInvalidParams)
	}

	activity.Status = domain.FlashActivityStatusPublished
	if err := s.repo.Save(ctx, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	log.Info("秒杀活动已发布", zap.Int64("activity_id", activity.ID))
	return s.emit(ctx, domain.FlashActivityEventPublished, activity)
}

// ModifyActivity 修改活动，保留调用方设置的状态
func (s *flashActivityDomainService) ModifyActivity(ctx context.Context, operatorID int64, activity *domain.FlashActivity) error {
	log := s.logger.With(zap.Int64("operator_id", operatorID))
	log.Info("准备修改秒杀活动")

	if activity == nil || !activity.ValidateParamsForCreateOrUpdate(s.now()) {
		return fmt.Errorf("modify activity: %w", domain.ErrInvalidParams)
	}

	if err := s.repo.Save(ctx, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	log.Info("秒杀活动已修改", zap.Int64("activity_id", activity.ID))
	return s.emit(ctx, domain.FlashActivityEventModified, activity)
}

// OnlineActivity 上线活动，已上线时直接返回
func (s *flashActivityDomainService) OnlineActivity(ctx context.Context, operatorID, activityID int64) error {
	log := s.logger.With(zap.Int64("operator_id", operatorID), zap.Int64("activity_id", activityID))
	log.Info("准备上线秒杀活动")

	activity, err := s.loadForTransition(ctx, operatorID, activityID)
	if err != nil {
		return fmt.Errorf("online activity: %w", err)
	}
	if activity.IsOnline() {
		log.Debug("秒杀活动已处于上线状态")
		return nil
	}

	activity.Status = domain.FlashActivityStatusOnline
	if err := s.repo.Save(ctx, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	log.Info("秒杀活动已上线")
	return s.emit(ctx, domain.FlashActivityEventOnline, activity)
}

// OfflineActivity 下线活动，只有已上线的活动可以下线
func (s *flashActivityDomainService) OfflineActivity(ctx context.Context, operatorID, activityID int64) error {
	log := s.logger.With(zap.Int64("operator_id", operatorID), zap.Int64("activity_id", activityID))
	log.Info("准备下线秒杀活动")

	activity, err := s.loadForTransition(ctx, operatorID, activityID)
	if err != nil {
		return fmt.Errorf("offline activity: %w", err)
	}
	if activity.IsOffline() {
		log.Debug("秒杀活动已处于下线状态")
		return nil
	}
	if !activity.IsOnline() {
		return fmt.Errorf("offline activity %d in status %s: %w", activityID, activity.Status, domain.ErrActivityNotOnline)
	}

	activity.Status = domain.FlashActivityStatusOffline
	if err := s.repo.Save(ctx, activity); err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}

	log.Info("秒杀活动已下线")
	return s.emit(ctx, domain.FlashActivityEventOffline, activity)
}

func (s *flashActivityDomainService) loadForTransition(ctx context.Context, operatorID, activityID int64) (*domain.FlashActivity, error) {
	if operatorID <= 0 || activityID <= 0 {
		return nil, domain.ErrInvalidParams
	}
	activity, err := s.repo.FindByIDForUpdate(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	if activity == nil {
		return nil, domain.ErrActivityNotFound
	}
	return activity, nil
}

// GetFlashActivities 分页查询活动，列表与总数分两次查询，不保证一致
func (s *flashActivityDomainService) GetFlashActivities(ctx context.Context, cond *domain.PagesQueryCondition) (*domain.PageResult[*domain.FlashActivity], error) {
	if cond == nil {
		cond = domain.DefaultPagesQueryCondition()
	}
	cond.Normalize()

	activities, err := s.repo.FindByCondition(ctx, cond)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	total, err := s.repo.CountByCondition(ctx, cond)
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}

	return domain.NewPageResult(activities, total), nil
}

// GetFlashActivity 获取活动详情
func (s *flashActivityDomainService) GetFlashActivity(ctx context.Context, activityID int64) (*domain.FlashActivity, error) {
	if activityID <= 0 {
		return nil, fmt.Errorf("get activity: %w", domain.ErrInvalidParams)
	}
	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return activity, nil
}

// IsAllowPlaceOrderOrNot 判断活动当前是否允许下单
func (s *flashActivityDomainService) IsAllowPlaceOrderOrNot(ctx context.Context, activityID int64) bool {
	allowed := s.checkOrderEligibility(ctx, activityID)
	s.metrics.OrderEligibilityChecked(allowed)
	return allowed
}

func (s *flashActivityDomainService) checkOrderEligibility(ctx context.Context, activityID int64) bool {
	log := s.logger.With(zap.Int64("activity_id", activityID))
	if activityID <= 0 {
		log.Info("不允许下单，活动不存在")
		return false
	}

	activity, err := s.repo.FindByID(ctx, activityID)
	if err != nil {
		log.Error("查询活动失败", zap.Error(err))
		return false
	}
	if activity == nil {
		log.Info("不允许下单，活动不存在")
		return false
	}
	if !activity.IsOnline() {
		log.Info("不允许下单，活动尚未上线", zap.String("status", activity.Status.String()))
		return false
	}
	if !activity.IsInProgress(s.now()) {
		log.Info("不允许下单，活动非秒杀时段")
		return false
	}
	return true
}

// emit 在保存成功后发布事件；发布失败不回滚已保存的状态，错误返回给调用方
func (s *flashActivityDomainService) emit(ctx context.Context, eventType domain.FlashActivityEventType, activity *domain.FlashActivity) error {
	s.metrics.ActivityTransition(string(eventType))
	if s.publisher == nil {
		return nil
	}

	ev := domain.NewFlashActivityEvent(eventType, activity, s.now())
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.EventPublishFailed(string(eventType))
		s.logger.Error("发布秒杀活动事件失败",
			zap.String("event_id", ev.ID),
			zap.String("event_type", string(eventType)),
			zap.Int64("activity_id", activity.ID),
			zap.Error(err))
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}
	return nil
}
