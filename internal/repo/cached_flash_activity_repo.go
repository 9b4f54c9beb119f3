package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/cache"
	"github.com/MorseWayne/flash_sale/internal/domain"
)

// CachedFlashActivityRepository 带缓存的秒杀活动仓储
// 仅缓存单条活动，列表与计数直接透传。缓存读写失败只记录日志，
// 但保存后清除缓存失败会返回错误，否则旧快照会在 TTL 内继续被读到
type CachedFlashActivityRepository struct {
	repo   FlashActivityRepository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedFlashActivityRepository 创建带缓存的秒杀活动仓储
func NewCachedFlashActivityRepository(repo FlashActivityRepository, c cache.Cache, ttl time.Duration, logger *zap.Logger) FlashActivityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedFlashActivityRepository{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// Save 保存活动后清除缓存
func (r *CachedFlashActivityRepository) Save(ctx context.Context, activity *domain.FlashActivity) error {
	if err := r.repo.Save(ctx, activity); err != nil {
		return err
	}

	key := flashActivityCacheKey(activity.ID)
	if err := r.cache.Del(ctx, key); err != nil {
		r.logger.Error("failed to invalidate flash activity cache", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("activity %d saved but cache invalidation failed: %w", activity.ID, err)
	}
	return nil
}

// FindByID 根据ID获取活动（读穿缓存）
func (r *CachedFlashActivityRepository) FindByID(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	key := flashActivityCacheKey(id)

	var activity domain.FlashActivity
	err := r.cache.Get(ctx, key, &activity)
	if err == nil {
		return &activity, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("failed to read flash activity cache", zap.String("key", key), zap.Error(err))
	}

	// 缓存未命中，从数据库获取
	result, err := r.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	if err := r.cache.Set(ctx, key, result, r.ttl); err != nil {
		r.logger.Warn("failed to write flash activity cache", zap.String("key", key), zap.Error(err))
	}

	return result, nil
}

// FindByIDForUpdate 绕过缓存直接读取底层仓储
func (r *CachedFlashActivityRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	return r.repo.FindByIDForUpdate(ctx, id)
}

// FindByCondition 透传
func (r *CachedFlashActivityRepository) FindByCondition(ctx context.Context, cond *domain.PagesQueryCondition) ([]*domain.FlashActivity, error) {
	return r.repo.FindByCondition(ctx, cond)
}

// CountByCondition 透传
func (r *CachedFlashActivityRepository) CountByCondition(ctx context.Context, cond *domain.PagesQueryCondition) (int64, error) {
	return r.repo.CountByCondition(ctx, cond)
}

func flashActivityCacheKey(id int64) string {
	return fmt.Sprintf("flash:activity:%d", id)
}
