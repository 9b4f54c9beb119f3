package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MorseWayne/flash_sale/internal/cache"
	"github.com/MorseWayne/flash_sale/internal/domain"
)

// MockFlashActivityRepository 内存仓储，记录调用次数
type MockFlashActivityRepository struct {
	mu         sync.RWMutex
	activities map[int64]*domain.FlashActivity
	nextID     int64

	findCalls      int
	forUpdateCalls int
	saveErr        error
}

func NewMockFlashActivityRepository() *MockFlashActivityRepository {
	return &MockFlashActivityRepository{
		activities: make(map[int64]*domain.FlashActivity),
		nextID:     1,
	}
}

func (m *MockFlashActivityRepository) Save(ctx context.Context, activity *domain.FlashActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if activity.ID == 0 {
		activity.ID = m.nextID
		m.nextID++
	}
	c := *activity
	m.activities[activity.ID] = &c
	return nil
}

func (m *MockFlashActivityRepository) FindByID(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	a, ok := m.activities[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (m *MockFlashActivityRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	m.mu.Lock()
	m.forUpdateCalls++
	m.mu.Unlock()
	return m.FindByID(ctx, id)
}

func (m *MockFlashActivityRepository) FindByCondition(ctx context.Context, cond *domain.PagesQueryCondition) ([]*domain.FlashActivity, error) {
	return nil, errors.New("not implemented")
}

func (m *MockFlashActivityRepository) CountByCondition(ctx context.Context, cond *domain.PagesQueryCondition) (int64, error) {
	return 0, errors.New("not implemented")
}

// failingCache 所有操作均失败的缓存
type failingCache struct{}

func (failingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return errors.New("cache down")
}
func (failingCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return errors.New("cache down")
}
func (failingCache) Del(ctx context.Context, keys ...string) error { return errors.New("cache down") }
func (failingCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, errors.New("cache down")
}
func (failingCache) Ping(ctx context.Context) error { return errors.New("cache down") }
func (failingCache) Close() error                   { return nil }

// delFailingCache 内存缓存，但删除总是失败
type delFailingCache struct {
	*cache.MemoryCache
}

func (delFailingCache) Del(ctx context.Context, keys ...string) error {
	return errors.New("cache del failed")
}
