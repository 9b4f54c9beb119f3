package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// mockFlashActivityRepository 内存仓储，支持注入错误并记录调用次数
type mockFlashActivityRepository struct {
	mu         sync.RWMutex
	activities map[int64]*domain.FlashActivity
	nextID     int64

	saveCalls int
	saveErr   error
	findErr   error
	listErr   error
	countErr  error
}

func newMockFlashActivityRepository() *mockFlashActivityRepository {
	return &mockFlashActivityRepository{
		activities: make(map[int64]*domain.FlashActivity),
		nextID:     1,
	}
}

// seed 直接写入一条活动，不计入 Save 调用
func (m *mockFlashActivityRepository) seed(a *domain.FlashActivity) *domain.FlashActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.nextID
	}
	if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
	m.activities[a.ID] = a.Clone()
	return a
}

func (m *mockFlashActivityRepository) stored(id int64) *domain.FlashActivity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activities[id].Clone()
}

func (m *mockFlashActivityRepository) Save(ctx context.Context, activity *domain.FlashActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveCalls++
	if m.saveErr != nil {
		return m.saveErr
	}
	if activity.ID == 0 {
		activity.ID = m.nextID
		m.nextID++
	}
	m.activities[activity.ID] = activity.Clone()
	return nil
}

func (m *mockFlashActivityRepository) FindByID(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	a, ok := m.activities[id]
	if !ok {
		return nil, nil
	}
	return a.Clone(), nil
}

func (m *mockFlashActivityRepository) match(cond *domain.PagesQueryCondition) []*domain.FlashActivity {
	var result []*domain.FlashActivity
	for _, a := range m.activities {
		if cond.Keyword != "" && !strings.Contains(a.Name, cond.Keyword) {
			continue
		}
		if cond.Status != nil && a.Status != *cond.Status {
			continue
		}
		result = append(result, a.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result
}

func (m *mockFlashActivityRepository) FindByIDForUpdate(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	return m.FindByID(ctx, id)
}

func (m *mockFlashActivityRepository) FindByCondition(ctx context.Context, cond *domain.PagesQueryCondition) ([]*domain.FlashActivity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	all := m.match(cond)
	start := cond.Offset()
	if start >= len(all) {
		return nil, nil
	}
	end := start + cond.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (m *mockFlashActivityRepository) CountByCondition(ctx context.Context, cond *domain.PagesQueryCondition) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return int64(len(m.match(cond))), nil
}

// mockEventPublisher 记录发布的事件
type mockEventPublisher struct {
	mu     sync.Mutex
	events []*domain.FlashActivityEvent
	err    error
}

func (p *mockEventPublisher) Publish(ctx context.Context, ev *domain.FlashActivityEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *mockEventPublisher) published() []*domain.FlashActivityEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.FlashActivityEvent(nil), p.events...)
}

// mockMetrics 记录指标调用
type mockMetrics struct {
	mu            sync.Mutex
	transitions   []string
	publishFailed []string
	allowed       int
	denied        int
}

func (m *mockMetrics) ActivityTransition(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, eventType)
}

func (m *mockMetrics) EventPublishFailed(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishFailed = append(m.publishFailed, eventType)
}

func (m *mockMetrics) OrderEligibilityChecked(allowed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if allowed {
		m.allowed++
	} else {
		m.denied++
	}
}

var errMockStorage = errors.New("storage unavailable")
