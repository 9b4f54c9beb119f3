// Package domain 定义秒杀活动相关的业务领域模型和核心业务规则。
package domain

import (
	"fmt"
	"strings"
	"time"
)

// FlashActivityStatus 定义秒杀活动状态类型
type FlashActivityStatus string

const (
	FlashActivityStatusDraft     FlashActivityStatus = "draft"     // 草稿
	FlashActivityStatusPublished FlashActivityStatus = "published" // 已发布
	FlashActivityStatusOnline    FlashActivityStatus = "online"    // 已上线
	FlashActivityStatusOffline   FlashActivityStatus = "offline"   // 已下线
)

// ParseFlashActivityStatus 解析状态码，未知状态返回错误
func ParseFlashActivityStatus(s string) (FlashActivityStatus, error) {
	status := FlashActivityStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown flash activity status %q", s)
	}
	return status, nil
}

// IsValid 判断状态是否属于已知枚举
func (s FlashActivityStatus) IsValid() bool {
	switch s {
	case FlashActivityStatusDraft, FlashActivityStatusPublished,
		FlashActivityStatusOnline, FlashActivityStatusOffline:
		return true
	}
	return false
}

func (s FlashActivityStatus) String() string {
	return string(s)
}

// FlashActivity 表示秒杀活动领域模型
type FlashActivity struct {
	ID        int64               `json:"id"`
	Name      string              `json:"activity_name"`
	Desc      string              `json:"activity_desc"`
	StartTime time.Time           `json:"start_time"`
	EndTime   time.Time           `json:"end_time"`
	Status    FlashActivityStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewFlashActivity 创建草稿状态的秒杀活动（尚未持久化）
func NewFlashActivity(name, desc string, startTime, endTime time.Time) *FlashActivity {
	return &FlashActivity{
		Name:      name,
		Desc:      desc,
		StartTime: startTime,
		EndTime:   endTime,
		Status:    FlashActivityStatusDraft,
	}
}

// ValidateParamsForCreateOrUpdate 校验创建或更新活动时的参数
// 活动名称不能为空，开始和结束时间必须设置，开始时间早于结束时间，且结束时间不能早于当前时间
func (a *FlashActivity) ValidateParamsForCreateOrUpdate(now time.Time) bool {
	if strings.TrimSpace(a.Name) == "" {
		return false
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return false
	}
	if !a.StartTime.Before(a.EndTime) {
		return false
	}
	if a.EndTime.Before(now) {
		return false
	}
	return true
}

// IsOnline 判断活动是否已上线
func (a *FlashActivity) IsOnline() bool {
	return a.Status == FlashActivityStatusOnline
}

// IsOffline 判断活动是否已下线
func (a *FlashActivity) IsOffline() bool {
	return a.Status == FlashActivityStatusOffline
}

// IsInProgress 判断活动是否处于秒杀时段（已上线且当前时间在活动时间窗口内，含边界）
func (a *FlashActivity) IsInProgress(now time.Time) bool {
	if !a.IsOnline() {
		return false
	}
	return !now.Before(a.StartTime) && !now.After(a.EndTime)
}

// Clone 返回活动的值拷贝，用于事件快照
func (a *FlashActivity) Clone() *FlashActivity {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// PublishFlashActivityRequest 表示发布秒杀活动请求
type PublishFlashActivityRequest struct {
	Name      string    `json:"activity_name" binding:"required,min=1,max=255"`
	Desc      string    `json:"activity_desc"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

// ModifyFlashActivityRequest 表示修改秒杀活动请求
// 未提供的字段保持原值
type ModifyFlashActivityRequest struct {
	Name      *string              `json:"activity_name"`
	Desc      *string              `json:"activity_desc"`
	StartTime *time.Time           `json:"start_time"`
	EndTime   *time.Time           `json:"end_time"`
	Status    *FlashActivityStatus `json:"status"`
}

// ApplyTo 将修改请求中的字段合并到活动上
func (r *ModifyFlashActivityRequest) ApplyTo(a *FlashActivity) error {
	if r.Name != nil {
		a.Name = *r.Name
	}
	if r.Desc != nil {
		a.Desc = *r.Desc
	}
	if r.StartTime != nil {
		a.StartTime = *r.StartTime
	}
	if r.EndTime != nil {
		a.EndTime = *r.EndTime
	}
	if r.Status != nil {
		status, err := ParseFlashActivityStatus(string(*r.Status))
		if err != nil {
			return err
		}
		a.Status = status
	}
	return nil
}

// OrderEligibilityResponse 表示下单资格查询响应
type OrderEligibilityResponse struct {
	ActivityID int64 `json:"activity_id"`
	Allowed    bool  `json:"allowed"`
}
