package domain

const (
	DefaultPageNumber = 1
	DefaultPageSize   = 10
	MaxPageSize       = 100
)

// PagesQueryCondition 秒杀活动分页查询条件
type PagesQueryCondition struct {
	Keyword    string               `form:"keyword" json:"keyword"`
	Status     *FlashActivityStatus `form:"status" json:"status,omitempty"`
	PageNumber int                  `form:"page" json:"page"`
	PageSize   int                  `form:"page_size" json:"page_size"`
}

// DefaultPagesQueryCondition 返回默认查询条件（第一页，每页10条）
func DefaultPagesQueryCondition() *PagesQueryCondition {
	return &PagesQueryCondition{PageNumber: DefaultPageNumber, PageSize: DefaultPageSize}
}

// Normalize 修正分页参数并返回自身
func (c *PagesQueryCondition) Normalize() *PagesQueryCondition {
	if c.PageNumber <= 0 {
		c.PageNumber = DefaultPageNumber
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	return c
}

// Offset 返回当前页的起始偏移量
func (c *PagesQueryCondition) Offset() int {
	return (c.PageNumber - 1) * c.PageSize
}

// PageResult 分页结果
type PageResult[T any] struct {
	Data  []T   `json:"data"`
	Total int64 `json:"total"`
}

// NewPageResult 创建分页结果，Data 为 nil 时替换为空切片
func NewPageResult[T any](data []T, total int64) *PageResult[T] {
	if data == nil {
		data = []T{}
	}
	return &PageResult[T]{Data: data, Total: total}
}
