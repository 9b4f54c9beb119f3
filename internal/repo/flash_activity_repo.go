// Package repo 实现秒杀活动数据访问层，负责与数据库的交互。
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// FlashActivityRepository 定义秒杀活动数据访问接口
type FlashActivityRepository interface {
	// Save 新增（ID 为 0）或更新活动，新增时回填 ID
	Save(ctx context.Context, activity *domain.FlashActivity) error
	// FindByID 活动不存在时返回 (nil, nil)
	FindByID(ctx context.Context, id int64) (*domain.FlashActivity, error)
	// FindByIDForUpdate 总是读取存储中的最新数据，不经过缓存，供状态变更前加载使用
	FindByIDForUpdate(ctx context.Context, id int64) (*domain.FlashActivity, error)
	FindByCondition(ctx context.Context, cond *domain.PagesQueryCondition) ([]*domain.FlashActivity, error)
	CountByCondition(ctx context.Context, cond *domain.PagesQueryCondition) (int64, error)
}

const flashActivityColumns = `id, activity_name, activity_desc, start_time, end_time, status, created_at, updated_at`

// flashActivityRepo 基于 MySQL 的实现
type flashActivityRepo struct {
	db *sql.DB
}

// NewFlashActivityRepository 创建秒杀活动仓储实例
func NewFlashActivityRepository(db *sql.DB) FlashActivityRepository {
	return &flashActivityRepo{db: db}
}

// Save 保存秒杀活动
func (r *flashActivityRepo) Save(ctx context.Context, activity *domain.FlashActivity) error {
	if activity.ID == 0 {
		return r.insert(ctx, activity)
	}
	return r.update(ctx, activity)
}

func (r *flashActivityRepo) insert(ctx context.Context, activity *domain.FlashActivity) error {
	query := `
		INSERT INTO flash_activities (activity_name, activity_desc, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		activity.Name,
		activity.Desc,
		activity.StartTime,
		activity.EndTime,
		activity.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to create flash activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	activity.ID = id
	return nil
}

func (r *flashActivityRepo) update(ctx context.Context, activity *domain.FlashActivity) error {
	query := `
		UPDATE flash_activities
		SET activity_name = ?, activity_desc = ?, start_time = ?, end_time = ?, status = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		activity.Name,
		activity.Desc,
		activity.StartTime,
		activity.EndTime,
		activity.Status,
		activity.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update flash activity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	// MySQL 在值未变化时返回 0，需要再确认记录是否存在
	if rowsAffected == 0 {
		var exists bool
		err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM flash_activities WHERE id = ?)`, activity.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check flash activity existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("flash activity with id %d not found", activity.ID)
		}
	}

	return nil
}

// FindByID 根据ID获取秒杀活动
func (r *flashActivityRepo) FindByID(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	query := `SELECT ` + flashActivityColumns + ` FROM flash_activities WHERE id = ?`

	activity, err := scanFlashActivity(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flash activity by id: %w", err)
	}

	return activity, nil
}

// FindByIDForUpdate 数据库实现本身不缓存，与 FindByID 相同
func (r *flashActivityRepo) FindByIDForUpdate(ctx context.Context, id int64) (*domain.FlashActivity, error) {
	return r.FindByID(ctx, id)
}

// FindByCondition 按条件分页查询，按ID倒序
func (r *flashActivityRepo) FindByCondition(ctx context.Context, cond *domain.PagesQueryCondition) ([]*domain.FlashActivity, error) {
	cond = normalizeCondition(cond)
	where, args := buildWhere(cond)

	query := fmt.Sprintf(`SELECT %s FROM flash_activities %s ORDER BY id DESC LIMIT ? OFFSET ?`,
		flashActivityColumns, where)
	args = append(args, cond.PageSize, cond.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flash activities: %w", err)
	}
	defer rows.Close()

	var activities []*domain.FlashActivity
	for rows.Next() {
		activity, err := scanFlashActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flash activity: %w", err)
		}
		activities = append(activities, activity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return activities, nil
}

// CountByCondition 统计满足条件的活动总数（忽略分页）
func (r *flashActivityRepo) CountByCondition(ctx context.Context, cond *domain.PagesQueryCondition) (int64, error) {
	where, args := buildWhere(normalizeCondition(cond))

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM flash_activities "+where, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count flash activities: %w", err)
	}

	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashActivity(row rowScanner) (*domain.FlashActivity, error) {
	activity := &domain.FlashActivity{}
	var (
		desc   sql.NullString
		status string
	)
	err := row.Scan(
		&activity.ID,
		&activity.Name,
		&desc,
		&activity.StartTime,
		&activity.EndTime,
		&status,
		&activity.CreatedAt,
		&activity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	activity.Status, err = domain.ParseFlashActivityStatus(status)
	if err != nil {
		return nil, fmt.Errorf("flash activity %d: %w", activity.ID, err)
	}
	activity.Desc = desc.String
	return activity, nil
}

func normalizeCondition(cond *domain.PagesQueryCondition) *domain.PagesQueryCondition {
	if cond == nil {
		return domain.DefaultPagesQueryCondition()
	}
	c := *cond
	return c.Normalize()
}

// buildWhere 构建 WHERE 子句：关键字模糊匹配活动名称，状态精确匹配
func buildWhere(cond *domain.PagesQueryCondition) (string, []any) {
	var conditions []string
	var args []any

	if kw := strings.TrimSpace(cond.Keyword); kw != "" {
		conditions = append(conditions, "activity_name LIKE ?")
		args = append(args, "%"+escapeLike(kw)+"%")
	}

	if cond.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *cond.Status)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
