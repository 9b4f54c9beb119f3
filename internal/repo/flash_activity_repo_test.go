package repo

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/MorseWayne/flash_sale/internal/domain"
)

// openTestDB 连接测试库并重建表，需要设置 FLASH_SALE_TEST_MYSQL_DSN
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping MySQL test in short mode")
	}
	dsn := os.Getenv("FLASH_SALE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("Skipping MySQL test, FLASH_SALE_TEST_MYSQL_DSN not set")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("Skipping MySQL test, cannot open: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("Skipping MySQL test, cannot connect: %v", err)
	}

	schema, err := os.ReadFile("../../migrations/000001_create_flash_activities.up.sql")
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := db.Exec("DROP TABLE IF EXISTS flash_activities"); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("create table: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// fakeRow 按列顺序写入扫描目标
type fakeRow struct {
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case *string:
			*p = r.values[i].(string)
		case *sql.NullString:
			*p = sql.NullString{String: r.values[i].(string), Valid: true}
		case *time.Time:
			*p = r.values[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

func TestScanFlashActivity_Status(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	row := func(status string) fakeRow {
		return fakeRow{values: []any{int64(7), "秒杀", "desc", ts, ts.Add(time.Hour), status, ts, ts}}
	}

	tests := []struct {
		name    string
		status  string
		want    domain.FlashActivityStatus
		wantErr bool
	}{
		{"上线", "online", domain.FlashActivityStatusOnline, false},
		{"草稿", "draft", domain.FlashActivityStatusDraft, false},
		{"未知状态", "archived", "", true},
		{"空状态", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			activity, err := scanFlashActivity(row(tt.status))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for status %q, got %+v", tt.status, activity)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if activity.Status != tt.want || activity.ID != 7 || activity.Desc != "desc" {
				t.Errorf("Unexpected activity: %+v", activity)
			}
		})
	}
}

func TestFlashActivityRepository_MySQL(t *testing.T) {
	db := openTestDB(t)
	repo := NewFlashActivityRepository(db)
	ctx := context.Background()

	start := time.Now().Add(time.Hour).Truncate(time.Millisecond)
	first := domain.NewFlashActivity("双十一秒杀", "desc", start, start.Add(time.Hour))
	second := domain.NewFlashActivity("黑五秒杀", "", start, start.Add(time.Hour))
	second.Status = domain.FlashActivityStatusOnline

	for _, a := range []*domain.FlashActivity{first, second} {
		if err := repo.Save(ctx, a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if a.ID == 0 {
			t.Fatal("Expected ID to be assigned")
		}
	}

	t.Run("FindByID", func(t *testing.T) {
		got, err := repo.FindByID(ctx, first.ID)
		if err != nil {
			t.Fatalf("FindByID failed: %v", err)
		}
		if got.Name != first.Name || got.Status != domain.FlashActivityStatusDraft {
			t.Errorf("Unexpected activity: %+v", got)
		}

		missing, err := repo.FindByID(ctx, 999999)
		if err != nil || missing != nil {
			t.Errorf("Expected (nil, nil) for missing id, got (%v, %v)", missing, err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		first.Status = domain.FlashActivityStatusPublished
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		// 值未变化时也应成功
		if err := repo.Save(ctx, first); err != nil {
			t.Fatalf("Save without changes failed: %v", err)
		}
		got, _ := repo.FindByID(ctx, first.ID)
		if got.Status != domain.FlashActivityStatusPublished {
			t.Errorf("Expected published, got %s", got.Status)
		}

		ghost := domain.NewFlashActivity("ghost", "", start, start.Add(time.Hour))
		ghost.ID = 999999
		if err := repo.Save(ctx, ghost); err == nil {
			t.Error("Expected update of missing row to fail")
		}
	})

	t.Run("FindByCondition", func(t *testing.T) {
		online := domain.FlashActivityStatusOnline
		cond := &domain.PagesQueryCondition{Status: &online}

		list, err := repo.FindByCondition(ctx, cond)
		if err != nil {
			t.Fatalf("FindByCondition failed: %v", err)
		}
		if len(list) != 1 || list[0].ID != second.ID {
			t.Errorf("Unexpected result: %+v", list)
		}

		total, err := repo.CountByCondition(ctx, &domain.PagesQueryCondition{Keyword: "秒杀"})
		if err != nil {
			t.Fatalf("CountByCondition failed: %v", err)
		}
		if total != 2 {
			t.Errorf("Expected total 2, got %d", total)
		}

		page, err := repo.FindByCondition(ctx, &domain.PagesQueryCondition{PageNumber: 2, PageSize: 1})
		if err != nil {
			t.Fatalf("FindByCondition failed: %v", err)
		}
		if len(page) != 1 || page[0].ID != first.ID {
			t.Errorf("Expected second page to hold the older activity, got %+v", page)
		}
	})
}
