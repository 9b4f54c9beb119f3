// Package main 提供秒杀活动表结构迁移的命令行工具
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/flash_sale/internal/config"
	"github.com/MorseWayne/flash_sale/internal/database"
	"github.com/MorseWayne/flash_sale/internal/logger"
)

const usage = `Usage: %s -action=[up|down|version|force] [options]

  ./migrate -action=up                  执行全部待迁移版本
  ./migrate -action=down -steps=1       回滚一个版本
  ./migrate -action=version -target=1   迁移到指定版本
  ./migrate -action=force -target=0     强制设置版本，清除 dirty 状态
`

// migrateOptions 命令行参数
type migrateOptions struct {
	action string
	steps  int
	target uint
}

func (o migrateOptions) validate() error {
	switch o.action {
	case "up", "force":
		return nil
	case "down":
		if o.steps <= 0 {
			return fmt.Errorf("steps must be positive, got %d", o.steps)
		}
		return nil
	case "version":
		if o.target == 0 {
			return fmt.Errorf("target version must be specified for version migration")
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", o.action)
	}
}

func run(db *database.DB, dir string, opts migrateOptions, lg *zap.Logger) error {
	lg = lg.With(zap.String("action", opts.action), zap.String("dir", dir))
	switch opts.action {
	case "up":
		lg.Info("running up migrations")
		return db.RunMigrations(dir)
	case "down":
		lg.Info("running down migrations", zap.Int("steps", opts.steps))
		return db.MigrateDown(dir, opts.steps)
	case "version":
		lg.Info("migrating to version", zap.Uint("target", opts.target))
		return db.MigrateToVersion(dir, opts.target)
	case "force":
		lg.Warn("forcing migration version, dirty state will be cleared", zap.Uint("target", opts.target))
		return db.ForceMigrationVersion(dir, opts.target)
	}
	return fmt.Errorf("unknown action %q", opts.action)
}

func main() {
	var opts migrateOptions
	flag.StringVar(&opts.action, "action", "up", "Migration action: up, down, version, force")
	flag.IntVar(&opts.steps, "steps", 1, "Number of steps for down migration")
	flag.UintVar(&opts.target, "target", 0, "Target version for version or force migration")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "migrate", cfg.App.Version)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg, lg)
	if err != nil {
		lg.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Error("failed to close database", zap.Error(err))
		}
	}()

	if err := run(db, cfg.Migrations.Dir, opts, lg); err != nil {
		lg.Fatal("migration failed", zap.Error(err))
	}
	lg.Info("migration completed")
}
