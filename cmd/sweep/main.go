package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/photostore"
	"github.com/lrn-ops/duty-manager/backend/internal/repository"
	"github.com/lrn-ops/duty-manager/backend/internal/service"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// 独立的清理入口，供 cron 定时执行。
// 清理本身是幂等的，和 API 进程里的自动清理并发执行也是安全的。
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		os.Exit(1)
	}

	repo := repository.NewRepository(cfg, dbpool)

	// 清理只操作数据库，不会动到照片文件，这里连上对象存储只是为了
	// 与 API 进程用同一套 Service 构造方式
	photoStore, err := photostore.NewMinIOStore(cfg)
	if err != nil {
		logger.Error("无法创建照片存储客户端", "error", err)
		os.Exit(1)
	}

	clock, err := service.NewZoneClock(cfg.Duty.Timezone)
	if err != nil {
		logger.Error("无法加载时区", "error", err)
		os.Exit(1)
	}

	svc := service.NewService(cfg, repo, photoStore, clock)

	result, err := svc.RunSweep()
	if err != nil {
		logger.Error("清理过期检查表失败", "error", err)
		os.Exit(1)
	}

	logger.Info("清理完成", "forceClosed", result.ForceClosed, "synthesized", result.Synthesized)
}
