package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/lrn-ops/duty-manager/backend/internal/config"
	"github.com/lrn-ops/duty-manager/backend/internal/domain"
	"github.com/lrn-ops/duty-manager/backend/internal/repository"
	"github.com/lrn-ops/duty-manager/backend/internal/seed"
	"github.com/lrn-ops/duty-manager/backend/internal/service"
	"github.com/lrn-ops/duty-manager/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机值班经理, 2: 插入检查项目录, 3: 插入随机排班)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				user, err := utils.GenerateRandomManager(cfg.Seed.User.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("无法生成随机值班经理", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateUser(user); err != nil {
					slog.Error("无法插入值班经理", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("插入值班经理成功", slog.Int("count", n-cnt))
		}
	case 2:
		seed.SeedChecklistCatalog(repo)
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的排班数量")
		} else {
			// 在已有的值班经理里随机挑人，排未来 n 天的班
			users, err := repo.GetAllUsers()
			if err != nil {
				slog.Error("无法获取用户列表", slog.String("error", err.Error()))
				return
			}

			managers := []*domain.User{}
			for _, user := range users {
				if user.Role == domain.RoleDutyManager {
					managers = append(managers, user)
				}
			}
			if len(managers) == 0 {
				slog.Error("数据库中没有值班经理，请先插入用户")
				return
			}

			timelines := []domain.Timeline{domain.TimelineDay, domain.TimelineNight}

			cnt := 0
			for i := 0; i < n; i++ {
				date := time.Now().AddDate(0, 0, i).Format(service.DateLayout)
				manager := managers[rand.Intn(len(managers))]

				entry := &domain.RosterEntry{
					ManagerID: manager.ID,
					DutyDate:  date,
					Timeline:  timelines[rand.Intn(len(timelines))],
					CreatedBy: "seed",
				}
				if err := repo.CreateRosterEntry(entry); err != nil {
					slog.Error("无法插入排班", slog.String("date", date), slog.String("error", err.Error()))
					continue
				}
				cnt++
			}

			slog.Info("插入排班成功", slog.Int("count", cnt))
		}
	default:
		slog.Error("不支持的操作")
	}
}
