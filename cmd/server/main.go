package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/RyouhaWH/turnos-app-sub002/config"
	"github.com/RyouhaWH/turnos-app-sub002/internal/api/handler"
	"github.com/RyouhaWH/turnos-app-sub002/internal/api/router"
	"github.com/RyouhaWH/turnos-app-sub002/internal/repository"
	"github.com/RyouhaWH/turnos-app-sub002/internal/service"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/database"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/jwt"
	applogger "github.com/RyouhaWH/turnos-app-sub002/pkg/logger"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/redis"
	"github.com/RyouhaWH/turnos-app-sub002/pkg/whatsapp"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("TURNOS_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log, "server")
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("session_store", cfg.Roster.SessionStore),
		zap.Bool("strict_concurrency", cfg.Roster.StrictConcurrency),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（会话存储为 redis 时必需；否则失败降级，限流放行）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			if cfg.Roster.SessionStore == "redis" {
				logger.Fatal("Redis 连接失败，无法使用 redis 会话存储", zap.Error(err))
			}
			logger.Warn("Redis 连接失败，接口限流将不可用", zap.Error(err))
			rdb = nil
		}
	}

	var store service.SessionStore
	if cfg.Roster.SessionStore == "redis" {
		store = service.NewRedisSessionStore(rdb)
	} else {
		store = service.NewMemorySessionStore()
	}

	// 5. 初始化 JWT 管理器与 WhatsApp 网关客户端
	jwtMgr := jwt.NewManager(&cfg.Auth)
	sender := whatsapp.NewClient(
		cfg.Notification.TransportURL,
		cfg.Notification.Timeout,
		whatsapp.WithRateLimit(cfg.Notification.RatePerSecond),
	)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, store, sender, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine, err := router.Setup(cfg, h, jwtMgr, rdb, logger)
	if err != nil {
		logger.Fatal("初始化路由失败", zap.Error(err))
	}

	// 8. 启动通知 worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if !cfg.Notification.Enabled {
			logger.Info("通知已关闭，worker 不启动")
			return
		}
		if err := svc.Notification.Run(workerCtx); err != nil {
			logger.Error("通知 worker 异常退出", zap.Error(err))
		}
	}()

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止 worker：进行中的投递被中断，租约到期后重新领取
	stopWorker()
	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Warn("等待通知 worker 退出超时")
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
