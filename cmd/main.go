package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"stock_signal/internal/api"
	"stock_signal/internal/cache"
	"stock_signal/internal/config"
	"stock_signal/internal/database"
	"stock_signal/internal/fundamental"
	"stock_signal/internal/metrics"
	"stock_signal/internal/provider"
	"stock_signal/internal/scheduler"
	"stock_signal/internal/service"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "./config/config.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}
	// 初始化日志
	logger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("配置加载成功", zap.String("path", *configPath))

	// 初始化数据库
	if err := database.InitDB(&cfg.Database); err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.Close()
	db := database.GetDB()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	m := metrics.NewMetrics()

	// 数据源客户端
	client := provider.NewClient(&cfg.Provider, m, logger)
	resolver := fundamental.NewResolver(client, cfg.Defaults, logger)
	logger.Info("数据源客户端初始化成功", zap.String("base_url", cfg.Provider.BaseURL))

	// 基本面缓存
	store, closeStore, err := newCacheStore(ctx, cfg.Cache, logger)
	if err != nil {
		logger.Fatal("初始化缓存失败", zap.Error(err))
	}
	defer closeStore()

	errLog := cache.NewErrorLogger(db, m, logger)
	fundamentals := cache.NewService(store, resolver, errLog, fundamental.Fallback, cfg.Cache, m, logger)

	// 启动时清理一次，之后按计划执行
	sched := scheduler.NewScheduler(ctx, fundamentals, logger)
	if err := sched.Register(cfg.Cache.SweepCron); err != nil {
		logger.Fatal("注册定时任务失败", zap.Error(err))
	}
	sched.RunSweepNow()
	sched.Start()
	defer sched.Stop()

	analysis := service.NewAnalysisService(client, fundamentals, errLog, cfg.Analysis, logger)
	reports := service.NewReportService(analysis, service.NewWatchlistRepository(db), logger)

	// 设置 Gin 模式
	gin.SetMode(cfg.Server.Mode)

	handler := api.NewHandler(reports, m, logger)
	r := api.NewRouter(handler, cfg.Server)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	// 启动服务器
	go func() {
		logger.Info("服务器启动", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("正在关闭服务器...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("服务器强制关闭", zap.Error(err))
	}

	logger.Info("服务器已关闭")
}

// newCacheStore 按配置选择缓存后端
func newCacheStore(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Store, func(), error) {
	if cfg.Backend != "redis" {
		logger.Info("使用数据库缓存")
		return cache.NewGormStore(database.GetDB()), func() {}, nil
	}

	rdb, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("使用Redis缓存", zap.String("addr", cfg.RedisAddr))
	return cache.NewRedisStore(rdb), func() { _ = rdb.Close() }, nil
}

// initLogger 初始化日志
func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.OutputPaths = []string{"stdout"}

	if cfg.File != "" {
		// 创建日志目录
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, err
		}
		zapCfg.OutputPaths = append(zapCfg.OutputPaths, cfg.File)
	}

	// 设置日志级别
	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
