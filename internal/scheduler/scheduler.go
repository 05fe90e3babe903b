package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper 周期清理任务
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// Scheduler 定时任务管理
type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
	ctx     context.Context
	logger  *zap.Logger
}

// NewScheduler 创建调度器
func NewScheduler(ctx context.Context, sweeper Sweeper, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		sweeper: sweeper,
		timeout: 5 * time.Minute,
		ctx:     ctx,
		logger:  logger,
	}
}

// Register 注册缓存清理任务，expr 为标准 cron 表达式或 @every 描述符
func (s *Scheduler) Register(expr string) error {
	if _, err := s.cron.AddFunc(expr, s.RunSweepNow); err != nil {
		return fmt.Errorf("注册缓存清理任务失败: %w", err)
	}
	return nil
}

// Start 启动调度器
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("调度器已启动", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop 停止调度器，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("调度器已停止")
}

// RunSweepNow 立即执行一次清理
func (s *Scheduler) RunSweepNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.sweeper.Sweep(ctx); err != nil {
		s.logger.Error("缓存清理失败", zap.Error(err))
		return
	}
	s.logger.Debug("缓存清理任务结束", zap.Duration("elapsed", time.Since(start)))
}
