package cache

import (
	"context"
	"fmt"
	"stock_signal/internal/config"
	"stock_signal/internal/metrics"
	"stock_signal/internal/models"
	"time"

	"go.uber.org/zap"
)

// Resolver 基本面数据获取
type Resolver interface {
	Resolve(ctx context.Context, stockCode string) (models.FundamentalFacts, error)
}

// Service 基本面缓存服务，缓存未命中时调用解析器，失败时降级为模拟数据
type Service struct {
	store       Store
	resolver    Resolver
	errLog      *ErrorLogger
	fallback    func(stockCode string) models.FundamentalFacts
	liveTTL     time.Duration
	fallbackTTL time.Duration
	retention   time.Duration
	metrics     *metrics.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewService 创建缓存服务
func NewService(store Store, resolver Resolver, errLog *ErrorLogger, fallback func(string) models.FundamentalFacts,
	cfg config.CacheConfig, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:       store,
		resolver:    resolver,
		errLog:      errLog,
		fallback:    fallback,
		liveTTL:     cfg.LiveTTL(),
		fallbackTTL: cfg.FallbackTTL(),
		retention:   cfg.ErrorLogRetention(),
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Get 获取基本面数据，总是返回可用的记录
func (s *Service) Get(ctx context.Context, stockCode string) models.FundamentalFacts {
	now := s.now()

	entry, err := s.store.Get(ctx, stockCode, now)
	if err != nil {
		s.logger.Warn("读取缓存失败，按未命中处理",
			zap.String("stock_code", stockCode),
			zap.Error(err))
	}
	if entry != nil {
		s.metrics.CacheLookup("hit")
		facts := entry.Facts
		facts.CacheHit = true
		facts.CacheSource = entry.DataSource
		return facts
	}

	facts, err := s.resolve(ctx, stockCode)
	if err == nil {
		s.metrics.CacheLookup("miss")
		s.put(ctx, stockCode, facts, now.Add(s.liveTTL))
		return facts
	}

	s.metrics.CacheLookup("fallback")
	s.logger.Warn("获取基本面数据失败，使用模拟数据",
		zap.String("stock_code", stockCode),
		zap.Error(err))
	s.errLog.Log(ctx, stockCode, ErrorTypeFetch, err.Error())

	facts = s.fallback(stockCode)
	s.put(ctx, stockCode, facts, now.Add(s.fallbackTTL))
	return facts
}

// resolve 调用解析器并把 panic 转为错误
func (s *Service) resolve(ctx context.Context, stockCode string) (facts models.FundamentalFacts, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("解析基本面数据异常: %v", r)
		}
	}()
	return s.resolver.Resolve(ctx, stockCode)
}

func (s *Service) put(ctx context.Context, stockCode string, facts models.FundamentalFacts, expiresAt time.Time) {
	err := s.store.Put(ctx, Entry{
		StockCode:  stockCode,
		Facts:      facts,
		DataSource: facts.DataSource,
		CreatedAt:  s.now(),
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		s.logger.Warn("写入缓存失败",
			zap.String("stock_code", stockCode),
			zap.Error(err))
	}
}

// Sweep 清理过期缓存和过期错误日志
func (s *Service) Sweep(ctx context.Context) error {
	now := s.now()

	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return err
	}
	s.metrics.Swept("fundamental_cache", n)

	var pruned int64
	if s.errLog != nil {
		pruned, err = s.errLog.Prune(ctx, now.Add(-s.retention))
		if err != nil {
			return err
		}
		s.metrics.Swept("error_logs", pruned)
	}

	s.logger.Info("缓存清理完成",
		zap.Int64("expired_cache", n),
		zap.Int64("expired_error_logs", pruned))
	return nil
}
