package service

import (
	"context"
	"fmt"
	"stock_signal/internal/cache"
	"stock_signal/internal/config"
	"stock_signal/internal/errs"
	"stock_signal/internal/models"
	"stock_signal/internal/strategy"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// HistorySource 日线行情数据源
type HistorySource interface {
	GetDailyHistory(ctx context.Context, stockCode, startDate, endDate, adjust string) ([]models.PriceBar, error)
}

// FundamentalSource 基本面数据，总是返回可用记录
type FundamentalSource interface {
	Get(ctx context.Context, stockCode string) models.FundamentalFacts
}

// ErrorRecorder 错误日志
type ErrorRecorder interface {
	Log(ctx context.Context, stockCode, errorType, message string)
}

// Strategies 全部策略分析结果
type Strategies struct {
	Highlight       strategy.HighlightResult       `json:"highlight_strategy"`
	MACrossover     strategy.MACrossoverResult     `json:"ma_crossover"`
	MACD            strategy.MACDResult            `json:"macd"`
	RSI             strategy.RSIResult             `json:"rsi"`
	Bollinger       strategy.BollingerResult       `json:"bollinger_bands"`
	Momentum        strategy.MomentumResult        `json:"momentum"`
	Breakout        strategy.BreakoutResult        `json:"breakout"`
	PEG             strategy.PEGResult             `json:"peg"`
	ValueFactor     strategy.ValueFactorResult     `json:"value_factor"`
	FinancialHealth strategy.FinancialHealthResult `json:"financial_health"`
}

// Analysis 单只股票的一次完整分析
type Analysis struct {
	StockCode  string
	StockName  string
	Bars       []models.PriceBar
	Strategies Strategies
}

// AnalysisService 策略分析服务
type AnalysisService struct {
	history      HistorySource
	fundamentals FundamentalSource
	errLog       ErrorRecorder
	params       strategy.Params
	historyDays  int
	adjust       string
	logger       *zap.Logger
	now          func() time.Time
}

// NewAnalysisService 创建策略分析服务
func NewAnalysisService(history HistorySource, fundamentals FundamentalSource, errLog ErrorRecorder,
	cfg config.AnalysisConfig, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		history:      history,
		fundamentals: fundamentals,
		errLog:       errLog,
		params:       strategy.DefaultParams(),
		historyDays:  cfg.HistoryDays,
		adjust:       cfg.Adjust,
		logger:       logger,
		now:          time.Now,
	}
}

// Analyze 并发获取行情和基本面数据，运行全部策略。
// 行情为空时返回 errs.ErrNotFound。
func (s *AnalysisService) Analyze(ctx context.Context, stockCode string) (*Analysis, error) {
	now := s.now()
	startDate := now.AddDate(0, 0, -s.historyDays).Format("20060102")
	endDate := now.Format("20060102")

	var (
		bars  []models.PriceBar
		facts models.FundamentalFacts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bars, err = s.history.GetDailyHistory(gctx, stockCode, startDate, endDate, s.adjust)
		if err != nil {
			return fmt.Errorf("获取日线数据失败: %w", err)
		}
		if len(bars) == 0 {
			return errs.ErrNotFound
		}
		return nil
	})
	g.Go(func() error {
		facts = s.fundamentals.Get(gctx, stockCode)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tech := strategy.AnalyzeTechnical(bars, s.params)
	result := &Analysis{
		StockCode: stockCode,
		StockName: facts.StockName,
		Bars:      bars,
		Strategies: Strategies{
			Highlight:   tech.Highlight,
			MACrossover: tech.MACrossover,
			MACD:        tech.MACD,
			RSI:         tech.RSI,
			Bollinger:   tech.Bollinger,
			Momentum:    tech.Momentum,
			Breakout:    tech.Breakout,
			PEG: guard(s, ctx, stockCode, cache.ErrorTypePEG,
				func() strategy.PEGResult { return strategy.PEG(facts) }, strategy.PEGError),
			ValueFactor: guard(s, ctx, stockCode, cache.ErrorTypeValueFactor,
				func() strategy.ValueFactorResult { return strategy.ValueFactor(facts) }, strategy.ValueFactorError),
			FinancialHealth: guard(s, ctx, stockCode, cache.ErrorTypeFinancialHealth,
				func() strategy.FinancialHealthResult { return strategy.FinancialHealth(facts) }, strategy.FinancialHealthError),
		},
	}
	if result.StockName == "" {
		result.StockName = stockCode
	}

	s.logger.Debug("策略分析完成",
		zap.String("stock_code", stockCode),
		zap.Int("bars", len(bars)),
		zap.String("data_source", facts.DataSource))
	return result, nil
}

// guard 运行单个基本面策略，异常时记录错误日志并返回 insufficient_data 结果
func guard[T any](s *AnalysisService, ctx context.Context, stockCode, errorType string,
	run func() T, onError func(error) T) (res T) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s 分析异常: %v", errorType, r)
			s.logger.Error("基本面策略分析失败",
				zap.String("stock_code", stockCode),
				zap.String("error_type", errorType),
				zap.Error(err))
			if s.errLog != nil {
				s.errLog.Log(ctx, stockCode, errorType, err.Error())
			}
			res = onError(err)
		}
	}()
	return run()
}
