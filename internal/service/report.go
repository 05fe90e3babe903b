package service

import (
	"context"
	"encoding/json"
	"fmt"
	"stock_signal/internal/models"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// StockReport 股票详情：K线、成交量与全部策略结果
type StockReport struct {
	StockCode  string          `json:"stock_code"`
	StockName  string          `json:"stock_name"`
	Highlight  bool            `json:"highlight"`
	KLineData  [][]interface{} `json:"k_line_data"` // [日期, 开盘, 收盘, 最低, 最高]
	VolumeData [][]interface{} `json:"volume_data"` // [日期, 成交量]
	AddedTime  string          `json:"added_time"`
	Strategies Strategies      `json:"strategies"`
}

// StrategyReport 仅包含策略结果
type StrategyReport struct {
	StockCode    string     `json:"stock_code"`
	AnalysisTime string     `json:"analysis_time"`
	Strategies   Strategies `json:"strategies"`
}

// ReportService 组装接口响应并写入自选股
type ReportService struct {
	analysis  *AnalysisService
	watchlist *WatchlistRepository
	logger    *zap.Logger
	now       func() time.Time
}

// NewReportService 创建报告服务
func NewReportService(analysis *AnalysisService, watchlist *WatchlistRepository, logger *zap.Logger) *ReportService {
	return &ReportService{
		analysis:  analysis,
		watchlist: watchlist,
		logger:    logger,
		now:       time.Now,
	}
}

// StockReport 完整分析并保存到自选股
func (s *ReportService) StockReport(ctx context.Context, stockCode string) (*StockReport, error) {
	a, err := s.analysis.Analyze(ctx, stockCode)
	if err != nil {
		return nil, err
	}

	addedTime := s.now()
	report := &StockReport{
		StockCode:  stockCode,
		StockName:  a.StockName,
		Highlight:  a.Strategies.Highlight.Result,
		KLineData:  make([][]interface{}, 0, len(a.Bars)),
		VolumeData: make([][]interface{}, 0, len(a.Bars)),
		AddedTime:  addedTime.Format(time.RFC3339),
		Strategies: a.Strategies,
	}
	for _, b := range a.Bars {
		report.KLineData = append(report.KLineData, []interface{}{b.Date, b.Open, b.Close, b.Low, b.High})
		report.VolumeData = append(report.VolumeData, []interface{}{b.Date, b.Volume})
	}

	strategies, err := json.Marshal(a.Strategies)
	if err != nil {
		return nil, fmt.Errorf("序列化策略结果失败: %w", err)
	}
	entry := &models.WatchlistEntry{
		StockCode:  stockCode,
		StockName:  a.StockName,
		AddedTime:  addedTime,
		Highlight:  report.Highlight,
		Strategies: datatypes.JSON(strategies),
	}
	if err := s.watchlist.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("股票分析已保存",
		zap.String("stock_code", stockCode),
		zap.Bool("highlight", report.Highlight))
	return report, nil
}

// StrategyReport 只做策略分析，不保存
func (s *ReportService) StrategyReport(ctx context.Context, stockCode string) (*StrategyReport, error) {
	a, err := s.analysis.Analyze(ctx, stockCode)
	if err != nil {
		return nil, err
	}
	return &StrategyReport{
		StockCode:    stockCode,
		AnalysisTime: s.now().Format(time.RFC3339),
		Strategies:   a.Strategies,
	}, nil
}

// Watchlist 列出自选股
func (s *ReportService) Watchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	return s.watchlist.List(ctx)
}

// RemoveFromWatchlist 删除自选股
func (s *ReportService) RemoveFromWatchlist(ctx context.Context, stockCode string) error {
	return s.watchlist.Delete(ctx, stockCode)
}
