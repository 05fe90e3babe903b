package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"stock_signal/internal/cache"
	"stock_signal/internal/config"
	"stock_signal/internal/database"
	"stock_signal/internal/errs"
	"stock_signal/internal/fundamental"
	"stock_signal/internal/models"
	"stock_signal/internal/strategy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeHistory struct {
	bars   []models.PriceBar
	err    error
	params []string
}

func (f *fakeHistory) GetDailyHistory(_ context.Context, stockCode, startDate, endDate, adjust string) ([]models.PriceBar, error) {
	f.params = []string{stockCode, startDate, endDate, adjust}
	return f.bars, f.err
}

type fakeFundamentals struct {
	facts models.FundamentalFacts
}

func (f fakeFundamentals) Get(_ context.Context, stockCode string) models.FundamentalFacts {
	facts := f.facts
	facts.StockCode = stockCode
	return facts
}

type recordedError struct {
	stockCode, errorType, message string
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []recordedError
}

func (f *fakeRecorder) Log(_ context.Context, stockCode, errorType, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, recordedError{stockCode, errorType, message})
}

func risingBars(n int) []models.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)
	bars := make([]models.PriceBar, n)
	for i := range bars {
		price := 10 + float64(i)*0.1
		bars[i] = models.PriceBar{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   price - 0.05,
			Close:  price,
			Low:    price - 0.1,
			High:   price + 0.1,
			Volume: 10000 + float64(i%5)*500,
		}
	}
	return bars
}

func realFacts() models.FundamentalFacts {
	return models.FundamentalFacts{
		StockName:     "贵州茅台",
		CurrentPrice:  1500,
		MarketCap:     18000,
		PERatio:       20,
		PBRatio:       8,
		DividendYield: 2,
		ROE:           30,
		RevenueGrowth: 10,
		DebtRatio:     20,
		DataSource:    models.DataSourceReal,
		DataPeriod:    models.DataPeriod,
	}
}

func newTestReportService(t *testing.T, h HistorySource, f FundamentalSource) (*ReportService, *WatchlistRepository) {
	t.Helper()
	db := database.OpenTestDB(t)
	repo := NewWatchlistRepository(db)
	analysis := NewAnalysisService(h, f, &fakeRecorder{}, config.Default().Analysis, zap.NewNop())
	return NewReportService(analysis, repo, zap.NewNop()), repo
}

func TestAnalyzeRequestsOneYearQfqHistory(t *testing.T) {
	h := &fakeHistory{bars: risingBars(60)}
	s := NewAnalysisService(h, fakeFundamentals{facts: realFacts()}, nil, config.Default().Analysis, zap.NewNop())
	fixed := time.Date(2025, 3, 10, 15, 0, 0, 0, time.Local)
	s.now = func() time.Time { return fixed }

	a, err := s.Analyze(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, []string{"600519", "20240310", "20250310", "qfq"}, h.params)
	assert.Equal(t, "贵州茅台", a.StockName)
	assert.Len(t, a.Bars, 60)

	// PEG = 20 / 10 = 2.0
	assert.Equal(t, strategy.Sell, a.Strategies.PEG.Signal)
	assert.Equal(t, "very_overvalued", a.Strategies.PEG.Valuation)
	assert.Equal(t, models.DataSourceReal, a.Strategies.PEG.DataSource)
	assert.Equal(t, models.DataSourceReal, a.Strategies.ValueFactor.DataSource)
	assert.Equal(t, models.DataSourceReal, a.Strategies.FinancialHealth.DataSource)
}

func TestAnalyzePropagatesFallbackSource(t *testing.T) {
	facts := fundamental.Fallback("000001")
	s := NewAnalysisService(&fakeHistory{bars: risingBars(40)}, fakeFundamentals{facts: facts}, nil, config.Default().Analysis, zap.NewNop())

	a, err := s.Analyze(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, models.DataSourceFallback, a.Strategies.PEG.DataSource)
	assert.Equal(t, models.DataSourceFallback, a.Strategies.ValueFactor.DataSource)
	assert.Equal(t, models.DataSourceFallback, a.Strategies.FinancialHealth.DataSource)
}

func TestAnalyzeEmptyHistoryIsNotFound(t *testing.T) {
	s := NewAnalysisService(&fakeHistory{}, fakeFundamentals{facts: realFacts()}, nil, config.Default().Analysis, zap.NewNop())

	_, err := s.Analyze(context.Background(), "999999")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAnalyzeHistoryError(t *testing.T) {
	upstream := errs.Upstream("stock_zh_a_hist", errors.New("连接被重置"))
	s := NewAnalysisService(&fakeHistory{err: upstream}, fakeFundamentals{facts: realFacts()}, nil, config.Default().Analysis, zap.NewNop())

	_, err := s.Analyze(context.Background(), "600519")
	require.Error(t, err)
	assert.True(t, errs.IsUpstream(err))
	assert.NotErrorIs(t, err, errs.ErrNotFound)
}

func TestAnalyzeShortHistoryIsInsufficientData(t *testing.T) {
	s := NewAnalysisService(&fakeHistory{bars: risingBars(10)}, fakeFundamentals{facts: realFacts()}, nil, config.Default().Analysis, zap.NewNop())

	a, err := s.Analyze(context.Background(), "600519")
	require.NoError(t, err)
	assert.False(t, a.Strategies.Highlight.Result)
	assert.Equal(t, strategy.InsufficientData, a.Strategies.MACrossover.Signal)
	assert.Equal(t, strategy.InsufficientData, a.Strategies.MACD.Signal)
	assert.Equal(t, strategy.InsufficientData, a.Strategies.Momentum.Signal)
}

func TestGuardConvertsPanic(t *testing.T) {
	rec := &fakeRecorder{}
	s := NewAnalysisService(&fakeHistory{}, fakeFundamentals{}, rec, config.Default().Analysis, zap.NewNop())

	res := guard(s, context.Background(), "600519", cache.ErrorTypePEG,
		func() strategy.PEGResult { panic("除数为零") }, strategy.PEGError)

	assert.Equal(t, strategy.InsufficientData, res.Signal)
	assert.Equal(t, "error", res.DataSource)
	assert.Contains(t, res.Error, "除数为零")
	require.Len(t, rec.entries, 1)
	assert.Equal(t, cache.ErrorTypePEG, rec.entries[0].errorType)
	assert.Equal(t, "600519", rec.entries[0].stockCode)
}

func TestStockReportRoundTrip(t *testing.T) {
	bars := risingBars(60)
	svc, _ := newTestReportService(t, &fakeHistory{bars: bars}, fakeFundamentals{facts: realFacts()})
	ctx := context.Background()

	report, err := svc.StockReport(ctx, "600519")
	require.NoError(t, err)
	require.Len(t, report.KLineData, 60)
	require.Len(t, report.VolumeData, 60)
	b := bars[0]
	assert.Equal(t, []interface{}{"2024-01-02", b.Open, b.Close, b.Low, b.High}, report.KLineData[0])
	assert.Equal(t, []interface{}{"2024-01-02", b.Volume}, report.VolumeData[0])
	assert.Equal(t, "贵州茅台", report.StockName)

	entries, err := svc.Watchlist(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "600519", entries[0].StockCode)
	assert.Equal(t, report.Highlight, entries[0].Highlight)

	want, err := json.Marshal(report.Strategies)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(entries[0].Strategies))
}

func TestStrategyReportDoesNotPersist(t *testing.T) {
	svc, repo := newTestReportService(t, &fakeHistory{bars: risingBars(60)}, fakeFundamentals{facts: realFacts()})
	ctx := context.Background()

	report, err := svc.StrategyReport(ctx, "600519")
	require.NoError(t, err)
	assert.Equal(t, "600519", report.StockCode)
	assert.NotEmpty(t, report.AnalysisTime)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatchlistUpsertAndOrder(t *testing.T) {
	repo := NewWatchlistRepository(database.OpenTestDB(t))
	ctx := context.Background()

	for _, code := range []string{"000001", "600519", "000001"} {
		time.Sleep(2 * time.Millisecond)
		require.NoError(t, repo.Save(ctx, &models.WatchlistEntry{
			StockCode:  code,
			StockName:  fmt.Sprintf("股票%s", code),
			AddedTime:  time.Now(),
			Strategies: []byte(`{}`),
		}))
	}

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "000001", entries[0].StockCode)
	assert.Equal(t, "600519", entries[1].StockCode)
}

func TestWatchlistDelete(t *testing.T) {
	repo := NewWatchlistRepository(database.OpenTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.WatchlistEntry{StockCode: "000001", StockName: "平安银行", AddedTime: time.Now()}))
	require.NoError(t, repo.Delete(ctx, "000001"))
	assert.ErrorIs(t, repo.Delete(ctx, "000001"), errs.ErrNotFound)
}
