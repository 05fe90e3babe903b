package fundamental

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"stock_signal/internal/config"
	"stock_signal/internal/models"
	"stock_signal/internal/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	info      map[string]interface{}
	infoErr   error
	valuation *provider.Table
	abstract  *provider.Table
	quarterly *provider.Table
	dividends *provider.Table
}

var errUnavailable = errors.New("数据源不可用")

func tableOrErr(t *provider.Table) (*provider.Table, error) {
	if t == nil {
		return nil, errUnavailable
	}
	return t, nil
}

func (f *fakeSource) GetIndividualInfo(ctx context.Context, code string) (map[string]interface{}, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

func (f *fakeSource) GetValuation(ctx context.Context, code string) (*provider.Table, error) {
	return tableOrErr(f.valuation)
}

func (f *fakeSource) GetFinancialAbstract(ctx context.Context, code string) (*provider.Table, error) {
	return tableOrErr(f.abstract)
}

func (f *fakeSource) GetQuarterlyRevenue(ctx context.Context, code string) (*provider.Table, error) {
	return tableOrErr(f.quarterly)
}

func (f *fakeSource) GetDividends(ctx context.Context, code string) (*provider.Table, error) {
	return tableOrErr(f.dividends)
}

func basicInfo() map[string]interface{} {
	return map[string]interface{}{
		"股票简称": "平安银行",
		"最新":   11.2,
		"总市值":  217300000000.0,
		"行业":   "银行",
		"上市时间": 19910403.0,
	}
}

func datedAbstract() *provider.Table {
	return &provider.Table{
		Fields: []string{"选项", "指标", "20240930", "20240630", "20240331", "20231231", "20230930", "20230630"},
		Items: [][]interface{}{
			{"常用指标", "营业总收入", "110亿", "60亿", "30亿", "140亿", "100亿", "50亿"},
			{"常用指标", "净资产收益率(ROE)", "8.5%", "6%", "3%", "11%", "8%", "5%"},
			{"常用指标", "资产负债率", "91.2", "91.0", "90.8", "90.5", "90.1", "90.0"},
			{"估值指标", "P/E", "--", "5.1", "5.0", "4.9", "4.8", "4.7"},
		},
	}
}

func newTestResolver(src Source) *Resolver {
	r := NewResolver(src, config.Default().Defaults, zap.NewNop())
	r.now = func() time.Time { return time.Date(2024, 10, 30, 9, 30, 0, 0, time.Local) }
	return r
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{12.5, 12.5, true},
		{"12.5", 12.5, true},
		{"8.5%", 8.5, true},
		{"1,234.5", 1234.5, true},
		{"3.5万", 35000, true},
		{"1.2亿", 1.2e8, true},
		{"-0.5亿", -0.5e8, true},
		{"--", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{nil, 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-6, "%v", tc.in)
		}
	}
}

func TestFallback_Deterministic(t *testing.T) {
	first, err := json.Marshal(Fallback("600519"))
	require.NoError(t, err)
	second, err := json.Marshal(Fallback("600519"))
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NotEqual(t, Fallback("600519").PERatio, Fallback("000001").PERatio)
}

func TestFallback_Ranges(t *testing.T) {
	for _, code := range []string{"000001", "000002", "300750", "600000", "688981"} {
		f := Fallback(code)
		assert.Equal(t, models.DataSourceFallback, f.DataSource)
		assert.Equal(t, models.DataPeriod, f.DataPeriod)
		assert.Equal(t, "股票"+code, f.StockName)
		assert.Equal(t, "模拟行业", f.Industry)
		assert.Equal(t, "20100101", f.ListDate)
		assert.Empty(t, f.LastUpdate)

		assert.GreaterOrEqual(t, f.CurrentPrice, 5.0)
		assert.LessOrEqual(t, f.CurrentPrice, 50.0)
		assert.GreaterOrEqual(t, f.MarketCap, 50.0)
		assert.LessOrEqual(t, f.MarketCap, 5000.0)
		assert.GreaterOrEqual(t, f.PERatio, 8.0)
		assert.LessOrEqual(t, f.PERatio, 50.0)
		assert.GreaterOrEqual(t, f.PBRatio, 0.8)
		assert.LessOrEqual(t, f.PBRatio, 8.0)
		assert.GreaterOrEqual(t, f.DebtRatio, 10.0)
		assert.LessOrEqual(t, f.DebtRatio, 80.0)
		assert.GreaterOrEqual(t, f.RevenueGrowth, -30.0)
		assert.LessOrEqual(t, f.RevenueGrowth, 65.0)
		require.NotNil(t, f.SemiAnnualGrowth)
		assert.InDelta(t, f.PERatio, round2(f.PERatio), 1e-9)
	}
}

func TestResolve_AllSources(t *testing.T) {
	src := &fakeSource{
		info: basicInfo(),
		valuation: &provider.Table{
			Fields: []string{"date", "市盈率", "市净率"},
			Items: [][]interface{}{
				{"2024-10-29", 4.9, 0.51},
				{"2024-10-30", 5.2, 0.53},
			},
		},
		abstract: datedAbstract(),
		dividends: &provider.Table{
			Fields: []string{"公告日期", "每股派息"},
			Items:  [][]interface{}{{"2024-06-07", 0.56}, {"2023-06-07", 0.28}},
		},
	}

	f, err := newTestResolver(src).Resolve(context.Background(), "000001")
	require.NoError(t, err)

	assert.Equal(t, "000001", f.StockCode)
	assert.Equal(t, "平安银行", f.StockName)
	assert.Equal(t, 11.2, f.CurrentPrice)
	assert.InDelta(t, 2173.0, f.MarketCap, 1e-9)
	assert.Equal(t, 5.2, f.PERatio)
	assert.Equal(t, 0.53, f.PBRatio)
	assert.InDelta(t, 8.5, f.ROE, 1e-9)
	assert.InDelta(t, 91.2, f.DebtRatio, 1e-9)
	assert.InDelta(t, 10.0, f.RevenueGrowth, 1e-9)
	require.NotNil(t, f.SemiAnnualGrowth)
	assert.InDelta(t, 20.0, *f.SemiAnnualGrowth, 1e-9)
	assert.InDelta(t, 5.0, f.DividendYield, 1e-9)
	assert.Equal(t, "银行", f.Industry)
	assert.Equal(t, "19910403", f.ListDate)
	assert.Equal(t, models.DataSourceReal, f.DataSource)
	assert.Equal(t, models.DataPeriod, f.DataPeriod)
	assert.Equal(t, "2024-10-30 09:30:00", f.LastUpdate)
}

func TestResolve_BasicInfoFailure(t *testing.T) {
	_, err := newTestResolver(&fakeSource{infoErr: errUnavailable}).Resolve(context.Background(), "000001")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUnavailable)
}

func TestResolve_DefaultsWhenSecondarySourcesFail(t *testing.T) {
	info := basicInfo()
	delete(info, "行业")

	f, err := newTestResolver(&fakeSource{info: info}).Resolve(context.Background(), "000001")
	require.NoError(t, err)

	assert.Equal(t, 20.0, f.PERatio)
	assert.Equal(t, 2.0, f.PBRatio)
	assert.Equal(t, 15.0, f.ROE)
	assert.Equal(t, 10.0, f.RevenueGrowth)
	assert.Equal(t, 40.0, f.DebtRatio)
	assert.Equal(t, 0.0, f.DividendYield)
	assert.Nil(t, f.SemiAnnualGrowth)
	assert.Equal(t, "未知", f.Industry)
	assert.Equal(t, models.DataSourceReal, f.DataSource)
}

func TestResolve_QuarterlyReportFallback(t *testing.T) {
	src := &fakeSource{
		info: basicInfo(),
		quarterly: &provider.Table{
			Fields: []string{"报告期", "值"},
			Items: [][]interface{}{
				{"20231231", "35亿"},
				{"20240930", "1.2亿"},
				{"20240630", "1.1亿"},
				{"20240331", "9000万"},
				{"20230930", "1亿"},
				{"20230630", "8000万"},
			},
		},
	}

	f, err := newTestResolver(src).Resolve(context.Background(), "000001")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, f.RevenueGrowth, 1e-9)
}

func TestResolve_PositionalAbstractAndPEFallback(t *testing.T) {
	src := &fakeSource{
		info: basicInfo(),
		abstract: &provider.Table{
			Fields: []string{"选项", "指标", "最新", "上期", "前期", "三期前", "同期"},
			Items: [][]interface{}{
				{"常用指标", "营业总收入", "150", "1", "1", "1", "100"},
				{"估值指标", "P/E(TTM)", "18.5", "1", "1", "1", "1"},
				{"估值指标", "市净率", "2.4", "1", "1", "1", "1"},
			},
		},
	}

	f, err := newTestResolver(src).Resolve(context.Background(), "000001")
	require.NoError(t, err)

	assert.InDelta(t, 50.0, f.RevenueGrowth, 1e-9)
	assert.Equal(t, 18.5, f.PERatio)
	assert.Equal(t, 2.4, f.PBRatio)
	assert.Equal(t, 15.0, f.ROE)
	assert.Nil(t, f.SemiAnnualGrowth)
}

func TestAbstractTable_SchemaDrift(t *testing.T) {
	_, err := newAbstractTable(&provider.Table{Fields: []string{"名称", "值"}, Items: [][]interface{}{{"a", 1.0}}})
	require.Error(t, err)

	a, err := newAbstractTable(datedAbstract())
	require.NoError(t, err)
	_, err = a.latest(rowPE)
	require.Error(t, err, "最新一期为 -- 时视为缺失")

	latest, ok := a.latestColumn()
	require.True(t, ok)
	assert.Equal(t, 2, latest)
	yearAgo, ok := a.yearAgoColumn()
	require.True(t, ok)
	assert.Equal(t, 6, yearAgo)
}
