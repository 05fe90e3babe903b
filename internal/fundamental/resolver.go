package fundamental

import (
	"context"
	"fmt"
	"sort"
	"stock_signal/internal/config"
	"stock_signal/internal/models"
	"stock_signal/internal/provider"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 个股基本信息字段
const (
	infoName      = "股票简称"
	infoPrice     = "最新"
	infoMarketCap = "总市值"
	infoIndustry  = "行业"
	infoListDate  = "上市时间"
)

// Source 基本面数据源
type Source interface {
	GetIndividualInfo(ctx context.Context, stockCode string) (map[string]interface{}, error)
	GetValuation(ctx context.Context, stockCode string) (*provider.Table, error)
	GetFinancialAbstract(ctx context.Context, stockCode string) (*provider.Table, error)
	GetQuarterlyRevenue(ctx context.Context, stockCode string) (*provider.Table, error)
	GetDividends(ctx context.Context, stockCode string) (*provider.Table, error)
}

// Resolver 基本面数据解析器，多数据源逐级补齐字段
type Resolver struct {
	source   Source
	defaults config.DefaultsConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewResolver 创建解析器
func NewResolver(source Source, defaults config.DefaultsConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		source:   source,
		defaults: defaults,
		logger:   logger,
		now:      time.Now,
	}
}

// draft 解析过程中的中间结果，nil 表示尚未取得
type draft struct {
	peRatio          *float64
	pbRatio          *float64
	roe              *float64
	debtRatio        *float64
	quarterlyGrowth  *float64
	semiAnnualGrowth *float64
	dividendPerShare *float64
}

// Resolve 获取单只股票的基本面数据。
// 基本信息获取失败时返回错误，其余数据源失败只记录日志并使用默认值。
func (r *Resolver) Resolve(ctx context.Context, stockCode string) (models.FundamentalFacts, error) {
	info, err := r.source.GetIndividualInfo(ctx, stockCode)
	if err != nil {
		return models.FundamentalFacts{}, fmt.Errorf("获取个股基本信息失败: %w", err)
	}

	var (
		d         draft
		valuation *provider.Table
		abstract  *provider.Table
		dividends *provider.Table
		mu        sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(name string, fn func(context.Context, string) (*provider.Table, error), dst **provider.Table) {
		g.Go(func() error {
			t, err := fn(gctx, stockCode)
			if err != nil {
				r.logger.Warn("获取基本面数据失败，使用后备来源",
					zap.String("stock_code", stockCode),
					zap.String("source", name),
					zap.Error(err))
				return nil
			}
			mu.Lock()
			*dst = t
			mu.Unlock()
			return nil
		})
	}
	fetch("valuation", r.source.GetValuation, &valuation)
	fetch("financial_abstract", r.source.GetFinancialAbstract, &abstract)
	fetch("dividend", r.source.GetDividends, &dividends)
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.FundamentalFacts{}, err
	}

	// 1. 实时估值
	r.applyValuation(stockCode, valuation, &d)

	// 2. 财务摘要：ROE、资产负债率、季度/半年度营收增长
	var table *abstractTable
	if abstract != nil {
		if table, err = newAbstractTable(abstract); err != nil {
			r.logger.Warn("财务摘要结构异常", zap.String("stock_code", stockCode), zap.Error(err))
		}
	}
	if table != nil {
		r.applyTimely(stockCode, table, &d)
	}

	// 3. 摘要缺少足够历史列时，使用单季度营收报表计算同比
	if d.quarterlyGrowth == nil {
		d.quarterlyGrowth = r.quarterlyRevenueGrowth(ctx, stockCode)
	}

	// 4. 财务摘要作为 PE/PB 的后备来源
	if table != nil {
		applyAbstractFallback(table, &d)
	}

	// 5. 股息
	d.dividendPerShare = dividendPerShare(dividends)

	return r.build(stockCode, info, d), nil
}

func (r *Resolver) applyValuation(stockCode string, t *provider.Table, d *draft) {
	if t.Len() == 0 {
		return
	}
	last := t.Len() - 1
	d.peRatio = numberPtr(t.Value(last, "市盈率"))
	d.pbRatio = numberPtr(t.Value(last, "市净率"))
	if d.peRatio == nil || d.pbRatio == nil {
		r.logger.Debug("估值数据不完整", zap.String("stock_code", stockCode))
	}
}

func (r *Resolver) applyTimely(stockCode string, t *abstractTable, d *draft) {
	var err error
	if d.roe, err = t.latest(rowROE); err != nil {
		r.logger.Debug("ROE 解析失败", zap.String("stock_code", stockCode), zap.Error(err))
	}
	if d.debtRatio, err = t.latest(rowDebtRatio); err != nil {
		r.logger.Debug("资产负债率解析失败", zap.String("stock_code", stockCode), zap.Error(err))
	}

	latestCol, ok1 := t.latestColumn()
	yearAgoCol, ok2 := t.yearAgoColumn()
	if ok1 && ok2 {
		if d.quarterlyGrowth, err = t.growth(rowRevenue, latestCol, yearAgoCol); err != nil {
			r.logger.Debug("季度营收增长计算失败", zap.String("stock_code", stockCode), zap.Error(err))
		}
	}

	if cur, prev, ok := t.halfYearColumns(); ok {
		if d.semiAnnualGrowth, err = t.growth(rowRevenue, cur, prev); err != nil {
			r.logger.Debug("半年度营收增长计算失败", zap.String("stock_code", stockCode), zap.Error(err))
		}
	}
}

func applyAbstractFallback(t *abstractTable, d *draft) {
	if d.peRatio == nil {
		d.peRatio, _ = t.latest(rowPE)
	}
	if d.pbRatio == nil {
		d.pbRatio, _ = t.latest(rowPB)
	}
	if d.roe == nil {
		d.roe, _ = t.latest(rowROE)
	}
	if d.debtRatio == nil {
		d.debtRatio, _ = t.latest(rowDebtRatio)
	}
}

// quarterlyRevenueGrowth 单季度营收同比：最新一期对比去年同期
func (r *Resolver) quarterlyRevenueGrowth(ctx context.Context, stockCode string) *float64 {
	t, err := r.source.GetQuarterlyRevenue(ctx, stockCode)
	if err != nil {
		r.logger.Warn("获取单季度营收失败", zap.String("stock_code", stockCode), zap.Error(err))
		return nil
	}
	if t.Len() < 4 {
		return nil
	}

	type quarter struct {
		label string
		value interface{}
	}
	valueCol := t.Index("值")
	if valueCol < 0 {
		valueCol = len(t.Fields) - 1
	}
	quarters := make([]quarter, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		quarters = append(quarters, quarter{
			label: toString(t.Value(i, "报告期")),
			value: t.Cell(i, valueCol),
		})
	}
	sort.SliceStable(quarters, func(i, j int) bool {
		return quarters[i].label > quarters[j].label
	})

	// 优先按报告期找去年同期，找不到时取第 5 期，再退到最早一期
	base := quarters[len(quarters)-1]
	if len(quarters) > 4 {
		base = quarters[4]
	}
	if latest, err := time.Parse(periodLayout, quarters[0].label); err == nil {
		want := latest.AddDate(-1, 0, 0).Format(periodLayout)
		for _, q := range quarters {
			if q.label == want {
				base = q
				break
			}
		}
	}

	latestVal, ok1 := ParseNumber(quarters[0].value)
	baseVal, ok2 := ParseNumber(base.value)
	if !ok1 || !ok2 {
		return nil
	}
	g, err := growthRate(latestVal, baseVal)
	if err != nil {
		return nil
	}
	return g
}

// dividendPerShare 最近一次分红的每股派息
func dividendPerShare(t *provider.Table) *float64 {
	if t.Len() == 0 {
		return nil
	}
	return numberPtr(t.Value(0, "每股派息"))
}

func (r *Resolver) build(stockCode string, info map[string]interface{}, d draft) models.FundamentalFacts {
	price, _ := ParseNumber(info[infoPrice])
	marketCap, _ := ParseNumber(info[infoMarketCap])

	var dividendYield float64
	if d.dividendPerShare != nil && price > 0 {
		dividendYield = *d.dividendPerShare / price * 100
	}

	industry := toString(info[infoIndustry])
	if industry == "" {
		industry = "未知"
	}

	return models.FundamentalFacts{
		StockCode:        stockCode,
		StockName:        toString(info[infoName]),
		CurrentPrice:     price,
		MarketCap:        marketCap / 1e8,
		PERatio:          orDefault(d.peRatio, r.defaults.PERatio),
		PBRatio:          orDefault(d.pbRatio, r.defaults.PBRatio),
		DividendYield:    dividendYield,
		ROE:              orDefault(d.roe, r.defaults.ROE),
		RevenueGrowth:    orDefault(d.quarterlyGrowth, r.defaults.RevenueGrowth),
		SemiAnnualGrowth: d.semiAnnualGrowth,
		DebtRatio:        orDefault(d.debtRatio, r.defaults.DebtRatio),
		Industry:         industry,
		ListDate:         toString(info[infoListDate]),
		DataSource:       models.DataSourceReal,
		DataPeriod:       models.DataPeriod,
		LastUpdate:       r.now().Format("2006-01-02 15:04:05"),
	}
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
