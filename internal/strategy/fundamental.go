package strategy

import (
	"fmt"
	"stock_signal/internal/models"
)

// 基本面分析失败时结果中的数据来源
const dataSourceError = "error"

// PEGDetail PEG 计算说明
type PEGDetail struct {
	Formula           string `json:"formula"`
	PEExplanation     string `json:"pe_explanation"`
	GrowthExplanation string `json:"growth_explanation"`
	Interpretation    string `json:"peg_interpretation"`
}

var pegDetail = &PEGDetail{
	Formula:           "PEG = PE率 ÷ 增长率",
	PEExplanation:     "市盈率，反映市场对公司的估值水平",
	GrowthExplanation: "营业收入增长率，反映公司的成长性",
	Interpretation:    "综合考虑估值和成长性的指标",
}

// PEGResult PEG 策略结果
type PEGResult struct {
	Signal            Signal     `json:"signal"`
	PEGValue          *float64   `json:"peg_value"`
	PERatio           *float64   `json:"pe_ratio"`
	GrowthRate        *float64   `json:"growth_rate"`
	Valuation         string     `json:"valuation"`
	Reason            string     `json:"reason"`
	DataSource        string     `json:"data_source"`
	StockName         string     `json:"stock_name"`
	MarketCap         *float64   `json:"market_cap,omitempty"`
	Industry          string     `json:"industry,omitempty"`
	CurrentPrice      *float64   `json:"current_price,omitempty"`
	CalculationDetail *PEGDetail `json:"calculation_detail,omitempty"`
	LastUpdate        string     `json:"last_update,omitempty"`
	Error             string     `json:"error,omitempty"`
}

// PEG PEG = 市盈率 / 营收增长率
func PEG(f models.FundamentalFacts) PEGResult {
	res := PEGResult{
		PERatio:    ptr(f.PERatio),
		GrowthRate: ptr(f.RevenueGrowth),
		DataSource: f.DataSource,
		StockName:  f.StockName,
		LastUpdate: f.LastUpdate,
	}

	if f.RevenueGrowth <= 0 {
		res.Signal = Sell
		res.Valuation = "negative_growth"
		res.Reason = "增长率为负或零"
		return res
	}

	peg := f.PERatio / f.RevenueGrowth
	switch {
	case peg < 0.5:
		res.Signal, res.Valuation = Buy, "very_undervalued"
	case peg < 1.0:
		res.Signal, res.Valuation = Buy, "undervalued"
	case peg < 1.5:
		res.Signal, res.Valuation = Hold, "fair"
	case peg < 2.0:
		res.Signal, res.Valuation = Sell, "overvalued"
	default:
		res.Signal, res.Valuation = Sell, "very_overvalued"
	}

	res.PEGValue = ptr(round(peg, 2))
	res.Reason = fmt.Sprintf("PEG=%.2f", peg)
	res.MarketCap = ptr(f.MarketCap)
	res.Industry = f.Industry
	res.CurrentPrice = ptr(f.CurrentPrice)
	res.CalculationDetail = pegDetail
	return res
}

// PEGError 分析失败时的结果
func PEGError(err error) PEGResult {
	return PEGResult{
		Signal:     InsufficientData,
		Valuation:  "unknown",
		Reason:     "数据不足",
		DataSource: dataSourceError,
		Error:      err.Error(),
	}
}

// ValueFactorResult 价值因子策略结果
type ValueFactorResult struct {
	Signal        Signal             `json:"signal"`
	TotalScore    *float64           `json:"total_score"`
	ValueLevel    string             `json:"value_level"`
	PERatio       *float64           `json:"pe_ratio"`
	PBRatio       *float64           `json:"pb_ratio"`
	DividendYield *float64           `json:"dividend_yield"`
	ROE           *float64           `json:"roe"`
	DebtRatio     *float64           `json:"debt_ratio"`
	SubScores     map[string]float64 `json:"sub_scores"`
	DataSource    string             `json:"data_source"`
	StockName     string             `json:"stock_name"`
	MarketCap     *float64           `json:"market_cap,omitempty"`
	Industry      string             `json:"industry,omitempty"`
	CurrentPrice  *float64           `json:"current_price,omitempty"`
	LastUpdate    string             `json:"last_update,omitempty"`
	Error         string             `json:"error,omitempty"`
}

// ValueFactor 综合市盈率、市净率、股息率、ROE、资产负债率打分，满分 100
func ValueFactor(f models.FundamentalFacts) ValueFactorResult {
	var peScore, pbScore, dividendScore, roeScore, debtScore float64

	if f.PERatio > 0 {
		peScore = clamp((50-f.PERatio)/50*25, 0, 25)
	}
	if f.PBRatio > 0 {
		pbScore = clamp((10-f.PBRatio)/10*20, 0, 20)
	}
	if f.DividendYield >= 0 {
		dividendScore = min(15, f.DividendYield/8*15)
	}
	if f.ROE > 0 {
		roeScore = min(25, f.ROE)
	}
	if f.DebtRatio >= 0 {
		debtScore = clamp((100-f.DebtRatio)/100*15, 0, 15)
	}

	total := peScore + pbScore + dividendScore + roeScore + debtScore

	res := ValueFactorResult{
		TotalScore:    ptr(round(total, 1)),
		PERatio:       ptr(f.PERatio),
		PBRatio:       ptr(f.PBRatio),
		DividendYield: ptr(f.DividendYield),
		ROE:           ptr(f.ROE),
		DebtRatio:     ptr(f.DebtRatio),
		SubScores: map[string]float64{
			"pe_score":       round(peScore, 1),
			"pb_score":       round(pbScore, 1),
			"dividend_score": round(dividendScore, 1),
			"roe_score":      round(roeScore, 1),
			"debt_score":     round(debtScore, 1),
		},
		DataSource:   f.DataSource,
		StockName:    f.StockName,
		MarketCap:    ptr(f.MarketCap),
		Industry:     f.Industry,
		CurrentPrice: ptr(f.CurrentPrice),
		LastUpdate:   f.LastUpdate,
	}

	switch {
	case total >= 85:
		res.Signal, res.ValueLevel = Buy, "excellent"
	case total >= 70:
		res.Signal, res.ValueLevel = Buy, "good"
	case total >= 50:
		res.Signal, res.ValueLevel = Hold, "fair"
	case total >= 30:
		res.Signal, res.ValueLevel = Sell, "poor"
	default:
		res.Signal, res.ValueLevel = Sell, "very_poor"
	}
	return res
}

// ValueFactorError 分析失败时的结果
func ValueFactorError(err error) ValueFactorResult {
	return ValueFactorResult{
		Signal:     InsufficientData,
		ValueLevel: "unknown",
		SubScores:  map[string]float64{},
		DataSource: dataSourceError,
		Error:      err.Error(),
	}
}

// FinancialHealthResult 财务健康策略结果
type FinancialHealthResult struct {
	Signal           Signal         `json:"signal"`
	HealthScore      *float64       `json:"health_score"`
	HealthLevel      string         `json:"health_level"`
	DebtRatio        *float64       `json:"debt_ratio,omitempty"`
	ROE              *float64       `json:"roe,omitempty"`
	RevenueGrowth    *float64       `json:"revenue_growth,omitempty"`
	SemiAnnualGrowth *float64       `json:"semi_annual_growth"`
	CombinedGrowth   *float64       `json:"combined_growth"`
	GrowthPeriod     string         `json:"growth_period"`
	MarketCap        *float64       `json:"market_cap,omitempty"`
	SubScores        map[string]int `json:"sub_scores,omitempty"`
	DataSource       string         `json:"data_source"`
	DataPeriod       string         `json:"data_period,omitempty"`
	StockName        string         `json:"stock_name"`
	LastUpdate       string         `json:"last_update,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// FinancialHealth 资产负债率、ROE、营收增长、市值分档打分，满分 100。
// 有半年度增长数据时，增长按 季度 0.6 + 半年度 0.4 加权。
func FinancialHealth(f models.FundamentalFacts) FinancialHealthResult {
	var debtScore int
	switch {
	case f.DebtRatio < 30:
		debtScore = 30
	case f.DebtRatio < 50:
		debtScore = 20
	case f.DebtRatio < 70:
		debtScore = 10
	}

	var roeScore int
	switch {
	case f.ROE > 20:
		roeScore = 25
	case f.ROE > 15:
		roeScore = 20
	case f.ROE > 10:
		roeScore = 15
	case f.ROE > 5:
		roeScore = 10
	}

	growth := f.RevenueGrowth
	growthPeriod := "季度同比"
	var combined *float64
	if f.SemiAnnualGrowth != nil {
		growth = f.RevenueGrowth*0.6 + *f.SemiAnnualGrowth*0.4
		growthPeriod = "综合同比(季度+半年)"
		combined = ptr(round(growth, 2))
	}

	var growthScore int
	switch {
	case growth > 20:
		growthScore = 25
	case growth > 10:
		growthScore = 20
	case growth > 5:
		growthScore = 15
	case growth > 0:
		growthScore = 10
	}

	var sizeScore int
	switch {
	case f.MarketCap > 1000:
		sizeScore = 20
	case f.MarketCap > 500:
		sizeScore = 15
	case f.MarketCap > 100:
		sizeScore = 10
	case f.MarketCap > 50:
		sizeScore = 5
	}

	total := debtScore + roeScore + growthScore + sizeScore

	res := FinancialHealthResult{
		HealthScore:      ptr(float64(total)),
		DebtRatio:        ptr(f.DebtRatio),
		ROE:              ptr(f.ROE),
		RevenueGrowth:    ptr(f.RevenueGrowth),
		SemiAnnualGrowth: f.SemiAnnualGrowth,
		CombinedGrowth:   combined,
		GrowthPeriod:     growthPeriod,
		MarketCap:        ptr(f.MarketCap),
		SubScores: map[string]int{
			"debt_score":   debtScore,
			"roe_score":    roeScore,
			"growth_score": growthScore,
			"size_score":   sizeScore,
		},
		DataSource: f.DataSource,
		DataPeriod: f.DataPeriod,
		StockName:  f.StockName,
		LastUpdate: f.LastUpdate,
	}

	switch {
	case total >= 80:
		res.Signal, res.HealthLevel = Buy, "excellent"
	case total >= 65:
		res.Signal, res.HealthLevel = Buy, "good"
	case total >= 50:
		res.Signal, res.HealthLevel = Hold, "fair"
	case total >= 30:
		res.Signal, res.HealthLevel = Sell, "poor"
	default:
		res.Signal, res.HealthLevel = Sell, "very_poor"
	}
	return res
}

// FinancialHealthError 分析失败时的结果
func FinancialHealthError(err error) FinancialHealthResult {
	return FinancialHealthResult{
		Signal:       InsufficientData,
		HealthLevel:  "unknown",
		GrowthPeriod: "data_unavailable",
		DataSource:   dataSourceError,
		Error:        err.Error(),
	}
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
